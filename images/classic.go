package images

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ReadMat decodes an image file through OpenCV, returning a BGR gocv.Mat.
//
// Arguments:
//   - path: Path to the image file to decode.
//
// Returns:
//   - gocv.Mat: The decoded image.
//   - error: An error if the file cannot be read or decoded.
func ReadMat(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return mat, fmt.Errorf("failed to decode image: %s", path)
	}
	return mat, nil
}

// ReadResizeMat decodes an image file through OpenCV and resizes it to the
// given width and height with linear interpolation.
//
// Arguments:
//   - path: Path to the image file to decode.
//   - width: The width to resize the image to.
//   - height: The height to resize the image to.
//
// Returns:
//   - gocv.Mat: The decoded, resized image.
//   - error: An error if the file cannot be read or decoded.
func ReadResizeMat(path string, width, height int) (gocv.Mat, error) {
	mat, err := ReadMat(path)
	if err != nil {
		return mat, err
	}

	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	mat.Close()

	if resized.Empty() {
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("failed to resize image: %s", path)
	}

	return resized, nil
}

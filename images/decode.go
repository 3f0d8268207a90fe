// Package images provides the decode paths and the canonical tensor
// representation shared by every benchmark backend.
package images

import (
	"fmt"
	"image"
	"os"

	"github.com/cshum/vipsgen/vips"
)

// DecodeJPEG decodes a JPEG file through libvips, returning a Go-native
// image.Image.
//
// Arguments:
//   - path: Path to the JPEG file to decode.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the file cannot be read or decoded.
func DecodeJPEG(path string) (image.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(b, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	defer img.Close()

	return exportImage(img)
}

// DecodeResizeJPEG decodes a JPEG file through libvips and resizes it to
// exactly the given width and height before returning a Go-native
// image.Image. Aspect ratio is not preserved; like the other backends'
// resize paths, the output dimensions are fixed.
//
// Arguments:
//   - path: Path to the JPEG file to decode.
//   - width: The width to resize the image to.
//   - height: The height to resize the image to.
//
// Returns:
//   - image.Image: The decoded, resized image.
//   - error: An error if the file cannot be read, decoded or resized.
func DecodeResizeJPEG(path string, width, height int) (image.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(b, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	defer img.Close()

	// Resize the image in-place. SizeForce stretches to the exact target
	// dimensions instead of fitting within them.
	err = img.ThumbnailImage(width, &vips.ThumbnailImageOptions{
		Height: height,
		Size:   vips.SizeForce,
		FailOn: vips.FailOnError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	return exportImage(img)
}

// exportImage copies the decoded pixel buffer straight into an
// image.Image, with no intermediate re-encode.
func exportImage(img *vips.Image) (image.Image, error) {
	raw, err := img.RawsaveBuffer(&vips.RawsaveBufferOptions{})
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("failed to export image pixels")
	}

	width := img.Width()
	height := img.Height()
	bands := img.Bands()
	if bands != 3 && bands != 4 {
		return nil, fmt.Errorf("unexpected band count: %d", bands)
	}
	if len(raw) < width*height*bands {
		return nil, fmt.Errorf("short pixel buffer: %d bytes for %dx%dx%d", len(raw), width, height, bands)
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		out.Pix[i*4] = raw[i*bands]
		out.Pix[i*4+1] = raw[i*bands+1]
		out.Pix[i*4+2] = raw[i*bands+2]
		if bands == 4 {
			out.Pix[i*4+3] = raw[i*bands+3]
		} else {
			out.Pix[i*4+3] = 255
		}
	}

	return out, nil
}

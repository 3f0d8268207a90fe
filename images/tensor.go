package images

import (
	"image"
	"image/jpeg"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// Channels is the channel count of the canonical representation.
const Channels = 3

// Sample is one decoded image in a backend's native representation. Exactly
// one field is set: Image for the native-decode family, Mat for the classic
// family, Tensor for the in-pipeline families (and for every sample after
// normalization).
type Sample struct {
	Image  image.Image
	Mat    *gocv.Mat
	Tensor *tensor.Dense
}

// Close releases any native resources held by the sample.
func (s Sample) Close() {
	if s.Mat != nil {
		s.Mat.Close()
	}
}

// ToTensor converts an image.Image into the canonical representation: a
// [3, H, W] float32 tensor with RGB values scaled to [0, 1].
func ToTensor(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	channelSize := width * height

	data := make([]float32, Channels*channelSize)
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return tensor.New(
		tensor.WithShape(Channels, height, width),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)
}

// MatToTensor converts a BGR gocv.Mat into the canonical representation.
//
// Arguments:
//   - mat: The Mat to convert. Must be a 3-channel 8-bit image.
//
// Returns:
//   - *tensor.Dense: The canonical [3, H, W] float32 tensor in [0, 1].
//   - error: An error if the Mat is empty or has an unexpected layout.
func MatToTensor(mat gocv.Mat) (*tensor.Dense, error) {
	if mat.Empty() {
		return nil, errors.New("cannot convert empty Mat")
	}
	if mat.Channels() != Channels {
		return nil, errors.Errorf("expected %d channels, got %d", Channels, mat.Channels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	pixels, err := rgb.DataPtrUint8()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access Mat data")
	}

	height := mat.Rows()
	width := mat.Cols()
	channelSize := height * width

	data := make([]float32, Channels*channelSize)
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	// Interleaved HWC uint8 to planar CHW float32.
	for i := 0; i < channelSize; i++ {
		red[i] = float32(pixels[i*3]) / 255.0
		green[i] = float32(pixels[i*3+1]) / 255.0
		blue[i] = float32(pixels[i*3+2]) / 255.0
	}

	return tensor.New(
		tensor.WithShape(Channels, height, width),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	), nil
}

// LoadTensor reads a JPEG file and returns it directly in the canonical
// representation. Decoding and normalization are fused, which is how the
// in-pipeline backend families load their samples.
func LoadTensor(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	return ToTensor(img), nil
}

// Canonical normalizes a sample into the canonical representation,
// whichever native form it carries.
func Canonical(s Sample) (*tensor.Dense, error) {
	switch {
	case s.Tensor != nil:
		return s.Tensor, nil
	case s.Image != nil:
		return ToTensor(s.Image), nil
	case s.Mat != nil:
		return MatToTensor(*s.Mat)
	default:
		return nil, errors.New("empty sample")
	}
}

// CheckCanonical validates the canonical representation invariant: a 3D
// [3, H, W] float32 tensor with every value in [0, 1].
func CheckCanonical(t *tensor.Dense) error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return errors.Errorf("expected float32 tensor, got %v", t.Dtype())
	}
	shape := t.Shape()
	if len(shape) != 3 || shape[0] != Channels {
		return errors.Errorf("expected [3, H, W] shape, got %v", shape)
	}
	for _, v := range t.Data().([]float32) {
		if v < 0 || v > 1 {
			return errors.Errorf("value %f outside [0, 1]", v)
		}
	}
	return nil
}

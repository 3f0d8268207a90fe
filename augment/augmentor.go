package augment

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/pixelbench/go-imgbench/images"
	"github.com/pixelbench/go-imgbench/pipeline"
)

// Kind selects which underlying augmentation operator an Augmentor wraps.
type Kind int

const (
	// KindNative jitters the tensor view of a natively decoded image,
	// one sample at a time.
	KindNative Kind = iota
	// KindClassic jitters through OpenCV's color transform, one sample
	// at a time.
	KindClassic
	// KindBatch jitters a whole stacked batch through a compiled graph.
	KindBatch
)

// Augmentor applies a randomized color jitter and normalizes the result to
// the canonical representation. Every implementation supports exactly one
// granularity and fails loudly when called at the other, so a
// misconfigured pipeline cannot silently pass images through unjittered.
type Augmentor interface {
	// Apply jitters a single decoded sample.
	Apply(s images.Sample) (*tensor.Dense, error)
	// ApplyBatch jitters a stacked [B, 3, H, W] batch in place of
	// per-sample application.
	ApplyBatch(batch *tensor.Dense) (*tensor.Dense, error)
}

// New builds the Augmentor for the given kind. The rand source is shared
// across worker goroutines, so parameter draws are serialized internally.
func New(kind Kind, rng *rand.Rand) (Augmentor, error) {
	switch kind {
	case KindNative:
		return &nativeAugmentor{rng: rng}, nil
	case KindClassic:
		return &classicAugmentor{rng: rng}, nil
	case KindBatch:
		return &batchAugmentor{rng: rng, jit: pipeline.NewJITJitter()}, nil
	default:
		return nil, errors.Errorf("unrecognized augmentor kind: %d", kind)
	}
}

// nativeAugmentor jitters samples decoded by the native-decode family.
type nativeAugmentor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (a *nativeAugmentor) Apply(s images.Sample) (*tensor.Dense, error) {
	if s.Image == nil {
		return nil, errors.New("native augmentor requires a decoded image sample")
	}

	a.mu.Lock()
	params := SampleParams(a.rng, DefaultSpan)
	a.mu.Unlock()

	t := images.ToTensor(s.Image)
	m, offset := params.ColorMatrix()
	applyMatrixCHW(t.Data().([]float32), m, offset)
	return t, nil
}

func (a *nativeAugmentor) ApplyBatch(*tensor.Dense) (*tensor.Dense, error) {
	return nil, errors.New("native augmentor runs at sample granularity")
}

// classicAugmentor jitters samples decoded by the classic (OpenCV) family.
type classicAugmentor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (a *classicAugmentor) Apply(s images.Sample) (*tensor.Dense, error) {
	if s.Mat == nil {
		return nil, errors.New("classic augmentor requires a Mat sample")
	}
	if s.Mat.Empty() {
		return nil, errors.New("classic augmentor received an empty Mat")
	}

	a.mu.Lock()
	params := SampleParams(a.rng, DefaultSpan)
	a.mu.Unlock()
	m, offset := params.ColorMatrix()

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(*s.Mat, &rgb, gocv.ColorBGRToRGB)

	scaled := gocv.NewMat()
	defer scaled.Close()
	rgb.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kernel.SetFloatAt(row, col, m[row*3+col])
		}
	}

	jittered := gocv.NewMat()
	defer jittered.Close()
	gocv.Transform(scaled, &jittered, kernel)

	pixels, err := jittered.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access jittered Mat data")
	}

	height := jittered.Rows()
	width := jittered.Cols()
	channelSize := height * width

	// Interleaved HWC to planar CHW, folding in the offset and clamp.
	data := make([]float32, images.Channels*channelSize)
	for i := 0; i < channelSize; i++ {
		data[i] = clamp01(pixels[i*3] + offset)
		data[channelSize+i] = clamp01(pixels[i*3+1] + offset)
		data[2*channelSize+i] = clamp01(pixels[i*3+2] + offset)
	}

	return tensor.New(
		tensor.WithShape(images.Channels, height, width),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	), nil
}

func (a *classicAugmentor) ApplyBatch(*tensor.Dense) (*tensor.Dense, error) {
	return nil, errors.New("classic augmentor runs at sample granularity")
}

// batchAugmentor jitters whole batches for the in-pipeline families, whose
// samples are already canonical when they reach the driver.
type batchAugmentor struct {
	mu  sync.Mutex
	rng *rand.Rand
	jit *pipeline.JITJitter
}

func (a *batchAugmentor) Apply(images.Sample) (*tensor.Dense, error) {
	return nil, errors.New("in-pipeline augmentor runs at batch granularity")
}

func (a *batchAugmentor) ApplyBatch(batch *tensor.Dense) (*tensor.Dense, error) {
	a.mu.Lock()
	params := SampleParams(a.rng, DefaultSpan)
	a.mu.Unlock()

	m, offset := params.ColorMatrix()
	return a.jit.Apply(batch, m, offset)
}

// applyMatrixCHW applies y = clamp01(M*x + offset) in place over a planar
// [3, H, W] buffer.
func applyMatrixCHW(data []float32, m [9]float32, offset float32) {
	channelSize := len(data) / 3
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	for i := 0; i < channelSize; i++ {
		r, g, b := red[i], green[i], blue[i]
		red[i] = clamp01(m[0]*r + m[1]*g + m[2]*b + offset)
		green[i] = clamp01(m[3]*r + m[4]*g + m[5]*b + offset)
		blue[i] = clamp01(m[6]*r + m[7]*g + m[8]*b + offset)
	}
}

// Package backend defines the closed set of pipeline variants the
// benchmark compares. Each variant carries its transform function, its
// augmentor and its batch-level post-processing, selected once at
// configuration time so no string dispatch remains on the hot path.
package backend

import (
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/pixelbench/go-imgbench/augment"
	"github.com/pixelbench/go-imgbench/images"
	"github.com/pixelbench/go-imgbench/pipeline"
)

// CLI tags for the four backend families.
const (
	TagKorniaCPU = "kornia_cpu"
	TagKorniaGPU = "kornia_gpu"
	TagKorniaRS  = "kornia_rs"
	TagOpenCV    = "opencv"
)

// Fixed resize target of the resize benchmark mode.
const (
	ResizeWidth  = 32
	ResizeHeight = 32
)

// Family identifies which image-processing stack a variant is built on.
type Family int

const (
	// FamilyNative decodes through libvips.
	FamilyNative Family = iota
	// FamilyClassic decodes through OpenCV.
	FamilyClassic
	// FamilyPipelineCPU loads canonical tensors and post-processes
	// batches on the host.
	FamilyPipelineCPU
	// FamilyPipelineGPU loads canonical tensors and transfers batches to
	// a device before post-processing.
	FamilyPipelineGPU
)

// Granularity declares where a variant's augmentation runs. The asymmetry
// between per-sample and per-batch augmentation is a property of each
// backend being benchmarked, not driver policy.
type Granularity int

const (
	// GranularitySample augments inside the sample source, one image at
	// a time.
	GranularitySample Granularity = iota
	// GranularityBatch augments inside the batch driver, one stacked
	// batch at a time.
	GranularityBatch
)

// Mode selects which benchmark variant runs.
type Mode int

const (
	// ModeResize benchmarks decode plus a fixed 32x32 resize.
	ModeResize Mode = iota
	// ModeAugmentation benchmarks decode plus color jitter.
	ModeAugmentation
)

// ParseMode maps a CLI mode name onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "resize":
		return ModeResize, nil
	case "augmentation":
		return ModeAugmentation, nil
	default:
		return 0, errors.Errorf("unknown benchmark mode %q (valid: resize, augmentation)", s)
	}
}

// Transform maps an image path to a decoded sample in the backend's native
// representation. Decode errors propagate untranslated; a malformed input
// aborts the run.
type Transform func(path string) (images.Sample, error)

// BatchOp is a variant's per-batch post-processing step.
type BatchOp func(batch *tensor.Dense) (*tensor.Dense, error)

// Backend is one resolved pipeline variant.
type Backend struct {
	Tag         string
	Family      Family
	Granularity Granularity
	Transform   Transform
	// Augmentor is set in augmentation mode and nil in resize mode.
	Augmentor augment.Augmentor
	// BatchOp is set for batch-granularity variants and nil otherwise.
	BatchOp BatchOp
}

// Tags lists the valid backend tags.
func Tags() []string {
	return []string{TagKorniaCPU, TagKorniaGPU, TagKorniaRS, TagOpenCV}
}

// Resolve builds the variant for a backend tag. Unknown tags are
// configuration errors and surface here, before any timing begins.
func Resolve(tag string, mode Mode, rng *rand.Rand) (*Backend, error) {
	switch tag {
	case TagKorniaRS:
		return resolveNative(tag, mode, rng)
	case TagOpenCV:
		return resolveClassic(tag, mode, rng)
	case TagKorniaCPU:
		return resolvePipeline(tag, FamilyPipelineCPU, mode, rng, nil)
	case TagKorniaGPU:
		return resolvePipeline(tag, FamilyPipelineGPU, mode, rng, pipeline.NewDevice("cuda:0"))
	default:
		return nil, errors.Errorf("unknown backend %q (valid: %v)", tag, Tags())
	}
}

func resolveNative(tag string, mode Mode, rng *rand.Rand) (*Backend, error) {
	b := &Backend{
		Tag:         tag,
		Family:      FamilyNative,
		Granularity: GranularitySample,
	}

	switch mode {
	case ModeResize:
		b.Transform = func(path string) (images.Sample, error) {
			img, err := images.DecodeResizeJPEG(path, ResizeWidth, ResizeHeight)
			if err != nil {
				return images.Sample{}, err
			}
			return images.Sample{Image: img}, nil
		}
	case ModeAugmentation:
		b.Transform = func(path string) (images.Sample, error) {
			img, err := images.DecodeJPEG(path)
			if err != nil {
				return images.Sample{}, err
			}
			return images.Sample{Image: img}, nil
		}
		aug, err := augment.New(augment.KindNative, rng)
		if err != nil {
			return nil, err
		}
		b.Augmentor = aug
	}

	return b, nil
}

func resolveClassic(tag string, mode Mode, rng *rand.Rand) (*Backend, error) {
	b := &Backend{
		Tag:         tag,
		Family:      FamilyClassic,
		Granularity: GranularitySample,
	}

	switch mode {
	case ModeResize:
		b.Transform = func(path string) (images.Sample, error) {
			mat, err := images.ReadResizeMat(path, ResizeWidth, ResizeHeight)
			if err != nil {
				mat.Close()
				return images.Sample{}, err
			}
			return images.Sample{Mat: &mat}, nil
		}
	case ModeAugmentation:
		b.Transform = func(path string) (images.Sample, error) {
			mat, err := images.ReadMat(path)
			if err != nil {
				mat.Close()
				return images.Sample{}, err
			}
			return images.Sample{Mat: &mat}, nil
		}
		aug, err := augment.New(augment.KindClassic, rng)
		if err != nil {
			return nil, err
		}
		b.Augmentor = aug
	}

	return b, nil
}

func resolvePipeline(tag string, family Family, mode Mode, rng *rand.Rand, dev *pipeline.Device) (*Backend, error) {
	b := &Backend{
		Tag:         tag,
		Family:      family,
		Granularity: GranularityBatch,
		Transform: func(path string) (images.Sample, error) {
			t, err := images.LoadTensor(path)
			if err != nil {
				return images.Sample{}, err
			}
			return images.Sample{Tensor: t}, nil
		},
	}

	var op BatchOp
	switch mode {
	case ModeResize:
		jit := pipeline.NewJITResize(ResizeHeight, ResizeWidth)
		op = jit.Apply
	case ModeAugmentation:
		aug, err := augment.New(augment.KindBatch, rng)
		if err != nil {
			return nil, err
		}
		b.Augmentor = aug
		op = aug.ApplyBatch
	}

	if dev != nil {
		inner := op
		op = func(batch *tensor.Dense) (*tensor.Dense, error) {
			staged, err := dev.Upload(batch)
			if err != nil {
				return nil, err
			}
			return inner(staged)
		}
	}
	b.BatchOp = op

	return b, nil
}

// Process runs one sample through the variant's transform and, for
// sample-granularity variants in augmentation mode, its augmentor. The
// result is always canonical; batch-granularity augmentation happens later
// in the driver.
func (b *Backend) Process(path string) (*tensor.Dense, error) {
	s, err := b.Transform(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if b.Granularity == GranularitySample && b.Augmentor != nil {
		return b.Augmentor.Apply(s)
	}
	return images.Canonical(s)
}

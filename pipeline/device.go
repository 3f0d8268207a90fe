package pipeline

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Device receives per-batch transfers for the GPU backend variant. Without
// a cgo CUDA toolchain in the build there is no physical device behind it;
// Upload stages the batch into a fresh buffer so the transfer cost point
// still exists in the measured timeline. The buffer lives for one batch
// only and is never pooled.
type Device struct {
	name string
}

// NewDevice creates a device handle with the given name.
func NewDevice(name string) *Device {
	return &Device{name: name}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Upload copies the batch into device-side storage and returns the
// device-resident tensor.
func (d *Device) Upload(t *tensor.Dense) (*tensor.Dense, error) {
	if t == nil {
		return nil, errors.New("cannot upload nil tensor")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected float32 tensor, got %v", t.Dtype())
	}

	staged := make([]float32, len(data))
	copy(staged, data)

	shape := t.Shape()
	return tensor.New(
		tensor.WithShape(shape...),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(staged),
	), nil
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func constantBatch(b, c, h, w int, v float32) *tensor.Dense {
	data := make([]float32, b*c*h*w)
	for i := range data {
		data[i] = v
	}
	return tensor.New(
		tensor.WithShape(b, c, h, w),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)
}

func TestBilinearWeightsRowsSumToOne(t *testing.T) {
	for _, tc := range [][2]int{{32, 100}, {32, 32}, {64, 32}, {3, 7}} {
		dst, src := tc[0], tc[1]
		weights := BilinearWeights(dst, src, false)
		data := weights.Data().([]float32)

		require.Equal(t, tensor.Shape{dst, src}, weights.Shape())
		for row := 0; row < dst; row++ {
			var sum float32
			for col := 0; col < src; col++ {
				sum += data[row*src+col]
			}
			assert.InDelta(t, 1.0, sum, 1e-5, "row %d of %dx%d weights", row, dst, src)
		}
	}
}

func TestBilinearWeightsTransposed(t *testing.T) {
	plain := BilinearWeights(32, 100, false).Data().([]float32)
	transposed := BilinearWeights(32, 100, true).Data().([]float32)

	for row := 0; row < 32; row++ {
		for col := 0; col < 100; col++ {
			assert.Equal(t, plain[row*100+col], transposed[col*32+row])
		}
	}
}

func TestJITResizeShape(t *testing.T) {
	jit := NewJITResize(32, 32)

	out, err := jit.Apply(constantBatch(4, 3, 100, 80, 0.5))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 3, 32, 32}, out.Shape())
}

func TestJITResizePreservesConstant(t *testing.T) {
	jit := NewJITResize(32, 32)

	out, err := jit.Apply(constantBatch(2, 3, 64, 48, 0.25))
	require.NoError(t, err)
	for _, v := range out.Data().([]float32) {
		assert.InDelta(t, 0.25, v, 1e-5, "interpolating a constant plane must preserve it")
	}
}

func TestJITResizeReusesProgram(t *testing.T) {
	jit := NewJITResize(32, 32)

	_, err := jit.Apply(constantBatch(2, 3, 64, 48, 0.1))
	require.NoError(t, err)
	assert.Len(t, jit.progs, 1)

	// Same shape reuses the compiled tape; a new shape compiles again.
	_, err = jit.Apply(constantBatch(5, 3, 64, 48, 0.9))
	require.NoError(t, err)
	assert.Len(t, jit.progs, 1)

	_, err = jit.Apply(constantBatch(1, 3, 100, 100, 0.9))
	require.NoError(t, err)
	assert.Len(t, jit.progs, 2)
}

func TestJITResizeRejectsNonBatch(t *testing.T) {
	jit := NewJITResize(32, 32)

	sample := tensor.New(
		tensor.WithShape(3, 8, 8),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(make([]float32, 3*8*8)),
	)
	_, err := jit.Apply(sample)
	assert.Error(t, err)
}

func TestJITJitterIdentity(t *testing.T) {
	jit := NewJITJitter()
	batch := constantBatch(2, 3, 4, 4, 0.5)

	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	out, err := jit.Apply(batch, identity, 0)
	require.NoError(t, err)

	for _, v := range out.Data().([]float32) {
		assert.InDelta(t, 0.5, v, 1e-6, "identity matrix with zero offset is a no-op")
	}
}

func TestJITJitterClamps(t *testing.T) {
	jit := NewJITJitter()
	batch := constantBatch(1, 3, 2, 2, 0.8)

	double := [9]float32{2, 0, 0, 0, 2, 0, 0, 0, 2}
	out, err := jit.Apply(batch, double, 0)
	require.NoError(t, err)
	for _, v := range out.Data().([]float32) {
		assert.InDelta(t, 1.0, v, 1e-6, "values above 1 must clamp")
	}

	negate := [9]float32{-1, 0, 0, 0, -1, 0, 0, 0, -1}
	out, err = jit.Apply(batch, negate, 0)
	require.NoError(t, err)
	for _, v := range out.Data().([]float32) {
		assert.InDelta(t, 0.0, v, 1e-6, "values below 0 must clamp")
	}
}

func TestJITJitterMixesChannels(t *testing.T) {
	jit := NewJITJitter()

	// One pixel per channel: r=1, g=0, b=0.
	batch := tensor.New(
		tensor.WithShape(1, 3, 1, 1),
		tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{1, 0, 0}),
	)

	swap := [9]float32{0, 1, 0, 0, 0, 1, 1, 0, 0}
	out, err := jit.Apply(batch, swap, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, out.Data().([]float32))
}

func TestDeviceUpload(t *testing.T) {
	dev := NewDevice("cuda:0")
	assert.Equal(t, "cuda:0", dev.Name())

	batch := constantBatch(1, 3, 2, 2, 0.5)
	staged, err := dev.Upload(batch)
	require.NoError(t, err)
	assert.Equal(t, batch.Shape(), staged.Shape())
	assert.Equal(t, batch.Data().([]float32), staged.Data().([]float32))

	// The staged copy must not alias the host batch.
	staged.Data().([]float32)[0] = 0.9
	assert.Equal(t, float32(0.5), batch.Data().([]float32)[0])

	_, err = dev.Upload(nil)
	assert.Error(t, err)
}

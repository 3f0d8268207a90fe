package augment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleParamsWithinSpan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		p := SampleParams(rng, DefaultSpan)
		for _, v := range []float32{p.Brightness, p.Contrast, p.Saturation, p.Hue} {
			assert.GreaterOrEqual(t, v, -DefaultSpan)
			assert.LessOrEqual(t, v, DefaultSpan)
		}
	}
}

func TestSampleParamsDeterministic(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		assert.Equal(t, SampleParams(a, DefaultSpan), SampleParams(b, DefaultSpan),
			"identical seeds must draw identical parameters")
	}
}

func TestColorMatrixIdentity(t *testing.T) {
	m, offset := Params{}.ColorMatrix()

	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range m {
		assert.InDelta(t, identity[i], m[i], 1e-5, "zero params should yield the identity matrix")
	}
	assert.InDelta(t, 0, offset, 1e-6)
}

func TestColorMatrixPreservesGray(t *testing.T) {
	// Saturation and hue leave gray pixels fixed; brightness and contrast
	// at their extremes move them by bounded amounts.
	p := Params{Saturation: 0.1, Hue: 0.1}
	m, offset := p.ColorMatrix()

	gray := float32(0.5)
	r := m[0]*gray + m[1]*gray + m[2]*gray + offset
	g := m[3]*gray + m[4]*gray + m[5]*gray + offset
	b := m[6]*gray + m[7]*gray + m[8]*gray + offset

	assert.InDelta(t, gray, r, 1e-3)
	assert.InDelta(t, gray, g, 1e-3)
	assert.InDelta(t, gray, b, 1e-3)
}

func TestColorMatrixBrightnessScales(t *testing.T) {
	m, offset := Params{Brightness: 0.1}.ColorMatrix()

	// A pure red pixel should scale by exactly the brightness factor.
	r := m[0]*1 + offset
	assert.InDelta(t, 1.1, r, 1e-5)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, float32(0), clamp01(-0.5))
	assert.Equal(t, float32(1), clamp01(1.5))
	assert.Equal(t, float32(0.25), clamp01(0.25))
}

// Package augment applies color-jitter augmentation in each backend
// family's native operator and normalizes the result back to the canonical
// representation.
package augment

import (
	"math/rand"

	"github.com/chewxy/math32"
)

// DefaultSpan is the jitter half-range used by the benchmark: every factor
// is perturbed within ±0.1 around the identity.
const DefaultSpan float32 = 0.1

// Luma weights (ITU-R BT.601) used for the saturation mix.
const (
	lumaR float32 = 0.299
	lumaG float32 = 0.587
	lumaB float32 = 0.114
)

// Params holds one draw of color-jitter factors. Zero values are the
// identity: brightness and contrast are multiplicative offsets around 1,
// saturation is an offset around 1, hue is a rotation in turns.
type Params struct {
	Brightness float32
	Contrast   float32
	Saturation float32
	Hue        float32
}

// SampleParams draws jitter factors uniformly within ±span of the identity.
// The rand source is injected so regression tests can fix a seed; the
// benchmark itself runs unseeded.
func SampleParams(rng *rand.Rand, span float32) Params {
	uniform := func() float32 {
		return (2*rng.Float32() - 1) * span
	}
	return Params{
		Brightness: uniform(),
		Contrast:   uniform(),
		Saturation: uniform(),
		Hue:        uniform(),
	}
}

// ColorMatrix folds the four jitter factors into a single linear operation:
// y = clamp01(M*x + offset) applied to RGB column vectors in [0, 1].
// Saturation mixes against luma, hue rotates in YIQ space, brightness and
// contrast scale the result, with contrast folded around the 0.5 midpoint.
func (p Params) ColorMatrix() (m [9]float32, offset float32) {
	sat := saturationMatrix(1 + p.Saturation)
	hue := hueRotationMatrix(p.Hue * 2 * math32.Pi)

	combined := matMul3(hue, sat)

	scale := (1 + p.Brightness) * (1 + p.Contrast)
	for i := range combined {
		combined[i] *= scale
	}

	return combined, 0.5 * -p.Contrast
}

func saturationMatrix(s float32) [9]float32 {
	return [9]float32{
		lumaR*(1-s) + s, lumaG * (1 - s), lumaB * (1 - s),
		lumaR * (1 - s), lumaG*(1-s) + s, lumaB * (1 - s),
		lumaR * (1 - s), lumaG * (1 - s), lumaB*(1-s) + s,
	}
}

// hueRotationMatrix builds the RGB-space hue rotation for the given angle
// in radians (the YIQ rotation expressed directly over RGB).
func hueRotationMatrix(theta float32) [9]float32 {
	c := math32.Cos(theta)
	s := math32.Sin(theta)
	return [9]float32{
		lumaR + c*(1-lumaR) - s*lumaR, lumaG - c*lumaG - s*lumaG, lumaB - c*lumaB + s*(1-lumaB),
		lumaR - c*lumaR + s*0.143, lumaG + c*(1-lumaG) + s*0.140, lumaB - c*lumaB - s*0.283,
		lumaR - c*lumaR - s*(1-lumaR), lumaG - c*lumaG + s*lumaG, lumaB + c*(1-lumaB) + s*lumaB,
	}
}

func matMul3(a, b [9]float32) [9]float32 {
	var out [9]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += a[row*3+k] * b[k*3+col]
			}
			out[row*3+col] = sum
		}
	}
	return out
}

// clamp01 clamps v to the canonical [0, 1] range.
func clamp01(v float32) float32 {
	return math32.Min(1, math32.Max(0, v))
}

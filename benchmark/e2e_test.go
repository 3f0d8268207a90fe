package benchmark

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbench/go-imgbench/backend"
	"github.com/pixelbench/go-imgbench/dataset"
	"github.com/pixelbench/go-imgbench/loader"
)

func writeDataset(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(4 * x), G: uint8(4 * y), B: 128, A: 255})
		}
	}

	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("img-%04d.jpeg", i)))
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, nil))
		require.NoError(t, f.Close())
	}
	return dir
}

// 65 images with batch size 64 and one worker: each pass yields exactly
// two batches (64 and 1), and three timed repetitions report their mean.
func TestFullPassOverSixtyFiveImages(t *testing.T) {
	dir := writeDataset(t, 65)

	rng := rand.New(rand.NewSource(1))
	b, err := backend.Resolve(backend.TagKorniaRS, backend.ModeResize, rng)
	require.NoError(t, err)

	ds, err := dataset.New(dir, b)
	require.NoError(t, err)
	require.Equal(t, 65, ds.Len())

	ld, err := loader.New(ds, b, 64, 1)
	require.NoError(t, err)

	var sizes []int
	result, err := Run(3, func() error {
		return ld.Run(func(batch loader.Batch) {
			sizes = append(sizes, batch.Size)
		})
	})
	require.NoError(t, err)

	assert.Equal(t, []int{64, 1, 64, 1, 64, 1}, sizes,
		"each of the three passes yields a full batch and a short one")
	assert.Equal(t, 3, result.Iterations)
	assert.Greater(t, result.MeanMs, 0.0)
	assert.InDelta(t, float64(result.Total.Nanoseconds())/1e6/3, result.MeanMs, 1e-9)
}

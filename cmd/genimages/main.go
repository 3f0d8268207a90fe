// genimages writes a synthetic image dataset for the loading benchmark:
// noise images resized to the requested dimensions and encoded as JPEG,
// PNG or WebP.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
)

// Noise is generated once at this size and resized per image, so large
// datasets do not pay the pixel-fill cost per file.
const baseSize = 512

func main() {
	var (
		outputDir = flag.String("output-dir", "", "directory to write the generated images to")
		count     = flag.Int("count", 256, "number of images to generate")
		width     = flag.Int("width", 224, "output image width")
		height    = flag.Int("height", 224, "output image height")
		format    = flag.String("format", "jpeg", "output encoding (jpeg|png|webp)")
		seed      = flag.Int64("seed", 1, "noise seed")
	)
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("output directory is required (-output-dir)")
	}
	if *count <= 0 || *width <= 0 || *height <= 0 {
		log.Fatalf("count and dimensions must be positive (count=%d, %dx%d)", *count, *width, *height)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	for i := 0; i < *count; i++ {
		img := resize.Resize(uint(*width), uint(*height), noiseImage(rng), resize.Bilinear)

		name := filepath.Join(*outputDir, fmt.Sprintf("img-%04d.%s", i, *format))
		if err := writeImage(name, img, *format); err != nil {
			log.Fatalf("failed to write %s: %v", name, err)
		}
	}

	fmt.Printf("Wrote %d %s images (%dx%d) to %s\n", *count, *format, *width, *height, *outputDir)
}

func noiseImage(rng *rand.Rand) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, baseSize, baseSize))
	for y := 0; y < baseSize; y++ {
		for x := 0; x < baseSize; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func writeImage(name string, img image.Image, format string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "png":
		return png.Encode(f, img)
	case "webp":
		return webp.Encode(f, img, &webp.Options{Quality: 80})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

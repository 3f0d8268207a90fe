// imgbench measures end-to-end throughput of a JPEG load + resize +
// color-jitter pipeline across interchangeable backend implementations.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixelbench/go-imgbench/backend"
	"github.com/pixelbench/go-imgbench/benchmark"
	"github.com/pixelbench/go-imgbench/dataset"
	"github.com/pixelbench/go-imgbench/loader"
)

// The resize benchmark variant keeps its historical fixed repetition
// count; only the augmentation variant exposes -num-iterations.
const resizeIterations = 10

func main() {
	var (
		imagesDir  = flag.String("images-dir", "", "path to the images folder")
		outputDir  = flag.String("output-dir", "", "path to the output folder")
		numWorkers = flag.Int("num-workers", 8, "number of workers to load the data")
		batchSize  = flag.Int("batch-size", 64, "batch size of the data loader")
		backendTag = flag.String("backend", backend.TagKorniaCPU,
			fmt.Sprintf("backend to use for the benchmark (%s)", strings.Join(backend.Tags(), "|")))
		iterations = flag.Int("num-iterations", 10,
			"number of full passes to average over (augmentation benchmark only)")
		benchName = flag.String("benchmark", "resize", "benchmark variant to run (resize|augmentation)")
	)
	flag.Parse()

	if *imagesDir == "" {
		log.Fatal("images directory is required (-images-dir)")
	}
	if *outputDir == "" {
		log.Fatal("output directory is required (-output-dir)")
	}

	mode, err := backend.ParseMode(*benchName)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	iters := *iterations
	if mode == backend.ModeResize {
		iters = resizeIterations
	}

	cfg := benchmark.Config{
		ImagesDir:  *imagesDir,
		OutputDir:  *outputDir,
		Workers:    *numWorkers,
		BatchSize:  *batchSize,
		Backend:    *backendTag,
		Iterations: iters,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Unknown backend tags must fail here, before any timing begins.
	b, err := backend.Resolve(cfg.Backend, mode, rng)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ds, err := dataset.New(cfg.ImagesDir, b)
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}

	ld, err := loader.New(ds, b, cfg.BatchSize, cfg.Workers)
	if err != nil {
		log.Fatalf("failed to build loader: %v", err)
	}

	fmt.Printf("Running benchmark for %s backend with %d workers\n", cfg.Backend, cfg.Workers)
	fmt.Printf("Images folder: %s\n", cfg.ImagesDir)
	fmt.Printf("Output folder: %s\n", cfg.OutputDir)
	fmt.Printf("Batch size: %d\n", cfg.BatchSize)
	fmt.Printf("Number of workers: %d\n", cfg.Workers)
	fmt.Printf("Backend: %s\n", cfg.Backend)

	result, err := benchmark.Run(cfg.Iterations, func() error {
		return ld.Run(nil)
	})
	if err != nil {
		log.Fatalf("benchmark failed: %v", err)
	}

	fmt.Printf("Time: %.2f ms\n", result.MeanMs)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Benchmark tool comparing image loading pipeline backends.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -images-dir ./images -output-dir ./out -backend kornia_rs\n",
			filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -images-dir ./images -output-dir ./out -backend opencv -benchmark augmentation\n",
			filepath.Base(os.Args[0]))
	}
}

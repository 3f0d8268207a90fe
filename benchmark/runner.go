// Package benchmark times repeated full passes of the loading pipeline
// and reports the mean per-pass cost.
package benchmark

import (
	"runtime"
	"time"

	"github.com/pkg/errors"
)

// Config is the immutable run configuration, constructed once from CLI
// input.
type Config struct {
	// ImagesDir is the directory holding the *.jpeg benchmark inputs.
	ImagesDir string
	// OutputDir is accepted for interface parity with the original tool;
	// the core logic writes nothing to it.
	OutputDir string
	// Workers is the parallel worker count of the batch driver.
	Workers int
	// BatchSize is the driver's batch size.
	BatchSize int
	// Backend is the backend tag under benchmark.
	Backend string
	// Iterations is the number of full passes to average over.
	Iterations int
}

// Validate rejects configurations that cannot produce a trustworthy
// number. It runs before any timing.
func (c *Config) Validate() error {
	if c.ImagesDir == "" {
		return errors.New("images directory is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.Workers <= 0 {
		return errors.Errorf("worker count must be positive, got %d", c.Workers)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Iterations <= 0 {
		return errors.Errorf("iteration count must be positive, got %d", c.Iterations)
	}
	return nil
}

// MemoryMetrics captures allocator statistics across a run.
type MemoryMetrics struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	SysBytes        uint64
	NumGC           uint32
}

// Result is the aggregate timing of one benchmark run.
type Result struct {
	Iterations int
	Total      time.Duration
	// MeanMs is total wall-clock time divided by the iteration count,
	// in milliseconds.
	MeanMs float64
	Memory MemoryMetrics
}

// Run executes runOnce exactly iterations times back-to-back and measures
// the total elapsed wall-clock time. There is no warm-up pass: the first
// iteration's one-time compilation and cache-population cost is part of
// the reported mean. Any error aborts the run without producing a number.
func Run(iterations int, runOnce func() error) (*Result, error) {
	if iterations <= 0 {
		return nil, errors.Errorf("iteration count must be positive, got %d", iterations)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := runOnce(); err != nil {
			return nil, err
		}
	}
	total := time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	return &Result{
		Iterations: iterations,
		Total:      total,
		MeanMs:     float64(total.Nanoseconds()) / 1e6 / float64(iterations),
		Memory: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
			SysBytes:        endMem.Sys,
			NumGC:           endMem.NumGC - startMem.NumGC,
		},
	}, nil
}

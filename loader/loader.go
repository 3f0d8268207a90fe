// Package loader implements the batch driver: fixed-size contiguous
// batches assembled by a pool of parallel workers, with the active
// variant's batch-level post-processing applied to each assembled batch.
package loader

import (
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/pixelbench/go-imgbench/backend"
	"github.com/pixelbench/go-imgbench/images"
)

// Source is the indexable sample collection the driver iterates.
type Source interface {
	Len() int
	At(i int) (*tensor.Dense, error)
}

// Batch describes one assembled batch of an iteration pass.
type Batch struct {
	// Start is the index of the batch's first sample.
	Start int
	// Size is the number of samples in the batch.
	Size int
	// Samples holds the processed samples in index order.
	Samples []*tensor.Dense
}

// Loader drives full passes over a source. Iteration is sequential and
// unshuffled so batch contents are reproducible across runs.
type Loader struct {
	src       Source
	backend   *backend.Backend
	batchSize int
	workers   int
}

// New validates the driver configuration.
func New(src Source, b *backend.Backend, batchSize, workers int) (*Loader, error) {
	if src == nil {
		return nil, errors.New("loader requires a source")
	}
	if b == nil {
		return nil, errors.New("loader requires a resolved backend")
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	if workers <= 0 {
		return nil, errors.Errorf("worker count must be positive, got %d", workers)
	}
	return &Loader{src: src, backend: b, batchSize: batchSize, workers: workers}, nil
}

// job is one sample assignment handed to the worker pool: process index
// idx and fill the batch slot, signaling the batch's barrier when done.
type job struct {
	idx  int
	slot int
	out  []*tensor.Dense
	errs []error
	done *sync.WaitGroup
}

// Run performs one full pass: every sample is visited exactly once, in
// contiguous batches of the configured size, with the final batch possibly
// short. A fixed pool of workers lives for the whole pass; batch assembly
// blocks until every slot of the current batch is filled, and is the
// driver's only blocking point. onBatch, if non-nil, observes each batch
// after post-processing. The first sample error aborts the pass.
func (l *Loader) Run(onBatch func(Batch)) error {
	n := l.src.Len()

	jobs := make(chan job)
	var pool sync.WaitGroup
	for w := 0; w < l.workers; w++ {
		pool.Add(1)
		go func() {
			defer pool.Done()
			for j := range jobs {
				j.out[j.slot], j.errs[j.slot] = l.src.At(j.idx)
				j.done.Done()
			}
		}()
	}
	defer func() {
		close(jobs)
		pool.Wait()
	}()

	for start := 0; start < n; start += l.batchSize {
		end := start + l.batchSize
		if end > n {
			end = n
		}

		samples, err := assemble(jobs, start, end)
		if err != nil {
			return err
		}

		if l.backend.BatchOp != nil {
			stacked, err := Stack(samples)
			if err != nil {
				return err
			}
			if _, err := l.backend.BatchOp(stacked); err != nil {
				return err
			}
		}

		if onBatch != nil {
			onBatch(Batch{Start: start, Size: end - start, Samples: samples})
		}
	}

	return nil
}

// assemble fans the batch's indices out to the pool and blocks until
// every slot is filled.
func assemble(jobs chan<- job, start, end int) ([]*tensor.Dense, error) {
	out := make([]*tensor.Dense, end-start)
	errs := make([]error, end-start)

	var done sync.WaitGroup
	done.Add(end - start)
	for i := start; i < end; i++ {
		jobs <- job{idx: i, slot: i - start, out: out, errs: errs, done: &done}
	}
	done.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stack collates samples into one [B, 3, H, W] tensor. All samples must
// share a shape; in-pipeline variants require the stacked form for their
// batch ops.
func Stack(samples []*tensor.Dense) (*tensor.Dense, error) {
	if len(samples) == 0 {
		return nil, errors.New("cannot stack an empty batch")
	}

	first := samples[0].Shape()
	if len(first) != 3 || first[0] != images.Channels {
		return nil, errors.Errorf("expected [3, H, W] samples, got %v", first)
	}
	sampleSize := first.TotalSize()

	data := make([]float32, len(samples)*sampleSize)
	for i, s := range samples {
		if !s.Shape().Eq(first) {
			return nil, errors.Errorf("sample %d has shape %v, want %v", i, s.Shape(), first)
		}
		copy(data[i*sampleSize:(i+1)*sampleSize], s.Data().([]float32))
	}

	return tensor.New(
		tensor.WithShape(len(samples), first[0], first[1], first[2]),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	), nil
}

// Package dataset implements the sample source: an ordered, immutable
// collection of image paths that yields processed samples for the active
// backend variant.
package dataset

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/pixelbench/go-imgbench/backend"
)

// Dataset is built once per run and read-only afterwards. Discovery is a
// single non-recursive glob over *.jpeg; filepath.Glob returns paths in
// lexical order, so enumeration is deterministic across platforms.
type Dataset struct {
	root    string
	paths   []string
	backend *backend.Backend
}

// New discovers the *.jpeg files directly under dir.
func New(dir string, b *backend.Backend) (*Dataset, error) {
	if b == nil {
		return nil, errors.New("dataset requires a resolved backend")
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.jpeg"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to enumerate %s", dir)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no *.jpeg files found in %s", dir)
	}

	return &Dataset{root: dir, paths: paths, backend: b}, nil
}

// Len returns the number of discovered images.
func (d *Dataset) Len() int {
	return len(d.paths)
}

// Paths returns a copy of the discovered path list.
func (d *Dataset) Paths() []string {
	out := make([]string, len(d.paths))
	copy(out, d.paths)
	return out
}

// At resolves the path at index i and runs it through the backend's
// transform and, for sample-granularity variants, its augmentor. Decode
// errors propagate untranslated and abort the run.
func (d *Dataset) At(i int) (*tensor.Dense, error) {
	if i < 0 || i >= len(d.paths) {
		return nil, errors.Errorf("index %d out of range [0, %d)", i, len(d.paths))
	}
	return d.backend.Process(d.paths[i])
}

// Package pipeline holds the batch-granularity operations of the
// in-pipeline backend families: compiled resize and jitter graphs plus the
// per-batch device transfer.
package pipeline

import (
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// JITResize resizes stacked [B, C, H, W] batches to a fixed output size by
// running y = L*x*R through a compiled graph, with L and R holding
// precomputed bilinear weights. Graphs are compiled once per input shape
// and cached, so the first batch of a new shape pays the compilation cost
// and later batches reuse the tape.
type JITResize struct {
	outH, outW int

	mu    sync.Mutex
	progs map[[2]int]*resizeProgram
}

type resizeProgram struct {
	x  *gorgonia.Node
	y  *gorgonia.Node
	vm gorgonia.VM
}

// NewJITResize creates a resizer targeting the given output size.
func NewJITResize(outH, outW int) *JITResize {
	return &JITResize{
		outH:  outH,
		outW:  outW,
		progs: make(map[[2]int]*resizeProgram),
	}
}

// Apply resizes every plane of the batch, returning a new
// [B, C, outH, outW] tensor.
func (j *JITResize) Apply(batch *tensor.Dense) (*tensor.Dense, error) {
	shape := batch.Shape()
	if len(shape) != 4 {
		return nil, errors.Errorf("expected [B, C, H, W] batch, got %v", shape)
	}
	b, c, h, w := shape[0], shape[1], shape[2], shape[3]

	j.mu.Lock()
	defer j.mu.Unlock()

	prog, err := j.program(h, w)
	if err != nil {
		return nil, err
	}

	in := batch.Data().([]float32)
	out := make([]float32, b*c*j.outH*j.outW)
	planeIn := h * w
	planeOut := j.outH * j.outW

	for p := 0; p < b*c; p++ {
		xt := tensor.New(
			tensor.WithShape(h, w),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(in[p*planeIn:(p+1)*planeIn]),
		)
		if err := gorgonia.Let(prog.x, xt); err != nil {
			return nil, errors.Wrap(err, "failed to bind resize input")
		}
		if err := prog.vm.RunAll(); err != nil {
			return nil, errors.Wrap(err, "resize graph execution failed")
		}
		copy(out[p*planeOut:(p+1)*planeOut], prog.y.Value().Data().([]float32))
		prog.vm.Reset()
	}

	return tensor.New(
		tensor.WithShape(b, c, j.outH, j.outW),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(out),
	), nil
}

// program returns the compiled graph for an input plane shape, compiling
// and caching it on first use.
func (j *JITResize) program(h, w int) (*resizeProgram, error) {
	key := [2]int{h, w}
	if prog, ok := j.progs[key]; ok {
		return prog, nil
	}

	g := gorgonia.NewGraph()
	l := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(j.outH, h), gorgonia.WithName("l"))
	x := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(h, w), gorgonia.WithName("x"))
	r := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(w, j.outW), gorgonia.WithName("r"))

	lx, err := gorgonia.Mul(l, x)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build resize graph")
	}
	y, err := gorgonia.Mul(lx, r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build resize graph")
	}

	vm := gorgonia.NewTapeMachine(g)
	if err := gorgonia.Let(l, BilinearWeights(j.outH, h, false)); err != nil {
		return nil, errors.Wrap(err, "failed to bind row weights")
	}
	if err := gorgonia.Let(r, BilinearWeights(j.outW, w, true)); err != nil {
		return nil, errors.Wrap(err, "failed to bind column weights")
	}

	prog := &resizeProgram{x: x, y: y, vm: vm}
	j.progs[key] = prog
	return prog, nil
}

// BilinearWeights builds the [dst, src] bilinear interpolation weight
// matrix mapping a source axis of length src onto dst output positions
// (half-pixel centers). Each row sums to 1. When transposed is true the
// [src, dst] matrix is returned instead, for use on the right-hand side.
func BilinearWeights(dst, src int, transposed bool) *tensor.Dense {
	data := make([]float32, dst*src)
	scale := float64(src) / float64(dst)

	at := func(row, col int) *float32 {
		if transposed {
			return &data[col*dst+row]
		}
		return &data[row*src+col]
	}

	for i := 0; i < dst; i++ {
		center := (float64(i)+0.5)*scale - 0.5
		lo := int(center)
		if center < 0 {
			lo = -1
		}
		frac := float32(center - float64(lo))

		c0, c1 := lo, lo+1
		if c0 < 0 {
			c0 = 0
		}
		if c1 > src-1 {
			c1 = src - 1
		}
		*at(i, c0) += 1 - frac
		*at(i, c1) += frac
	}

	if transposed {
		return tensor.New(
			tensor.WithShape(src, dst),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(data),
		)
	}
	return tensor.New(
		tensor.WithShape(dst, src),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)
}

// JITJitter applies y = clamp01(M*x + b) to every sample of a stacked
// batch through a compiled graph, keyed and cached by plane size like
// JITResize.
type JITJitter struct {
	mu    sync.Mutex
	progs map[int]*jitterProgram
}

type jitterProgram struct {
	m  *gorgonia.Node
	x  *gorgonia.Node
	b  *gorgonia.Node
	y  *gorgonia.Node
	vm gorgonia.VM
}

// NewJITJitter creates an empty jitter program cache.
func NewJITJitter() *JITJitter {
	return &JITJitter{progs: make(map[int]*jitterProgram)}
}

// Apply runs the color matrix and offset over each sample of a
// [B, 3, H, W] batch, returning a new batch of the same shape clamped to
// [0, 1].
func (j *JITJitter) Apply(batch *tensor.Dense, m [9]float32, offset float32) (*tensor.Dense, error) {
	shape := batch.Shape()
	if len(shape) != 4 || shape[1] != 3 {
		return nil, errors.Errorf("expected [B, 3, H, W] batch, got %v", shape)
	}
	b, n := shape[0], shape[2]*shape[3]

	j.mu.Lock()
	defer j.mu.Unlock()

	prog, err := j.program(n)
	if err != nil {
		return nil, err
	}

	md := tensor.New(
		tensor.WithShape(3, 3),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(append([]float32(nil), m[:]...)),
	)
	if err := gorgonia.Let(prog.m, md); err != nil {
		return nil, errors.Wrap(err, "failed to bind color matrix")
	}
	if err := gorgonia.Let(prog.b, offset); err != nil {
		return nil, errors.Wrap(err, "failed to bind offset")
	}

	in := batch.Data().([]float32)
	out := make([]float32, len(in))
	sampleSize := 3 * n

	for s := 0; s < b; s++ {
		xt := tensor.New(
			tensor.WithShape(3, n),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(in[s*sampleSize:(s+1)*sampleSize]),
		)
		if err := gorgonia.Let(prog.x, xt); err != nil {
			return nil, errors.Wrap(err, "failed to bind jitter input")
		}
		if err := prog.vm.RunAll(); err != nil {
			return nil, errors.Wrap(err, "jitter graph execution failed")
		}
		copy(out[s*sampleSize:(s+1)*sampleSize], prog.y.Value().Data().([]float32))
		prog.vm.Reset()
	}

	return tensor.New(
		tensor.WithShape(shape[0], shape[1], shape[2], shape[3]),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(out),
	), nil
}

func (j *JITJitter) program(n int) (*jitterProgram, error) {
	if prog, ok := j.progs[n]; ok {
		return prog, nil
	}

	g := gorgonia.NewGraph()
	m := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(3, 3), gorgonia.WithName("m"))
	x := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(3, n), gorgonia.WithName("x"))
	b := gorgonia.NewScalar(g, tensor.Float32, gorgonia.WithName("b"))
	one := gorgonia.NewScalar(g, tensor.Float32, gorgonia.WithName("one"))

	y, err := buildClampedAffine(m, x, b, one)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build jitter graph")
	}

	vm := gorgonia.NewTapeMachine(g)
	if err := gorgonia.Let(one, float32(1)); err != nil {
		return nil, errors.Wrap(err, "failed to bind constant")
	}

	prog := &jitterProgram{m: m, x: x, b: b, y: y, vm: vm}
	j.progs[n] = prog
	return prog, nil
}

// buildClampedAffine assembles clamp01(m*x + b) from primitive ops.
// clamp01(z) is expressed as 1 - relu(1 - relu(z)).
func buildClampedAffine(m, x, b, one *gorgonia.Node) (*gorgonia.Node, error) {
	mx, err := gorgonia.Mul(m, x)
	if err != nil {
		return nil, err
	}
	z, err := gorgonia.Add(mx, b)
	if err != nil {
		return nil, err
	}
	lo, err := gorgonia.Rectify(z)
	if err != nil {
		return nil, err
	}
	inv, err := gorgonia.Sub(one, lo)
	if err != nil {
		return nil, err
	}
	hi, err := gorgonia.Rectify(inv)
	if err != nil {
		return nil, err
	}
	return gorgonia.Sub(one, hi)
}

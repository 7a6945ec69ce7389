// Package array runs the digit network on the CPU with plain float32 slices.
package array

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/weights"
)

// parallelThreshold is the number of multiply-adds in a layer above which
// its rows are split across workers.
const parallelThreshold = 64 * 1024

// Backend evaluates an MLP on the CPU. It never mutates the network and is
// safe for concurrent use.
type Backend struct {
	mlp     *weights.MLP
	workers int
}

var _ model.Backend = (*Backend)(nil)

func New(mlp *weights.MLP) (*Backend, error) {
	if err := mlp.Validate(mlp.InputSize(), mlp.OutputSize()); err != nil {
		return nil, fmt.Errorf("array: %w", err)
	}

	return &Backend{
		mlp:     mlp,
		workers: workerCount(),
	}, nil
}

func workerCount() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (b *Backend) Name() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	simd := "scalar"
	if cpuid.CPU.Supports(cpuid.AVX2) {
		simd = "avx2"
	} else if cpuid.CPU.Supports(cpuid.ASIMD) {
		simd = "neon"
	}
	return fmt.Sprintf("array (%s, %d workers, %s)", brand, b.workers, simd)
}

// Forward returns class probabilities for a normalized input.
func (b *Backend) Forward(input []float32) ([]float32, error) {
	if len(input) != b.mlp.InputSize() {
		return nil, fmt.Errorf("%w: array: expected %d inputs, got %d", model.ErrShapeMismatch, b.mlp.InputSize(), len(input))
	}

	x := input
	last := len(b.mlp.Layers) - 1
	for i := range b.mlp.Layers {
		x = b.dense(&b.mlp.Layers[i], x, i != last)
	}

	return model.Softmax(x), nil
}

// dense computes W·x + b for one layer, optionally followed by ReLU.
func (b *Backend) dense(l *weights.Dense, x []float32, relu bool) []float32 {
	out := make([]float32, l.Out)

	rows := func(from, to int) {
		for j := from; j < to; j++ {
			row := l.Weight[j*l.In : (j+1)*l.In]
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * x[k]
			}
			if relu && sum < 0 {
				sum = 0
			}
			out[j] = sum
		}
	}

	if b.workers <= 1 || l.In*l.Out < parallelThreshold {
		rows(0, l.Out)
		return out
	}

	chunk := (l.Out + b.workers - 1) / b.workers
	chunks := (l.Out + chunk - 1) / chunk
	forEach(chunks, b.workers, func(c int) {
		from := c * chunk
		to := from + chunk
		if to > l.Out {
			to = l.Out
		}
		rows(from, to)
	})

	return out
}

//go:build !windows

package webgpu

import (
	"fmt"
	"runtime"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/weights"
)

// Backend is a placeholder on platforms without the native WebGPU build.
type Backend struct{}

var _ model.Backend = (*Backend)(nil)

func New(*weights.MLP) (*Backend, error) {
	return nil, fmt.Errorf("%w: webgpu is not built for %s", model.ErrBackendUnavailable, runtime.GOOS)
}

func (b *Backend) Name() string {
	return "webgpu"
}

func (b *Backend) Forward([]float32) ([]float32, error) {
	return nil, fmt.Errorf("%w: webgpu is not built for %s", model.ErrBackendUnavailable, runtime.GOOS)
}

func (b *Backend) Close() error {
	return nil
}

func IsAvailable() bool {
	return false
}

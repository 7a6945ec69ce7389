// Package backend constructs the model.Backend selected by configuration.
package backend

import (
	"fmt"

	"github.com/Brownie44l1/digit-api/internal/backend/array"
	"github.com/Brownie44l1/digit-api/internal/backend/onnx"
	"github.com/Brownie44l1/digit-api/internal/backend/webgpu"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/preprocess"
	"github.com/Brownie44l1/digit-api/internal/weights"
)

type Config struct {
	Kind model.Kind
	// WeightsPath is the safetensors file used by the array and webgpu
	// backends.
	WeightsPath string
	ONNX        onnx.Options
}

// Open builds the backend named by cfg.Kind.
func Open(cfg Config) (model.Backend, error) {
	switch cfg.Kind {
	case model.KindArray:
		mlp, err := weights.OpenMLP(cfg.WeightsPath, preprocess.TensorLen, model.NumClasses)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
		}
		b, err := array.New(mlp)
		if err != nil {
			return nil, err
		}
		return b, nil

	case model.KindWebGPU:
		mlp, err := weights.OpenMLP(cfg.WeightsPath, preprocess.TensorLen, model.NumClasses)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
		}
		b, err := webgpu.New(mlp)
		if err != nil {
			return nil, err
		}
		return b, nil

	case model.KindONNX:
		b, err := onnx.New(cfg.ONNX)
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Kind)
	}
}

// Unavailable is a Backend whose every forward pass fails with
// model.ErrBackendUnavailable. It stands in for an engine that could not be
// started so the service keeps running and reports the failure per request.
type Unavailable struct {
	Kind   model.Kind
	Reason error
}

var _ model.Backend = Unavailable{}

func (u Unavailable) Name() string {
	return string(u.Kind) + " (unavailable)"
}

func (u Unavailable) Forward([]float32) ([]float32, error) {
	if u.Reason != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrBackendUnavailable, u.Kind, u.Reason)
	}
	return nil, fmt.Errorf("%w: %s", model.ErrBackendUnavailable, u.Kind)
}

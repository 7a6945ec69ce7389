package model

import "fmt"

// Backend is a numeric engine able to run the digit network's forward pass.
//
// Forward takes a normalized 1×28×28 input, flattened row-major, and returns
// one probability per class. Implementations must be safe for concurrent use.
type Backend interface {
	Forward(input []float32) ([]float32, error)
	Name() string
}

// Kind identifies a backend implementation.
type Kind string

const (
	KindArray  Kind = "array"
	KindONNX   Kind = "onnx"
	KindWebGPU Kind = "webgpu"
)

// Kinds lists every known backend kind.
var Kinds = []Kind{KindArray, KindONNX, KindWebGPU}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (want one of %v)", s, Kinds)
}

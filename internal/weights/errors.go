package weights

import "errors"

var (
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrOutOfBounds      = errors.New("tensor extends beyond data section")
	ErrMissingTensor    = errors.New("missing tensor")
	ErrLayerShape       = errors.New("layer shape mismatch")
)

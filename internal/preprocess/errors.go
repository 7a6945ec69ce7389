package preprocess

import "errors"

var (
	// ErrShapeMismatch is returned when a pixel buffer or tensor does not have
	// the length its declared dimensions require.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyInput is returned when the raster holds no ink pixels.
	ErrEmptyInput = errors.New("empty input")
)

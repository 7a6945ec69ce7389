package model

import (
	"errors"

	"github.com/Brownie44l1/digit-api/internal/preprocess"
)

var (
	// ErrShapeMismatch is shared with the preprocessor so a single errors.Is
	// check covers malformed rasters and malformed tensors.
	ErrShapeMismatch = preprocess.ErrShapeMismatch

	// ErrBackendUnavailable is returned when the selected backend cannot run
	// a forward pass. It is never papered over with another backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNumericAnomaly is returned when a forward pass produces a vector of
	// the wrong length or containing NaN or Inf.
	ErrNumericAnomaly = errors.New("numeric anomaly")
)

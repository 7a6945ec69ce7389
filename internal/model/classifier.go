// Package model dispatches preprocessed digit tensors to a numeric backend
// and ranks the result.
package model

import (
	"errors"
	"fmt"
	"io"

	"github.com/Brownie44l1/digit-api/internal/preprocess"
)

// Classifier runs one backend, chosen at construction and never replaced.
// It holds no mutable state and may be shared between goroutines.
type Classifier struct {
	kind    Kind
	backend Backend
	labels  []string
}

func NewClassifier(kind Kind, backend Backend, labels []string) (*Classifier, error) {
	if len(labels) != NumClasses {
		return nil, fmt.Errorf("expected %d labels, got %d", NumClasses, len(labels))
	}

	return &Classifier{
		kind:    kind,
		backend: backend,
		labels:  append([]string(nil), labels...),
	}, nil
}

func (c *Classifier) Kind() Kind {
	return c.kind
}

// BackendName returns a human-readable name of the active engine.
func (c *Classifier) BackendName() string {
	if c.backend == nil {
		return string(c.kind) + " (unavailable)"
	}
	return c.backend.Name()
}

// Classify normalizes a TensorLen grayscale tensor, runs it through the
// backend and returns the TopK classes.
func (c *Classifier) Classify(t []float32) (Result, error) {
	if len(t) != preprocess.TensorLen {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrShapeMismatch, preprocess.TensorLen, len(t))
	}
	if c.backend == nil {
		return nil, fmt.Errorf("%w: %s backend is not wired", ErrBackendUnavailable, c.kind)
	}

	out, err := c.backend.Forward(Normalize(t))
	switch {
	case err == nil:
	case errors.Is(err, ErrShapeMismatch), errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrNumericAnomaly):
		return nil, fmt.Errorf("%s forward pass: %w", c.kind, err)
	default:
		// A forward pass that fails for any other reason leaves the engine
		// unable to answer.
		return nil, fmt.Errorf("%w: %s forward pass: %w", ErrBackendUnavailable, c.kind, err)
	}

	if err := checkOutput(out); err != nil {
		return nil, err
	}

	return Rank(out, c.labels, TopK), nil
}

// Close releases the backend's resources if it holds any.
func (c *Classifier) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

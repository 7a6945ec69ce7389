package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/digit-api/internal/model"
)

func TestNew_MissingLibrary(t *testing.T) {
	if os.Getenv("ONNXRUNTIME_LIB") != "" {
		t.Skip("onnxruntime is configured on this host")
	}

	_, err := New(Options{
		ModelPath:   filepath.Join(t.TempDir(), "mnist.onnx"),
		LibraryPath: filepath.Join(t.TempDir(), "libonnxruntime.so"),
		Metadata:    model.DefaultMetadata(),
	})
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)
}

// TestForward_Model runs a real model when ONNXRUNTIME_LIB and
// ONNX_MODEL_PATH point at a runtime library and an MNIST model.
func TestForward_Model(t *testing.T) {
	lib, path := os.Getenv("ONNXRUNTIME_LIB"), os.Getenv("ONNX_MODEL_PATH")
	if lib == "" || path == "" {
		t.Skip("ONNXRUNTIME_LIB and ONNX_MODEL_PATH not set")
	}

	meta := model.DefaultMetadata()
	meta.Logits = true
	b, err := New(Options{ModelPath: path, LibraryPath: lib, Metadata: meta})
	require.NoError(t, err)
	defer b.Close()

	out, err := b.Forward(make([]float32, 784))
	require.NoError(t, err)
	require.Len(t, out, model.NumClasses)

	var sum float32
	for _, v := range out {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-4)

	_, err = b.Forward(make([]float32, 3))
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

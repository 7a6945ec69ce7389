package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/digit-api/internal/model"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "BACKEND", "MODEL_DIR", "WEIGHTS_PATH", "ONNX_MODEL_PATH", "METADATA_PATH",
		"ONNXRUNTIME_LIB", "HISTORY_DB", "HISTORY_LIMIT", "MAX_UPLOAD_SIDE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, model.KindArray, cfg.Backend)
	assert.Equal(t, filepath.Join("models", "mnist_mlp.safetensors"), cfg.WeightsPath)
	assert.Equal(t, filepath.Join("models", "mnist.onnx"), cfg.ONNXPath)
	assert.Equal(t, filepath.Join("models", "model_metadata.json"), cfg.MetadataPath)
	assert.Empty(t, cfg.HistoryDB)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 512, cfg.MaxUploadSide)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BACKEND", "onnx")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("WEIGHTS_PATH", "/tmp/w.safetensors")
	t.Setenv("HISTORY_DB", "/var/lib/digits/history.db")
	t.Setenv("HISTORY_LIMIT", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, model.KindONNX, cfg.Backend)
	assert.Equal(t, "/tmp/w.safetensors", cfg.WeightsPath)
	assert.Equal(t, filepath.Join("/srv/models", "mnist.onnx"), cfg.ONNXPath)
	assert.Equal(t, "/var/lib/digits/history.db", cfg.HistoryDB)
	assert.Equal(t, 7, cfg.HistoryLimit)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND", "cuda")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("HISTORY_LIMIT", "many")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("MAX_UPLOAD_SIDE", "-1")
	_, err = Load()
	assert.Error(t, err)
}

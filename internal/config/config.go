package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Brownie44l1/digit-api/internal/model"
)

type Config struct {
	Port    string
	Backend model.Kind

	ModelDir     string
	WeightsPath  string
	ONNXPath     string
	MetadataPath string
	ONNXLibrary  string

	// HistoryDB is the bolt file for prediction history; empty disables it.
	HistoryDB    string
	HistoryLimit int

	// MaxUploadSide bounds the longer side of uploaded images before
	// preprocessing.
	MaxUploadSide int
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("env %s: want a positive integer, got %q", k, v)
	}
	return n, nil
}

func Load() (*Config, error) {
	kind, err := model.ParseKind(getEnv("BACKEND", string(model.KindArray)))
	if err != nil {
		return nil, fmt.Errorf("env BACKEND: %w", err)
	}

	historyLimit, err := getEnvInt("HISTORY_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	maxUploadSide, err := getEnvInt("MAX_UPLOAD_SIDE", 512)
	if err != nil {
		return nil, err
	}

	modelDir := getEnv("MODEL_DIR", "models")

	return &Config{
		Port:    getEnv("PORT", "8080"),
		Backend: kind,

		ModelDir:     modelDir,
		WeightsPath:  getEnv("WEIGHTS_PATH", filepath.Join(modelDir, "mnist_mlp.safetensors")),
		ONNXPath:     getEnv("ONNX_MODEL_PATH", filepath.Join(modelDir, "mnist.onnx")),
		MetadataPath: getEnv("METADATA_PATH", filepath.Join(modelDir, "model_metadata.json")),
		ONNXLibrary:  os.Getenv("ONNXRUNTIME_LIB"),

		HistoryDB:     os.Getenv("HISTORY_DB"),
		HistoryLimit:  historyLimit,
		MaxUploadSide: maxUploadSide,
	}, nil
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Brownie44l1/digit-api/internal/preprocess"
)

// NumClasses is the number of digit classes the classifier distinguishes.
const NumClasses = 10

// DefaultMetadata describes a 1×1×28×28 → 1×10 digit model labelled "0".."9".
func DefaultMetadata() Metadata {
	classes := make([]string, NumClasses)
	for i := range classes {
		classes[i] = strconv.Itoa(i)
	}
	return Metadata{
		InputShape:  []int64{1, 1, preprocess.Size, preprocess.Size},
		OutputShape: []int64{1, NumClasses},
		Classes:     classes,
		ImageSize:   preprocess.Size,
	}
}

// LoadMetadata reads a metadata JSON file. A missing file yields
// DefaultMetadata; fields absent from the file keep their defaults.
func LoadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()

	metaFile, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if len(metadata.Classes) != NumClasses {
		return Metadata{}, fmt.Errorf("metadata lists %d classes, expected %d", len(metadata.Classes), NumClasses)
	}

	return metadata, nil
}

package model

import (
	"fmt"
	"math"
	"sort"
)

// TopK is the number of predictions returned per classification.
const TopK = 5

// Rank pairs each score with its class index and label, orders them by
// descending score with ties going to the lower index, and keeps the first k.
// labels must have one entry per score.
func Rank(scores []float32, labels []string, k int) Result {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}

	result := make(Result, k)
	for i, c := range idx[:k] {
		result[i] = Prediction{
			Index:       c,
			Label:       labels[c],
			Probability: scores[c],
		}
	}
	return result
}

// Softmax converts raw scores to probabilities.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// checkOutput rejects vectors that cannot be ranked meaningfully.
func checkOutput(out []float32) error {
	if len(out) != NumClasses {
		return fmt.Errorf("%w: backend returned %d values, expected %d", ErrNumericAnomaly, len(out), NumClasses)
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: output[%d] = %v", ErrNumericAnomaly, i, v)
		}
	}
	return nil
}

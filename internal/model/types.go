package model

// Metadata describes a model artifact on disk.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	// Logits is set when the model emits raw scores instead of probabilities.
	Logits bool `json:"logits"`
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// CanvasRequest carries a drawing-surface snapshot. Pixels is RGBA and is
// base64 encoded on the wire.
type CanvasRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

type Prediction struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Result is a ranked list of predictions, best first.
type Result []Prediction

type PredictionResponse struct {
	Class       string       `json:"class"`
	Confidence  float32      `json:"confidence"`
	Predictions []Prediction `json:"predictions"`
	Backend     string       `json:"backend"`
}

// NewPredictionResponse summarizes r under the top-ranked class.
func NewPredictionResponse(r Result, backend string) *PredictionResponse {
	resp := &PredictionResponse{
		Predictions: r,
		Backend:     backend,
	}
	if len(r) > 0 {
		resp.Class = r[0].Label
		resp.Confidence = r[0].Probability
	}
	return resp
}

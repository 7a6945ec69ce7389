package model

// Dataset statistics the network was trained with. Changing them breaks
// numerical parity with every reference model.
const (
	Mean = 0.1307
	Std  = 0.3081
)

// Normalize maps raw [0, 255] intensities to ((x/255) - Mean) / Std.
func Normalize(t []float32) []float32 {
	out := make([]float32, len(t))
	for i, x := range t {
		out[i] = ((x / 255) - Mean) / Std
	}
	return out
}

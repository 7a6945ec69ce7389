package preprocess

// Tensor is a row-major grayscale image with values in [0, 255].
type Tensor []float32

// TensorLen is the number of values in a preprocessed Tensor.
const TensorLen = Size * Size

// ToGray converts each pixel to luminosity and inverts it, so strokes drawn
// in white on a dark canvas end up high and the background ends up low.
// Alpha is ignored.
func ToGray(r Raster) Tensor {
	out := make(Tensor, 0, r.Width*r.Height)

	for i := 0; i+3 < len(r.Pix); i += 4 {
		gray := 0.299*float64(r.Pix[i]) + 0.587*float64(r.Pix[i+1]) + 0.114*float64(r.Pix[i+2])
		v := 255 - gray
		// weights sum to 1, clamp only absorbs rounding
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out = append(out, float32(v))
	}

	return out
}

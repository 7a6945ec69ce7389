// Package preprocess turns a raw RGBA canvas snapshot into the 28×28
// grayscale tensor the digit classifier expects.
package preprocess

import "fmt"

// Preprocess crops r to its ink, scales the crop to Size×Size and converts
// it to an inverted grayscale Tensor of TensorLen values.
//
// It fails with ErrShapeMismatch when the pixel buffer does not match the
// declared dimensions and with ErrEmptyInput when nothing was drawn.
func Preprocess(r Raster) (Tensor, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	box := FindBounds(r)
	if box.Empty() {
		return nil, fmt.Errorf("%w: no ink in %dx%d raster", ErrEmptyInput, r.Width, r.Height)
	}

	cropped, err := Crop(r, box)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}

	scaled, err := Scale(cropped)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}

	return ToGray(scaled), nil
}

package preprocess

import "fmt"

// Size is the side length of the square model input.
const Size = 28

// Scale resamples r to Size×Size.
func Scale(r Raster) (Raster, error) {
	return ScaleTo(r, Size, Size)
}

// ScaleTo resamples r to width×height with nearest-neighbour sampling.
// Destination pixel (x, y) reads source pixel (x*srcW/width, y*srcH/height),
// using integer division, and copies all four channels unchanged.
func ScaleTo(r Raster, width, height int) (Raster, error) {
	if err := r.Validate(); err != nil {
		return Raster{}, err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Raster{}, fmt.Errorf("%w: cannot scale %dx%d raster", ErrEmptyInput, r.Width, r.Height)
	}
	if width <= 0 || height <= 0 {
		return Raster{}, fmt.Errorf("%w: invalid target size %dx%d", ErrShapeMismatch, width, height)
	}

	out := Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}

	for y := 0; y < height; y++ {
		srcY := y * r.Height / height
		for x := 0; x < width; x++ {
			srcX := x * r.Width / width
			src := r.offset(srcX, srcY)
			dst := out.offset(x, y)
			copy(out.Pix[dst:dst+4], r.Pix[src:src+4])
		}
	}

	return out, nil
}

package preprocess

import (
	"fmt"
	"image"
	"image/draw"
	"math"
)

// Raster is an RGBA pixel buffer as captured from a drawing surface.
// Pixels are non-premultiplied, row-major, four bytes per pixel.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewRaster(width, height int, pix []uint8) (Raster, error) {
	if width < 0 || height < 0 {
		return Raster{}, fmt.Errorf("%w: negative dimensions %dx%d", ErrShapeMismatch, width, height)
	}
	if width != 0 && height > math.MaxInt/4/width {
		return Raster{}, fmt.Errorf("%w: dimensions %dx%d overflow", ErrShapeMismatch, width, height)
	}
	if len(pix) != width*height*4 {
		return Raster{}, fmt.Errorf("%w: expected %d bytes for %dx%d RGBA, got %d",
			ErrShapeMismatch, width*height*4, width, height, len(pix))
	}
	return Raster{Width: width, Height: height, Pix: pix}, nil
}

// Validate reports whether the buffer length matches the declared dimensions.
func (r Raster) Validate() error {
	_, err := NewRaster(r.Width, r.Height, r.Pix)
	return err
}

func (r Raster) offset(x, y int) int {
	return (y*r.Width + x) * 4
}

// FromImage copies any decoded image into a Raster anchored at (0,0).
func FromImage(img image.Image) Raster {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	return Raster{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

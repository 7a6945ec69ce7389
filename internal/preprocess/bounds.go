package preprocess

import "fmt"

// BoundingBox is an inclusive pixel rectangle. A zero-area box means the
// raster had no ink.
type BoundingBox struct {
	MinX   int
	MinY   int
	Width  int
	Height int
}

func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// FindBounds returns the smallest box enclosing every pixel with a non-zero
// alpha channel. When there is no such pixel the zero BoundingBox is returned.
// r must satisfy Validate.
func FindBounds(r Raster) BoundingBox {
	minX, minY := r.Width, r.Height
	maxX, maxY := -1, -1

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if r.Pix[r.offset(x, y)+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < 0 {
		return BoundingBox{}
	}

	return BoundingBox{
		MinX:   minX,
		MinY:   minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

// Crop copies the pixels inside box into a new Raster.
func Crop(r Raster, box BoundingBox) (Raster, error) {
	if err := r.Validate(); err != nil {
		return Raster{}, err
	}
	if box.MinX < 0 || box.MinY < 0 || box.Width < 0 || box.Height < 0 ||
		box.MinX+box.Width > r.Width || box.MinY+box.Height > r.Height {
		return Raster{}, fmt.Errorf("%w: box %+v outside %dx%d raster", ErrShapeMismatch, box, r.Width, r.Height)
	}

	out := Raster{
		Width:  box.Width,
		Height: box.Height,
		Pix:    make([]uint8, box.Width*box.Height*4),
	}

	rowBytes := box.Width * 4
	for y := 0; y < box.Height; y++ {
		src := r.offset(box.MinX, box.MinY+y)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], r.Pix[src:src+rowBytes])
	}

	return out, nil
}

// Package finish turns a perturbed canvas into the canonical output
// raster: cropped to its ink, padded square and resized.
package finish

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/crimson-sun/sigflow/internal/raster"
)

const (
	// Size is the side of every canonical output raster.
	Size = 128

	// margin is added to the longer side of the crop before squaring.
	margin = 20
)

// To128 finishes img to Size×Size.
func To128(img *image.Gray) *image.Gray {
	return Square(img, Size)
}

// Square crops img to its ink bounding box (the whole canvas when there is
// no ink), centres the crop on a blank square whose side is the longer
// crop side plus a margin, and resizes that square to side×side.
func Square(img *image.Gray, side int) *image.Gray {
	crop := img.Bounds()
	if box, ok := raster.InkBounds(img); ok {
		crop = box
	}

	n := max(crop.Dx(), crop.Dy()) + margin
	square := raster.Blank(n, n)
	off := image.Pt((n-crop.Dx())/2, (n-crop.Dy())/2)
	draw.Draw(square, image.Rectangle{Min: off, Max: off.Add(crop.Size())}, img, crop.Min, draw.Src)

	return Resize(square, side, side)
}

// Resize scales img to w×h with bilinear interpolation.
func Resize(img *image.Gray, w, h int) *image.Gray {
	out := raster.Blank(w, h)
	xdraw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out
}

// Package raster holds the single-channel canvas helpers shared by the
// renderer, the perturbation stages and the finisher. A raster is an
// *image.Gray with background 0 and ink 255.
package raster

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

const (
	Background uint8 = 0
	Ink        uint8 = 255
)

// circleK is the cubic Bézier control distance for a quarter circle.
const circleK = 0.5522847498

// Blank returns an all-background canvas of the given size.
func Blank(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// Clone returns a copy of img rebased to the origin.
func Clone(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
	}
	return out
}

// InkBounds returns the smallest rectangle enclosing every non-zero pixel.
// ok is false when the canvas carries no ink.
func InkBounds(img *image.Gray) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for i, v := range row[:b.Dx()] {
			if v == Background {
				continue
			}
			x := b.Min.X + i
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// IsBlank reports whether img has no ink at all.
func IsBlank(img *image.Gray) bool {
	_, ok := InkBounds(img)
	return !ok
}

// HLine paints a horizontal ink line from x0 to x1 inclusive on row y,
// thickness rows tall. Anything outside the canvas is clipped.
func HLine(img *image.Gray, x0, x1, y, thickness int) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if thickness < 1 {
		thickness = 1
	}
	r := image.Rect(x0, y, x1+1, y+thickness).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for yy := r.Min.Y; yy < r.Max.Y; yy++ {
		row := img.Pix[img.PixOffset(r.Min.X, yy):]
		for i := 0; i < r.Dx(); i++ {
			row[i] = Ink
		}
	}
}

// FillCircle paints a filled, anti-aliased ink disc of radius r centred on
// pixel (cx, cy).
func FillCircle(img *image.Gray, cx, cy, r int) {
	if r < 1 {
		r = 1
	}
	box := image.Rect(cx-r-1, cy-r-1, cx+r+2, cy+r+2).Intersect(img.Bounds())
	if box.Empty() {
		return
	}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.DrawOp = draw.Over

	ox := float32(cx-box.Min.X) + 0.5
	oy := float32(cy-box.Min.Y) + 0.5
	rad := float32(r) + 0.5
	k := rad * circleK

	z.MoveTo(ox+rad, oy)
	z.CubeTo(ox+rad, oy+k, ox+k, oy+rad, ox, oy+rad)
	z.CubeTo(ox-k, oy+rad, ox-rad, oy+k, ox-rad, oy)
	z.CubeTo(ox-rad, oy-k, ox-k, oy-rad, ox, oy-rad)
	z.CubeTo(ox+k, oy-rad, ox+rad, oy-k, ox+rad, oy)
	z.ClosePath()

	z.Draw(img, box, image.NewUniform(color.Gray{Y: Ink}), image.Point{})
}

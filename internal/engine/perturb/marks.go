package perturb

import (
	"image"

	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/raster"
)

// Distance kept between a mark and the right/bottom canvas edge.
const edgeMargin = 4

const (
	// underlineSkipProb is the chance the underline stage draws nothing.
	underlineSkipProb = 0.90
	secondLineProb    = 0.35
	endDotProb        = 0.70
)

// Flourish places a small dot below and to the right of the ink.
func Flourish(img *image.Gray, rng random.Source) *image.Gray {
	box, ok := raster.InkBounds(img)
	if !ok {
		return img
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x := min(w-edgeMargin, box.Max.X+random.Between(rng, 5, 15))
	y := min(h-edgeMargin, box.Max.Y+random.Between(rng, 10, 18))
	raster.FillCircle(img, x, y, random.OneOf(rng, 1, 2))
	return img
}

// Underline draws a line below the ink, optionally a shorter second line
// and an end dot. Most calls draw nothing; see underlineSkipProb.
func Underline(img *image.Gray, rng random.Source) *image.Gray {
	box, ok := raster.InkBounds(img)
	if !ok {
		return img
	}
	if random.Chance(rng, underlineSkipProb) {
		return img
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	lineY := min(h-edgeMargin, box.Max.Y+random.Between(rng, 10, 18))
	startX := max(3, box.Min.X-random.Between(rng, 5, 20))
	endX := min(w-6, box.Max.X+random.Between(rng, 18, 40))
	thickness := random.OneOf(rng, 1, 2)
	raster.HLine(img, startX, endX, lineY, thickness)

	if random.Chance(rng, secondLineProb) {
		y2 := min(h-3, lineY+random.Between(rng, 6, 10))
		x0 := startX + random.Between(rng, 8, 20)
		x1 := endX - random.Between(rng, 10, 25)
		raster.HLine(img, x0, x1, y2, thickness)
	}

	if random.Chance(rng, endDotProb) {
		r := random.OneOf(rng, 1, 2)
		x := min(w-edgeMargin, endX+random.Between(rng, 4, 12))
		y := min(h-edgeMargin, lineY+random.Between(rng, -1, 1))
		raster.FillCircle(img, x, y, r)
	}
	return img
}

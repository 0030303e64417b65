package perturb

import (
	"image"
	"math"

	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/raster"
)

const (
	maxShear = 0.15
	maxTX    = 20.0
	maxTY    = 10.0

	minPeriod = 60.0
	maxPeriod = 120.0

	blurProb    = 0.7
	minContrast = 1.0
	maxContrast = 1.3
)

// EmphasizeInitial thickens every stroke by one pixel half of the time.
func EmphasizeInitial(img *image.Gray, rng random.Source) *image.Gray {
	if random.OneOf(rng, 1, 2) == 1 {
		return img
	}
	return Dilate(img)
}

// Dilate grows ink with a 2×2 neighbourhood anchored at its bottom-right
// cell: each pixel takes the max of itself and its left, upper and
// upper-left neighbours.
func Dilate(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := raster.Blank(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := img.Pix[y*img.Stride+x]
			if x > 0 {
				v = max(v, img.Pix[y*img.Stride+x-1])
			}
			if y > 0 {
				v = max(v, img.Pix[(y-1)*img.Stride+x])
				if x > 0 {
					v = max(v, img.Pix[(y-1)*img.Stride+x-1])
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

// Affine applies a random horizontal shear plus translation.
func Affine(img *image.Gray, rng random.Source) *image.Gray {
	shear := random.Uniform(rng, -maxShear, maxShear)
	tx := random.Uniform(rng, -maxTX, maxTX)
	ty := random.Uniform(rng, -maxTY, maxTY)
	return Warp(img, shear, tx, ty)
}

// Warp maps source (x, y) to (x + shear*y + tx, y + ty) with bilinear
// sampling. Destination pixels whose preimage falls outside the source
// are background.
func Warp(img *image.Gray, shear, tx, ty float64) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := raster.Blank(w, h)
	for y := 0; y < h; y++ {
		sy := float64(y) - ty
		for x := 0; x < w; x++ {
			sx := float64(x) - tx - shear*sy
			out.Pix[y*out.Stride+x] = bilinear(img, sx, sy)
		}
	}
	return out
}

func bilinear(img *image.Gray, x, y float64) uint8 {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	v := (1-fx)*(1-fy)*at(img, ix, iy) +
		fx*(1-fy)*at(img, ix+1, iy) +
		(1-fx)*fy*at(img, ix, iy+1) +
		fx*fy*at(img, ix+1, iy+1)
	return clamp(v)
}

func at(img *image.Gray, x, y int) float64 {
	if x < 0 || y < 0 || x >= img.Rect.Dx() || y >= img.Rect.Dy() {
		return 0
	}
	return float64(img.Pix[y*img.Stride+x])
}

// Wobble shifts each row circularly by strength*sin(2πy/period), with the
// period drawn once per call.
func Wobble(img *image.Gray, strength float64, rng random.Source) *image.Gray {
	period := random.Uniform(rng, minPeriod, maxPeriod)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := raster.Blank(w, h)
	for y := 0; y < h; y++ {
		shift := int(math.Round(strength * math.Sin(2*math.Pi*float64(y)/period)))
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			dst[mod(x+shift, w)] = v
		}
	}
	return out
}

// Pressure blurs most of the time, then scales every intensity by a
// random contrast factor.
func Pressure(img *image.Gray, rng random.Source) *image.Gray {
	var out *image.Gray
	if random.Chance(rng, blurProb) {
		out = Blur3(img)
	} else {
		out = raster.Clone(img)
	}
	alpha := random.Uniform(rng, minContrast, maxContrast)
	for i, v := range out.Pix {
		out.Pix[i] = clamp(alpha * float64(v))
	}
	return out
}

// Blur3 is a 3×3 Gaussian blur with kernel [1 2 1]/4 per axis and
// mirrored borders.
func Blur3(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			tmp[y*w+x] = 0.25*float64(row[reflect(x-1, w)]) +
				0.5*float64(row[x]) +
				0.25*float64(row[reflect(x+1, w)])
		}
	}
	out := raster.Blank(w, h)
	for y := 0; y < h; y++ {
		up, down := reflect(y-1, h), reflect(y+1, h)
		for x := 0; x < w; x++ {
			v := 0.25*tmp[up*w+x] + 0.5*tmp[y*w+x] + 0.25*tmp[down*w+x]
			out.Pix[y*out.Stride+x] = clamp(v)
		}
	}
	return out
}

// reflect mirrors an out-of-range index without repeating the edge.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

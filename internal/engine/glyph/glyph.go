// Package glyph draws a text form onto a fresh canvas in ink, centred by
// its bounding box.
package glyph

import (
	"image"
	"image/color"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/raster"
)

const (
	DefaultWidth  = 600
	DefaultHeight = 250

	MinFontSize = 70
	MaxFontSize = 110
)

// builtin is the face used when no font file is picked or the picked one
// fails to load.
var builtin = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goitalic.TTF)
})

// Rendered is a freshly drawn canvas and how it was drawn.
type Rendered struct {
	Canvas   *image.Gray
	Size     int  // font size in pixels
	Fallback bool // the requested font could not be loaded
}

// Renderer draws text forms using fonts from a Pool.
type Renderer struct {
	pool   *Pool
	width  int
	height int
}

// NewRenderer creates a renderer producing width×height canvases. Zero
// dimensions select the defaults.
func NewRenderer(pool *Pool, width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if pool == nil {
		pool = NewPool(nil, 0)
	}
	return &Renderer{pool: pool, width: width, height: height}
}

// Pool returns the renderer's font pool.
func (r *Renderer) Pool() *Pool { return r.pool }

// Render draws text with font f at a random size. Empty text yields a
// blank canvas.
func (r *Renderer) Render(text string, f Font, rng random.Source) Rendered {
	size := random.Between(rng, MinFontSize, MaxFontSize)
	out := Rendered{Canvas: raster.Blank(r.width, r.height), Size: size}
	if text == "" {
		return out
	}

	face, fallback := r.face(f, size)
	defer face.Close()
	out.Fallback = fallback

	d := &font.Drawer{
		Dst:  out.Canvas,
		Src:  image.NewUniform(color.Gray{Y: raster.Ink}),
		Face: face,
	}
	bounds, _ := d.BoundString(text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	x := floorHalf(r.width - w)
	y := floorHalf(r.height - h)

	d.Dot = fixed.Point26_6{
		X: fixed.I(x) - bounds.Min.X,
		Y: fixed.I(y) - bounds.Min.Y,
	}
	d.DrawString(text)
	return out
}

// face resolves the face for f at size. fallback reports that f was
// requested but the built-in face had to be used.
func (r *Renderer) face(f Font, size int) (face font.Face, fallback bool) {
	if !f.IsZero() {
		otf, err := r.pool.parse(f)
		if err == nil {
			if face, err = sizedFace(otf, size); err == nil {
				return face, false
			}
		}
		slog.Warn("font load failed, using built-in face", "font", f.Path, "error", err)
		fallback = true
	}

	otf, err := builtin()
	if err == nil {
		if face, err = sizedFace(otf, size); err == nil {
			return face, fallback
		}
	}
	return basicfont.Face7x13, fallback
}

func sizedFace(otf *opentype.Font, size int) (font.Face, error) {
	return opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// floorHalf divides by two rounding toward negative infinity, so text
// wider than the canvas is still centred.
func floorHalf(n int) int {
	if n < 0 {
		return (n - 1) / 2
	}
	return n / 2
}

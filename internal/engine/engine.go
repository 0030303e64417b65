package engine

import (
	"strings"

	"github.com/crimson-sun/sigflow/internal/dataset"
	"github.com/crimson-sun/sigflow/internal/engine/finish"
	"github.com/crimson-sun/sigflow/internal/engine/glyph"
	"github.com/crimson-sun/sigflow/internal/engine/perturb"
	"github.com/crimson-sun/sigflow/internal/engine/variant"
	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/raster"
)

// Engine resolves a name and mode into three signatures, either sampled
// from the reference dataset or rendered procedurally.
type Engine struct {
	index    *dataset.Index
	renderer *glyph.Renderer
}

// New creates an Engine. A nil index behaves as an empty one.
func New(index *dataset.Index, renderer *glyph.Renderer) *Engine {
	if index == nil {
		index = dataset.New(nil)
	}
	if renderer == nil {
		renderer = glyph.NewRenderer(nil, 0, 0)
	}
	return &Engine{index: index, renderer: renderer}
}

// Resolve produces the Result for name under mode. A blank name always
// yields blank procedural rasters. ModeProcedural never consults the
// dataset; the other modes try it first and fall back to rendering.
func (e *Engine) Resolve(name string, mode model.Mode, rng random.Source) model.Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Blank()
	}

	if mode == model.ModeProcedural {
		return e.Procedural(name, rng)
	}

	if paths := e.index.Pick(name, rng); len(paths) == model.SlotCount {
		res := model.Result{Source: model.SourceDataset}
		copy(res.Paths[:], paths)
		return res
	}
	res := e.Procedural(name, rng)
	res.Fallback = true
	return res
}

// Procedural renders, perturbs and finishes one signature per text form.
func (e *Engine) Procedural(name string, rng random.Source) model.Result {
	res := model.Result{Source: model.SourceProcedural}
	for i, text := range variant.Forms(name) {
		f := e.renderer.Pool().Pick(rng)
		drawn := e.renderer.Render(text, f, rng)
		canvas := perturb.Apply(drawn.Canvas, rng)
		res.Slots[i] = model.Slot{
			Raster:       finish.To128(canvas),
			Text:         text,
			Font:         f.Path,
			FontFallback: drawn.Fallback,
		}
	}
	return res
}

// Blank is the result for an empty name: three blank canonical rasters
// with no provenance.
func Blank() model.Result {
	res := model.Result{Source: model.SourceProcedural}
	for i := range res.Slots {
		res.Slots[i].Raster = raster.Blank(finish.Size, finish.Size)
	}
	return res
}

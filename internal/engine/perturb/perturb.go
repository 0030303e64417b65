// Package perturb applies the randomized raster distortions that give a
// rendered text form its handwritten character.
//
// Every stage takes a canvas anchored at the origin and tolerates one with
// no ink at all. Stages that draw mutate the canvas in place; stages that
// resample return a new one.
package perturb

import (
	"image"

	"github.com/crimson-sun/sigflow/internal/random"
)

const (
	flourishProb = 0.75

	minWobble = 2.0
	maxWobble = 6.0
)

// Stage is one step of the chain.
type Stage func(img *image.Gray, rng random.Source) *image.Gray

// Chain returns the stages in the order they are applied.
func Chain() []Stage {
	return []Stage{
		EmphasizeInitial,
		Affine,
		func(img *image.Gray, rng random.Source) *image.Gray {
			return Wobble(img, random.Uniform(rng, minWobble, maxWobble), rng)
		},
		Pressure,
		func(img *image.Gray, rng random.Source) *image.Gray {
			if random.Chance(rng, flourishProb) {
				return Flourish(img, rng)
			}
			return img
		},
		Underline,
	}
}

// Apply runs the full chain over img.
func Apply(img *image.Gray, rng random.Source) *image.Gray {
	for _, stage := range Chain() {
		img = stage(img, rng)
	}
	return img
}

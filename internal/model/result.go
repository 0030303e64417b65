package model

import (
	"image"
	"strings"
)

// SlotCount is the number of signatures produced per request.
const SlotCount = 3

// Source tags how a Result was produced. It is what the audit log records.
type Source string

const (
	SourceDataset    Source = "dataset"
	SourceProcedural Source = "procedural"
)

// Mode is the generation mode a caller asks for.
type Mode string

const (
	ModeDataset    Mode = "dataset"
	ModeProcedural Mode = "procedural"
	ModeHybrid     Mode = "hybrid"
)

// ParseMode normalizes a requested mode. Unknown values become ModeHybrid.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDataset:
		return ModeDataset
	case ModeProcedural:
		return ModeProcedural
	default:
		return ModeHybrid
	}
}

// Slot is one procedurally generated signature with its provenance.
type Slot struct {
	Raster       *image.Gray
	Text         string
	Font         string // font file path, empty when no font file was picked
	FontFallback bool   // Font was picked but could not be loaded
}

// Result is the outcome of mode resolution. Exactly one of Paths
// (SourceDataset) or Slots (SourceProcedural) is populated.
type Result struct {
	Source Source
	Paths  [SlotCount]string
	Slots  [SlotCount]Slot

	// Fallback is set when the dataset was consulted but could not
	// supply the request, so the procedural path produced it instead.
	Fallback bool
}

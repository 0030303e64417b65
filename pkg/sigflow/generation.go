package sigflow

import (
	"time"

	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/pipeline"
)

// Generation describes one Synthesize call in full.
// This is the stable public type; internal representations may change
// without breaking callers.
type Generation struct {
	RequestID string   `json:"request_id"`
	Name      string   `json:"name"`
	Source    string   `json:"source"`             // "dataset" or "procedural"
	Fallback  bool     `json:"fallback,omitempty"` // dataset was asked for but could not serve
	Refs      []string `json:"refs"`
	Samples   []Sample `json:"samples"`
}

// Sample is one of the three artifacts of a Generation.
type Sample struct {
	Index         int    `json:"index"` // 1..3
	Ref           string `json:"ref"`
	File          string `json:"file"`
	SourcePath    string `json:"source_path,omitempty"`    // dataset only
	SourceMissing bool   `json:"source_missing,omitempty"` // blank written in place of an unreadable file
	Text          string `json:"text,omitempty"`           // procedural only
	Font          string `json:"font,omitempty"`           // procedural only
}

// Record is one audit log row.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Index      int       `json:"index"`
	File       string    `json:"file"`
	SourcePath string    `json:"source_path,omitempty"`
	Text       string    `json:"text,omitempty"`
	Font       string    `json:"font,omitempty"`
}

func generationFromPipeline(g pipeline.Generation) Generation {
	out := Generation{
		RequestID: g.RequestID,
		Name:      g.InputName,
		Source:    string(g.Source),
		Fallback:  g.Fallback,
		Refs:      g.Refs(),
		Samples:   make([]Sample, len(g.Artifacts)),
	}
	for i, a := range g.Artifacts {
		rec := g.Records[i]
		out.Samples[i] = Sample{
			Index:         a.Slot,
			Ref:           a.Ref,
			File:          a.Name,
			SourcePath:    rec.SourcePath,
			SourceMissing: a.SourceMissing,
			Text:          rec.TextForm,
			Font:          rec.FontFile,
		}
	}
	return out
}

func recordFromAudit(r model.AuditRecord) Record {
	return Record{
		Timestamp:  r.Timestamp,
		RequestID:  r.RequestID,
		Name:       r.InputName,
		Source:     string(r.Mode),
		Index:      r.SampleIndex,
		File:       r.OutputFile,
		SourcePath: r.SourcePath,
		Text:       r.TextForm,
		Font:       r.FontFile,
	}
}

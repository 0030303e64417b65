package model

import (
	"path/filepath"
	"strconv"
	"time"
)

// AuditTimeLayout is ISO-8601 at second precision, without zone.
const AuditTimeLayout = "2006-01-02T15:04:05"

// AuditColumns is the fixed header of the audit log, in order.
var AuditColumns = []string{
	"timestamp", "request_id", "input_name", "mode",
	"sample_index", "output_file",
	"source_path", // dataset only
	"text_form",   // procedural only
	"font_file",   // procedural only
}

// Artifact is one persisted output raster.
type Artifact struct {
	Slot int    // 1-based
	Name string // sig_{request}_{slot}.png
	Ref  string // relative location handed back to callers

	// SourceMissing is set when a dataset reference could not be read
	// and a blank raster was written in its place.
	SourceMissing bool
}

// AuditRecord is one row of the audit log.
type AuditRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
	InputName   string    `json:"input_name"`
	Mode        Source    `json:"mode"`
	SampleIndex int       `json:"sample_index"`
	OutputFile  string    `json:"output_file"`
	SourcePath  string    `json:"source_path,omitempty"`
	TextForm    string    `json:"text_form,omitempty"`
	FontFile    string    `json:"font_file,omitempty"`
}

// ArtifactName returns the deterministic file name for a request slot.
func ArtifactName(requestID string, slot int) string {
	return "sig_" + requestID + "_" + strconv.Itoa(slot) + ".png"
}

// FontFileName reduces a font path to the base name recorded in the log.
func FontFileName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// Row returns the record in AuditColumns order.
func (r AuditRecord) Row() []string {
	return []string{
		r.Timestamp.Format(AuditTimeLayout),
		r.RequestID,
		r.InputName,
		string(r.Mode),
		strconv.Itoa(r.SampleIndex),
		r.OutputFile,
		r.SourcePath,
		r.TextForm,
		r.FontFile,
	}
}

package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/sigflow/internal/model"
)

func sampleRecord() model.AuditRecord {
	return model.AuditRecord{
		Timestamp:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		RequestID:   "1740821400000",
		InputName:   "Ali Khan",
		Mode:        model.SourceProcedural,
		SampleIndex: 2,
		OutputFile:  "sig_1740821400000_2.png",
		TextForm:    "A. Khan",
		FontFile:    "Caveat.ttf",
	}
}

func TestWriteEmitsOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	o := New(WithWriter(&buf))

	for i := 0; i < 3; i++ {
		if err := o.Write(context.Background(), sampleRecord()); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
}

func TestWriteFieldNames(t *testing.T) {
	var buf bytes.Buffer
	o := New(WithWriter(&buf))
	if err := o.Write(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"request_id", "input_name", "mode", "sample_index", "output_file", "text_form", "font_file"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, buf.String())
		}
	}
	if got["mode"] != "procedural" {
		t.Errorf("mode = %v, want procedural", got["mode"])
	}
	if got["sample_index"] != float64(2) {
		t.Errorf("sample_index = %v, want 2", got["sample_index"])
	}
}

func TestPrettyIndents(t *testing.T) {
	var buf bytes.Buffer
	o := New(WithWriter(&buf), WithPretty())
	if err := o.Write(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"request_id\"") {
		t.Errorf("expected indented output, got %s", buf.String())
	}
}

func TestCloseIsNoop(t *testing.T) {
	if err := New(WithWriter(&bytes.Buffer{})).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

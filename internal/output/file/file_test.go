package file

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/sigflow/internal/model"
)

func testRecord(id string, slot int) model.AuditRecord {
	return model.AuditRecord{
		Timestamp:   time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		RequestID:   id,
		InputName:   "Ali Khan",
		Mode:        model.SourceProcedural,
		SampleIndex: slot,
		OutputFile:  model.ArtifactName(id, slot),
		TextForm:    "A. Khan",
		FontFile:    "Pacifico.ttf",
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	return rows
}

func TestNoFileBeforeFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	out := New(path)
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("log file created without any write")
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.csv")

	// Two separate outputs simulate two process lifetimes.
	for run := 0; run < 2; run++ {
		out := New(path)
		for slot := 1; slot <= 3; slot++ {
			if err := out.Write(context.Background(), testRecord(strconv.Itoa(run), slot)); err != nil {
				t.Fatalf("Write error: %v", err)
			}
		}
		out.Close()
	}

	rows := readRows(t, path)
	if len(rows) != 7 {
		t.Fatalf("got %d rows, want 1 header + 6", len(rows))
	}
	for i, col := range model.AuditColumns {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	for _, row := range rows[1:] {
		if row[0] == "timestamp" {
			t.Error("header repeated")
		}
	}
	if rows[6][5] != "sig_1_3.png" {
		t.Errorf("last output_file = %q, want sig_1_3.png", rows[6][5])
	}
}

func TestHeaderWrittenForEmptyExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	os.WriteFile(path, nil, 0o644)

	out := New(path)
	out.Write(context.Background(), testRecord("9", 1))
	out.Close()

	rows := readRows(t, path)
	if len(rows) != 2 || rows[0][0] != "timestamp" {
		t.Fatalf("expected header + 1 row, got %v", rows)
	}
}

func TestRowsVisibleWithoutClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	out := New(path, WithSync())
	defer out.Close()

	out.Write(context.Background(), testRecord("5", 2))
	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("got %d rows before Close, want 2", len(rows))
	}
}

func TestFieldsWithCommasAreQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	out := New(path)
	rec := testRecord("7", 1)
	rec.InputName = `Khan, "Ali"`
	out.Write(context.Background(), rec)
	out.Close()

	rows := readRows(t, path)
	if rows[1][2] != `Khan, "Ali"` {
		t.Errorf("input_name = %q", rows[1][2])
	}
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	out := New(path)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out.Write(context.Background(), testRecord(strconv.Itoa(i), 1))
		}(i)
	}
	wg.Wait()
	out.Close()

	rows := readRows(t, path)
	if len(rows) != 51 {
		t.Errorf("got %d rows, want 51", len(rows))
	}
}

func TestHeaderFailureLeavesOutputUnopened(t *testing.T) {
	// Writes to /dev/full always fail with ENOSPC.
	const full = "/dev/full"
	if _, err := os.Stat(full); err != nil {
		t.Skip("/dev/full not available")
	}
	out := New(full)

	for i := 0; i < 2; i++ {
		err := out.Write(context.Background(), testRecord("1", 1))
		if err == nil {
			t.Fatalf("write %d: expected error", i)
		}
		if !strings.Contains(err.Error(), "header") {
			t.Errorf("write %d: got %v, want a header error", i, err)
		}
		if out.f != nil || out.w != nil {
			t.Fatalf("write %d: output kept a file without a header", i)
		}
	}
	if err := out.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

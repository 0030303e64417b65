// Package dataset indexes the labeled reference signatures and draws
// samples from them.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/random"
)

const (
	colFilename = "filename"
	colName     = "name"
)

// Index maps a normalized name to its reference image paths. It is
// immutable once built and safe for concurrent readers.
type Index struct {
	entries map[string][]string
}

// New builds an index from an in-memory mapping. Keys are normalized;
// paths are kept in order and not checked against storage.
func New(m map[string][]string) *Index {
	idx := &Index{entries: make(map[string][]string, len(m))}
	for name, paths := range m {
		key := Normalize(name)
		idx.entries[key] = append(idx.entries[key], paths...)
	}
	return idx
}

// Normalize trims and case-folds a name into an index key.
func Normalize(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Load reads the labels table at labelsPath, resolving each filename
// against root. Rows whose file does not exist are dropped. Any failure
// to read or parse the table yields an empty index.
func Load(root, labelsPath string) *Index {
	f, err := os.Open(labelsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("dataset labels unreadable, dataset disabled", "path", labelsPath, "error", err)
		}
		return New(nil)
	}
	defer f.Close()

	idx, err := Parse(f, root, fileExists)
	if err != nil {
		slog.Warn("dataset labels malformed, dataset disabled", "path", labelsPath, "error", err)
		return New(nil)
	}
	slog.Info("dataset index built", "names", idx.Len(), "path", labelsPath)
	return idx
}

// Parse reads a CSV table with a header row containing "filename" and
// "name" columns. exists decides whether a resolved path is kept.
func Parse(r io.Reader, root string, exists func(string) bool) (*Index, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	fileCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case colFilename:
			fileCol = i
		case colName:
			nameCol = i
		}
	}
	if fileCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("dataset: header %v lacks %q and %q columns", header, colFilename, colName)
	}

	idx := &Index{entries: make(map[string][]string)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if fileCol >= len(rec) || nameCol >= len(rec) {
			return nil, fmt.Errorf("dataset: line %d: %d fields", line, len(rec))
		}

		path := filepath.Join(root, strings.TrimSpace(rec[fileCol]))
		if !exists(path) {
			continue
		}
		key := Normalize(rec[nameCol])
		idx.entries[key] = append(idx.entries[key], path)
	}
	return idx, nil
}

// Len returns the number of distinct names.
func (x *Index) Len() int { return len(x.entries) }

// Paths returns a copy of the references registered for name.
func (x *Index) Paths(name string) []string {
	return append([]string(nil), x.entries[Normalize(name)]...)
}

// Pick draws model.SlotCount references for name. An unknown name yields
// nil. With at least SlotCount references the draw is uniform without
// replacement; with fewer, the references repeat cyclically.
func (x *Index) Pick(name string, rng random.Source) []string {
	paths := x.entries[Normalize(name)]
	if len(paths) == 0 {
		return nil
	}

	out := make([]string, model.SlotCount)
	if len(paths) < model.SlotCount {
		for i := range out {
			out[i] = paths[i%len(paths)]
		}
		return out
	}

	// Partial Fisher-Yates over a copy of the indices.
	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	for i := range out {
		j := i + rng.IntN(len(order)-i)
		order[i], order[j] = order[j], order[i]
		out[i] = paths[order[i]]
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/sigflow/internal/model"
)

// Option configures a file Output.
type Option func(*Output)

// WithSync fsyncs the file after every row. Default: off.
func WithSync() Option {
	return func(o *Output) { o.sync = true }
}

// Output appends audit records to a CSV file with the fixed
// model.AuditColumns schema. The file is opened on the first Write; the
// header row is written then, and only if the file is absent or empty.
// Existing rows are never rewritten.
type Output struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
	sync bool
}

// New creates a file output for the CSV log at path. No I/O happens until
// the first Write.
func New(path string, opts ...Option) *Output {
	o := &Output{path: path}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Path returns the log file location.
func (o *Output) Path() string { return o.path }

// Write appends one row and flushes it to the file.
func (o *Output) Write(_ context.Context, rec model.AuditRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.f == nil {
		if err := o.openFile(); err != nil {
			return err
		}
	}
	if err := o.w.Write(rec.Row()); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return o.flush()
}

// Close flushes and closes the file. Closing an output that never wrote
// is a no-op.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.f == nil {
		return nil
	}
	o.w.Flush()
	err := o.w.Error()
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	o.f, o.w = nil, nil
	if err != nil {
		return fmt.Errorf("file output: close: %w", err)
	}
	return nil
}

// openFile opens (or creates) the log for appending, writing the header
// when the file is new.
func (o *Output) openFile() error {
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return fmt.Errorf("file output: mkdir: %w", err)
	}
	fresh := true
	if info, err := os.Stat(o.path); err == nil && info.Size() > 0 {
		fresh = false
	}

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	w := csv.NewWriter(f)
	if fresh {
		w.Write(model.AuditColumns)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("file output: header: %w", err)
		}
		if o.sync {
			if err := f.Sync(); err != nil {
				f.Close()
				return fmt.Errorf("file output: sync: %w", err)
			}
		}
	}
	o.f, o.w = f, w
	return nil
}

func (o *Output) flush() error {
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		return fmt.Errorf("file output: flush: %w", err)
	}
	if o.sync {
		if err := o.f.Sync(); err != nil {
			return fmt.Errorf("file output: sync: %w", err)
		}
	}
	return nil
}

package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/sigflow/internal/model"
)

// Output echoes audit records as JSON lines. It is a debugging sink; the
// CSV log stays the record of truth.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// Option configures an Output.
type Option func(*config)

type config struct {
	w      io.Writer
	pretty bool
}

// WithWriter redirects output away from os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.w = w }
}

// WithPretty indents each record.
func WithPretty() Option {
	return func(c *config) { c.pretty = true }
}

// New creates a JSON-lines sink.
func New(opts ...Option) *Output {
	c := config{w: os.Stdout}
	for _, opt := range opts {
		opt(&c)
	}
	enc := json.NewEncoder(c.w)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, rec model.AuditRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(rec); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/output"
)

// Multi fans out audit records to several sinks, in order. A failing sink
// does not stop delivery to the ones after it.
type Multi struct {
	sinks []output.AuditSink
}

// New creates a Multi over the given sinks. Nil sinks are skipped so
// optional destinations can be passed unconditionally.
func New(sinks ...output.AuditSink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Sinks returns the wrapped sinks.
func (m *Multi) Sinks() []output.AuditSink { return m.sinks }

// Write delivers rec to every sink and joins their errors.
func (m *Multi) Write(ctx context.Context, rec model.AuditRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package output

import (
	"context"

	"github.com/crimson-sun/sigflow/internal/model"
)

// AuditSink defines the interface for audit log destinations. Write is
// called once per artifact, in slot order.
type AuditSink interface {
	Write(ctx context.Context, rec model.AuditRecord) error
	Close() error
}

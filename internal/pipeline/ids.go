package pipeline

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDAllocator hands out request identities. Implementations must never
// return the same identity twice within a process.
type IDAllocator interface {
	Next(now time.Time) string
}

// MillisIDs issues millisecond Unix timestamps as decimal strings. When
// two requests land in the same millisecond the later one is bumped past
// the last issued value, so identities are strictly increasing.
type MillisIDs struct {
	mu   sync.Mutex
	last int64
}

func (m *MillisIDs) Next(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= m.last {
		ms = m.last + 1
	}
	m.last = ms
	return strconv.FormatInt(ms, 10)
}

// processMillis backs every pipeline built with the default identity
// scheme, so two pipelines sharing an output directory never hand out the
// same identity.
var processMillis = &MillisIDs{}

// SharedMillisIDs returns the process-wide millisecond allocator.
func SharedMillisIDs() *MillisIDs { return processMillis }

// UUIDs issues time-ordered UUIDv7 identities.
type UUIDs struct{}

func (UUIDs) Next(time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

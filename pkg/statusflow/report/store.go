// Package report provides the status change report sink: fire-and-forget
// persistence of status change events for later inspection.
//
// The coordinator never fails a transition on sink errors; it logs them
// and moves on.
package report

import (
	"context"
	"errors"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
)

// Store persists status change events.
// Implementations must be safe for concurrent use.
type Store interface {
	// HandleStatusChange records one status change event.
	// Recording the same event ID twice overwrites the prior record.
	HandleStatusChange(ctx context.Context, evt *event.StatusChangeEvent) error

	// List returns all recorded events for an entity, oldest first.
	// Returns an empty slice (not an error) for unknown entities.
	List(ctx context.Context, kind entity.Kind, entityID string) ([]*event.StatusChangeEvent, error)

	// Count returns the total number of recorded events.
	Count(ctx context.Context) (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for report stores.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("report store closed")
)

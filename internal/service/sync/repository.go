package sync

import (
	"context"

	"github.com/rtlmb/member-sync/internal/domain"
)

// RunStore defines the data access contract for import audit records.
// A run is written exactly twice: Create at start, Finalize at end.
type RunStore interface {
	// Create persists a new run in running state and returns its id.
	Create(ctx context.Context, run *domain.ImportRun) (string, error)

	// Finalize writes the final counts, error list, terminal status and
	// completion timestamp in one update.
	Finalize(ctx context.Context, run *domain.ImportRun) error

	// Get returns a run by id. Returns ErrRunNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.ImportRun, error)
}

// ConsentStore defines the data access contract for the consent ledger.
type ConsentStore interface {
	// Append writes a new immutable consent entry.
	Append(ctx context.Context, entry *domain.ConsentLogEntry) error

	// FindLatest returns the most recent consent entry for a lowercased
	// email, or nil when none exists.
	FindLatest(ctx context.Context, email string) (*domain.ConsentLogEntry, error)
}

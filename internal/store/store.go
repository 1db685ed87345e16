// Package store persists lead records. One row per phone number is the
// single source of truth and synchronization point: writers carry the
// version they read, and Save rejects stale writes.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-sms/internal/model"
)

// ErrConflict reports that a lead was modified since it was read. Callers
// should re-read, re-apply their changes, and retry.
var ErrConflict = eris.New("lead modified concurrently")

// ErrNotFound reports a save against a phone number with no stored row.
var ErrNotFound = eris.New("lead not found")

// Store defines the lead repository contract.
type Store interface {
	// GetByPhone returns the lead for a normalized phone number, or nil
	// when no record exists.
	GetByPhone(ctx context.Context, phone string) (*model.Lead, error)

	// Create inserts a new lead record and returns it with its id and
	// initial version populated.
	Create(ctx context.Context, lead *model.Lead) (*model.Lead, error)

	// Save writes the lead if lead.Version still matches the stored row,
	// bumping the version on success. Returns ErrConflict on a stale write.
	Save(ctx context.Context, lead *model.Lead) error

	// ListDueForFollowUp returns leads whose follow-up is due at now:
	// next_follow_up_time <= now, stage not exhausted, not tour-ready, and
	// not paused. Ordered by ascending next_follow_up_time so the oldest
	// due lead is served first under a batch limit.
	ListDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]model.Lead, error)

	// ListAll returns every lead, newest first.
	ListAll(ctx context.Context) ([]model.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Package ports defines the storage interfaces the admission service
// depends on. Stores are pure I/O; gating rules live in the service.
package ports

import (
	"context"
	"time"

	"dustledger/internal/admission/models"
)

// WindowStore counts actions inside fixed windows keyed by (actor, action).
type WindowStore interface {
	// Incr bumps the counter for key inside a fixed window of the given
	// length and returns the new count plus the window's reset time. A
	// window that has lapsed restarts at count 1.
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
}

// BanStore tracks per-actor violation counts and active bans.
type BanStore interface {
	Get(ctx context.Context, actor string) (*models.BanRecord, error)
	Save(ctx context.Context, record *models.BanRecord) error
	Delete(ctx context.Context, actor string) error
}

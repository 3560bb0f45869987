package storage

import (
	"context"
	"time"

	"lecturas/internal/models"
)

// Store defines the interface for catalog persistence.
//
// The core packages only ever see snapshots from ReadCatalog; after any
// write callers must re-read before acting again, because WriteCatalog
// has full-table overwrite semantics and two stale snapshots can
// silently overwrite each other's fields. Backends that can update at
// field granularity (MarkRead, MarkFavorite) narrow that window but do
// not eliminate it; the design accepts this for single-household use.
type Store interface {
	// Catalog operations

	// ReadCatalog returns a snapshot of every book row, in sheet order
	ReadCatalog(ctx context.Context) ([]models.BookRecord, error)
	// WriteCatalog replaces the whole catalog with the given rows
	WriteCatalog(ctx context.Context, books []models.BookRecord) error

	// Targeted read-state updates for one (book, profile) pair.
	// MarkRead increments times-read and sets the last-read timestamp;
	// MarkFavorite sets the favorite flag.
	MarkRead(ctx context.Context, bookID int, profile string, at time.Time) error
	MarkFavorite(ctx context.Context, bookID int, profile string) error

	// Challenge assignment persistence, keyed by profile. GetAssignment
	// returns the most recent stored assignment; a prior week's
	// assignment is still returned (superseding it is the challenge
	// engine's job). SaveAssignment upserts by (profile, week).
	GetAssignment(ctx context.Context, profile string) (models.Assignment, bool, error)
	SaveAssignment(ctx context.Context, a models.Assignment) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

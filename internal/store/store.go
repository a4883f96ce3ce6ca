// Package store persists the catalog and learner history in SQLite.
package store

import (
	"context"
	"time"

	"github.com/rcliao/nihongo-srs/internal/metadata"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/session"
)

// SearchParams holds parameters for searching the catalog.
type SearchParams struct {
	Query       string
	ContentType model.ContentType // empty means any
	JLPTLevel   int               // 0 means any
	Limit       int
}

// DueParams holds parameters for listing due reviews.
type DueParams struct {
	UserID string
	Now    time.Time
	Limit  int
}

// HistoryParams holds parameters for reading the review log.
type HistoryParams struct {
	UserID string
	Key    *model.ItemKey // nil means every item
	Limit  int
}

// LinkParams holds parameters for adding or removing a prerequisite.
type LinkParams struct {
	Item           model.ItemKey
	PrerequisiteID string
	Remove         bool
}

// Store is everything the CLI needs from persistence. The session
// coordinator and the metadata enricher only see the narrow interfaces it
// embeds.
type Store interface {
	session.Catalog
	session.Store
	session.Profile
	metadata.Source

	PutCatalogItems(ctx context.Context, items []model.CatalogItem) (int, error)
	Search(ctx context.Context, p SearchParams) ([]model.CatalogItem, error)
	Link(ctx context.Context, p LinkParams) (*Link, error)

	Enqueue(ctx context.Context, userID string, keys []model.ItemKey) (int, error)
	Due(ctx context.Context, p DueParams) ([]DueItem, error)
	DueCounts(ctx context.Context, now time.Time) ([]DueCount, error)
	ReviewHistory(ctx context.Context, userID string, key model.ItemKey) ([]ReviewVersion, error)

	ApplyUpdate(ctx context.Context, sessionID string, u session.Update) error
	ApplySummary(ctx context.Context, sum *session.Summary) (model.UserLearningState, error)
	SaveLearningState(ctx context.Context, st model.UserLearningState) error
	History(ctx context.Context, p HistoryParams) ([]LogEntry, error)

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

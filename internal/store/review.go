package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// ReviewVersion is one stored version of a review item.
type ReviewVersion struct {
	model.ReviewItem
	ID         string    `json:"id"`
	Version    int       `json:"version"`
	Supersedes string    `json:"supersedes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DueItem is a due review joined with its catalog entry.
type DueItem struct {
	Review  model.ReviewItem  `json:"review"`
	Catalog model.CatalogItem `json:"catalog"`
}

// DueCount is the number of due reviews for one user.
type DueCount struct {
	UserID string `json:"user_id" db:"user_id"`
	Due    int    `json:"due" db:"due"`
}

type reviewRow struct {
	ID             string            `db:"id"`
	UserID         string            `db:"user_id"`
	ContentType    model.ContentType `db:"content_type"`
	ContentID      string            `db:"content_id"`
	Version        int               `db:"version"`
	Supersedes     sql.NullString    `db:"supersedes"`
	EaseFactor     float64           `db:"ease_factor"`
	Interval       int               `db:"interval_days"`
	Repetitions    int               `db:"repetitions"`
	LastQuality    int               `db:"last_quality"`
	NextReviewAt   sql.NullString    `db:"next_review_at"`
	LastReviewedAt sql.NullString    `db:"last_reviewed_at"`
	CreatedAt      string            `db:"created_at"`
}

const reviewColumns = `r.id, r.user_id, r.content_type, r.content_id, r.version, r.supersedes,
	r.ease_factor, r.interval_days, r.repetitions, r.last_quality,
	r.next_review_at, r.last_reviewed_at, r.created_at`

// latestReviews restricts review_items to the newest version per item.
const latestReviews = `review_items r
	INNER JOIN (
		SELECT user_id, content_type, content_id, MAX(version) AS max_ver
		FROM review_items GROUP BY user_id, content_type, content_id
	) latest ON r.user_id = latest.user_id AND r.content_type = latest.content_type
		AND r.content_id = latest.content_id AND r.version = latest.max_ver`

func (r reviewRow) item() model.ReviewItem {
	return model.ReviewItem{
		UserID:         r.UserID,
		ContentType:    r.ContentType,
		ContentID:      r.ContentID,
		EaseFactor:     r.EaseFactor,
		Interval:       r.Interval,
		Repetitions:    r.Repetitions,
		LastQuality:    r.LastQuality,
		NextReviewAt:   parseNullTime(r.NextReviewAt),
		LastReviewedAt: parseNullTime(r.LastReviewedAt),
	}
}

func (r reviewRow) version() ReviewVersion {
	return ReviewVersion{
		ReviewItem: r.item(),
		ID:         r.ID,
		Version:    r.Version,
		Supersedes: r.Supersedes.String,
		CreatedAt:  parseTime(r.CreatedAt),
	}
}

// saveReview inserts a new version of item that supersedes the current one.
func (s *SQLiteStore) saveReview(ctx context.Context, tx *sqlx.Tx, item model.ReviewItem, now time.Time) (int, error) {
	var prev struct {
		ID      string `db:"id"`
		Version int    `db:"version"`
	}
	err := tx.GetContext(ctx, &prev,
		`SELECT id, version FROM review_items
		 WHERE user_id = ? AND content_type = ? AND content_id = ?
		 ORDER BY version DESC LIMIT 1`,
		item.UserID, item.ContentType, item.ContentID)

	version := 1
	var supersedes sql.NullString
	switch {
	case err == nil:
		version = prev.Version + 1
		supersedes = sql.NullString{String: prev.ID, Valid: true}
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_items (id, user_id, content_type, content_id, version, supersedes,
			ease_factor, interval_days, repetitions, last_quality, next_review_at, last_reviewed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(now), item.UserID, item.ContentType, item.ContentID, version, supersedes,
		item.EaseFactor, item.Interval, item.Repetitions, item.LastQuality,
		nullTime(item.NextReviewAt), nullTime(item.LastReviewedAt), formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("insert review item: %w", err)
	}
	return version, nil
}

// SaveReviewItem stores a new version of a review item.
func (s *SQLiteStore) SaveReviewItem(ctx context.Context, item model.ReviewItem) (int, error) {
	var version int
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		version, err = s.saveReview(ctx, tx, item, time.Now())
		return err
	})
	return version, err
}

// Enqueue creates review items for catalog entries the user has not queued
// yet. It returns how many were added.
func (s *SQLiteStore) Enqueue(ctx context.Context, userID string, keys []model.ItemKey) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	added := 0
	now := time.Now()
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, k := range keys {
			var n int
			if err := tx.GetContext(ctx, &n,
				`SELECT COUNT(*) FROM catalog_items WHERE content_type = ? AND content_id = ?`,
				k.ContentType, k.ContentID); err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("enqueue %s: %w", k, model.ErrNotFound)
			}
			if err := tx.GetContext(ctx, &n,
				`SELECT COUNT(*) FROM review_items WHERE user_id = ? AND content_type = ? AND content_id = ?`,
				userID, k.ContentType, k.ContentID); err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if _, err := s.saveReview(ctx, tx, model.NewReviewItem(userID, k), now); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// ReviewItems returns the latest version of every item the user queued.
func (s *SQLiteStore) ReviewItems(ctx context.Context, userID string) ([]model.ReviewItem, error) {
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+reviewColumns+` FROM `+latestReviews+`
		 WHERE r.user_id = ? ORDER BY r.content_type, r.content_id`, userID); err != nil {
		return nil, err
	}
	out := make([]model.ReviewItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.item())
	}
	return out, nil
}

// ReviewItem returns the latest version of one review item.
func (s *SQLiteStore) ReviewItem(ctx context.Context, userID string, key model.ItemKey) (model.ReviewItem, error) {
	var r reviewRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+reviewColumns+` FROM review_items r
		 WHERE r.user_id = ? AND r.content_type = ? AND r.content_id = ?
		 ORDER BY r.version DESC LIMIT 1`, userID, key.ContentType, key.ContentID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReviewItem{}, fmt.Errorf("review item %s for %s: %w", key, userID, model.ErrNotFound)
	}
	if err != nil {
		return model.ReviewItem{}, err
	}
	return r.item(), nil
}

// ReviewHistory returns every stored version of an item, newest first.
func (s *SQLiteStore) ReviewHistory(ctx context.Context, userID string, key model.ItemKey) ([]ReviewVersion, error) {
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+reviewColumns+` FROM review_items r
		 WHERE r.user_id = ? AND r.content_type = ? AND r.content_id = ?
		 ORDER BY r.version DESC`, userID, key.ContentType, key.ContentID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("review item %s for %s: %w", key, userID, model.ErrNotFound)
	}
	out := make([]ReviewVersion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.version())
	}
	return out, nil
}

// Due lists the user's reviews that are due at p.Now, oldest first. Items
// never scheduled come after overdue ones.
func (s *SQLiteStore) Due(ctx context.Context, p DueParams) ([]DueItem, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	type dueRow struct {
		reviewRow
		Display            string `db:"display"`
		Reading            string `db:"reading"`
		Meaning            string `db:"meaning"`
		JLPTLevel          int    `db:"jlpt_level"`
		BaseDifficulty     int    `db:"base_difficulty"`
		FrequencyRank      int    `db:"frequency_rank"`
		CurriculumPriority int    `db:"curriculum_priority"`
	}
	var rows []dueRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+reviewColumns+`,
			c.display, c.reading, c.meaning, c.jlpt_level,
			c.base_difficulty, c.frequency_rank, c.curriculum_priority
		 FROM `+latestReviews+`
		 INNER JOIN catalog_items c ON c.content_type = r.content_type AND c.content_id = r.content_id
		 WHERE r.user_id = ? AND (r.next_review_at IS NULL OR r.next_review_at <= ?)
		 ORDER BY r.next_review_at IS NULL, r.next_review_at, r.created_at, r.rowid
		 LIMIT ?`, p.UserID, formatTime(now), limit)
	if err != nil {
		return nil, err
	}

	out := make([]DueItem, 0, len(rows))
	catalog := make([]model.CatalogItem, 0, len(rows))
	for _, r := range rows {
		catalog = append(catalog, model.CatalogItem{
			ContentType:        r.ContentType,
			ContentID:          r.ContentID,
			Display:            r.Display,
			Reading:            r.Reading,
			Meaning:            r.Meaning,
			JLPTLevel:          r.JLPTLevel,
			BaseDifficulty:     r.BaseDifficulty,
			FrequencyRank:      r.FrequencyRank,
			CurriculumPriority: r.CurriculumPriority,
		})
	}
	if err := s.attachPrerequisites(ctx, catalog); err != nil {
		return nil, err
	}
	for i, r := range rows {
		out = append(out, DueItem{Review: r.item(), Catalog: catalog[i]})
	}
	return out, nil
}

// DueCounts returns the number of due reviews per user.
func (s *SQLiteStore) DueCounts(ctx context.Context, now time.Time) ([]DueCount, error) {
	var counts []DueCount
	err := s.db.SelectContext(ctx, &counts,
		`SELECT r.user_id AS user_id, COUNT(*) AS due FROM `+latestReviews+`
		 WHERE r.next_review_at IS NULL OR r.next_review_at <= ?
		 GROUP BY r.user_id ORDER BY r.user_id`, formatTime(now))
	return counts, err
}

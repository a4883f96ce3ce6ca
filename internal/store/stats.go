package store

import (
	"context"
	"os"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string      `json:"db_path"`
	DBSizeBytes    int64       `json:"db_size_bytes"`
	CatalogItems   int         `json:"catalog_items"`
	UserID         string      `json:"user_id,omitempty"`
	Queued         int         `json:"queued"`
	DueNow         int         `json:"due_now"`
	Mastered       int         `json:"mastered"`
	AvgEaseFactor  float64     `json:"avg_ease_factor"`
	Reviews        int         `json:"reviews"`
	ReviewVersions int         `json:"review_versions"`
	Types          []TypeStats `json:"types"`
}

// TypeStats holds per-content-type counts.
type TypeStats struct {
	ContentType model.ContentType `json:"content_type" db:"content_type"`
	Catalog     int               `json:"catalog" db:"catalog"`
	Queued      int               `json:"queued" db:"queued"`
}

// masteredRepetitions is the repetition count from which a queued item
// counts as mastered in the summary.
const masteredRepetitions = 3

// Stats returns database statistics. With a user id the queue figures are
// restricted to that user.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, userID string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, UserID: userID}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	userFilter, args := "", []any{}
	if userID != "" {
		userFilter = " AND r.user_id = ?"
		args = append(args, userID)
	}

	if err := s.db.GetContext(ctx, &st.CatalogItems, `SELECT COUNT(*) FROM catalog_items`); err != nil {
		return nil, err
	}

	var agg struct {
		Queued   int     `db:"queued"`
		Mastered int     `db:"mastered"`
		AvgEF    float64 `db:"avg_ef"`
	}
	if err := s.db.GetContext(ctx, &agg,
		`SELECT COUNT(*) AS queued,
			COALESCE(SUM(r.repetitions >= ?), 0) AS mastered,
			COALESCE(AVG(r.ease_factor), 0) AS avg_ef
		 FROM `+latestReviews+` WHERE 1 = 1`+userFilter,
		append([]any{masteredRepetitions}, args...)...); err != nil {
		return nil, err
	}
	st.Queued, st.Mastered, st.AvgEaseFactor = agg.Queued, agg.Mastered, agg.AvgEF

	if err := s.db.GetContext(ctx, &st.DueNow,
		`SELECT COUNT(*) FROM `+latestReviews+`
		 WHERE (r.next_review_at IS NULL OR r.next_review_at <= ?)`+userFilter,
		append([]any{formatTime(time.Now())}, args...)...); err != nil {
		return nil, err
	}

	logFilter := ""
	if userID != "" {
		logFilter = " WHERE user_id = ?"
	}
	if err := s.db.GetContext(ctx, &st.Reviews, `SELECT COUNT(*) FROM review_log`+logFilter, args...); err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &st.ReviewVersions, `SELECT COUNT(*) FROM review_items`+logFilter, args...); err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &st.Types,
		`SELECT c.content_type AS content_type,
			COUNT(*) AS catalog,
			COUNT(q.content_id) AS queued
		 FROM catalog_items c
		 LEFT JOIN (
			SELECT DISTINCT r.content_type, r.content_id FROM review_items r WHERE 1 = 1`+userFilter+`
		 ) q ON q.content_type = c.content_type AND q.content_id = c.content_id
		 GROUP BY c.content_type ORDER BY c.content_type`, args...); err != nil {
		return nil, err
	}

	return st, nil
}

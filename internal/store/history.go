package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/session"
)

// LogEntry is one answered review.
type LogEntry struct {
	ID              string            `json:"id" db:"id"`
	SessionID       string            `json:"session_id" db:"session_id"`
	UserID          string            `json:"user_id" db:"user_id"`
	ContentType     model.ContentType `json:"content_type" db:"content_type"`
	ContentID       string            `json:"content_id" db:"content_id"`
	Quality         int               `json:"quality" db:"quality"`
	Correct         bool              `json:"correct" db:"correct"`
	ResponseTimeMs  float64           `json:"response_time_ms" db:"response_time_ms"`
	Interval        int               `json:"interval" db:"interval_days"`
	EaseFactor      float64           `json:"ease_factor" db:"ease_factor"`
	DifficultyDelta float64           `json:"difficulty_delta" db:"difficulty_delta"`
	PredictedRecall float64           `json:"predicted_recall" db:"predicted_recall"`
	AnsweredAt      string            `json:"answered_at" db:"answered_at"`
}

// ApplyUpdate persists the outcome of one response: a new review item
// version, the updated performance record and a review log row, in one
// transaction.
func (s *SQLiteStore) ApplyUpdate(ctx context.Context, sessionID string, u session.Update) error {
	if u.Review.UserID == "" || u.Review.Key() != u.Key || u.Performance.Key() != u.Key {
		return fmt.Errorf("%w: update for %s does not match its records", model.ErrInvalidInput, u.Key)
	}
	at := u.AnsweredAt
	if at.IsZero() {
		at = time.Now()
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.saveReview(ctx, tx, u.Review, at); err != nil {
			return err
		}
		if err := savePerformance(ctx, tx, u.Performance, at); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO review_log (id, session_id, user_id, content_type, content_id, quality, correct,
				response_time_ms, interval_days, ease_factor, difficulty_delta, predicted_recall, answered_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.newID(at), sessionID, u.Review.UserID, u.Key.ContentType, u.Key.ContentID, u.Quality, u.Correct,
			u.ResponseTimeMs, u.Review.Interval, u.Review.EaseFactor, u.Adjustment.DifficultyDelta,
			u.PredictedRecall, formatTime(at))
		if err != nil {
			return fmt.Errorf("insert review log: %w", err)
		}
		return nil
	})
}

// History returns logged answers, newest first.
func (s *SQLiteStore) History(ctx context.Context, p HistoryParams) ([]LogEntry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, session_id, user_id, content_type, content_id, quality, correct,
			response_time_ms, interval_days, ease_factor, difficulty_delta, predicted_recall, answered_at
		FROM review_log WHERE user_id = ?`
	args := []any{p.UserID}
	if p.Key != nil {
		query += ` AND content_type = ? AND content_id = ?`
		args = append(args, p.Key.ContentType, p.Key.ContentID)
	}
	query += ` ORDER BY answered_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var entries []LogEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// ResponseTimes returns the logged response times of one item, oldest first.
func (s *SQLiteStore) ResponseTimes(ctx context.Context, userID string, key model.ItemKey) ([]float64, error) {
	var times []float64
	err := s.db.SelectContext(ctx, &times,
		`SELECT response_time_ms FROM review_log
		 WHERE user_id = ? AND content_type = ? AND content_id = ?
		 ORDER BY answered_at, id`, userID, key.ContentType, key.ContentID)
	return times, err
}

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

const performanceColumns = `user_id, content_type, content_id, attempts, correct_attempts,
	accuracy_rate, avg_response_time_ms, difficulty_offset`

// PerformanceRecords returns every performance record of a user.
func (s *SQLiteStore) PerformanceRecords(ctx context.Context, userID string) ([]model.PerformanceRecord, error) {
	var recs []model.PerformanceRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT `+performanceColumns+` FROM performance_records
		 WHERE user_id = ? ORDER BY content_type, content_id`, userID)
	return recs, err
}

// PerformanceRecord returns one record.
func (s *SQLiteStore) PerformanceRecord(ctx context.Context, userID string, key model.ItemKey) (model.PerformanceRecord, error) {
	var rec model.PerformanceRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT `+performanceColumns+` FROM performance_records
		 WHERE user_id = ? AND content_type = ? AND content_id = ?`,
		userID, key.ContentType, key.ContentID)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("performance %s for %s: %w", key, userID, model.ErrNotFound)
	}
	return rec, err
}

func savePerformance(ctx context.Context, tx *sqlx.Tx, rec model.PerformanceRecord, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO performance_records (`+performanceColumns+`, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, content_type, content_id) DO UPDATE SET
			attempts = excluded.attempts,
			correct_attempts = excluded.correct_attempts,
			accuracy_rate = excluded.accuracy_rate,
			avg_response_time_ms = excluded.avg_response_time_ms,
			difficulty_offset = excluded.difficulty_offset,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.ContentType, rec.ContentID, rec.Attempts, rec.CorrectAttempts,
		rec.AccuracyRate, rec.AvgResponseTimeMs, rec.DifficultyOffset, formatTime(now))
	if err != nil {
		return fmt.Errorf("save performance %s: %w", rec.Key(), err)
	}
	return nil
}

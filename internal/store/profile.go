package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/session"
)

// recentWindow is how many of the latest answers make up RecentItems.
const recentWindow = 20

// accuracyBlend weights a finished session against the stored accuracy.
const accuracyBlend = 0.3

type userStateRow struct {
	UserID        string         `db:"user_id"`
	AccuracyRate  float64        `db:"accuracy_rate"`
	Weakness      sql.NullString `db:"weakness"`
	PreferNovelty bool           `db:"prefer_novelty"`
	CurrentStreak int            `db:"current_streak"`
	LastStudyDate sql.NullString `db:"last_study_date"`
}

// LearningState returns the learner profile. Users without a stored
// profile get an empty one. RecentItems is derived from the review log.
func (s *SQLiteStore) LearningState(ctx context.Context, userID string) (model.UserLearningState, error) {
	st, _, err := s.learningState(ctx, s.db, userID)
	return st, err
}

func (s *SQLiteStore) learningState(ctx context.Context, q sqlx.QueryerContext, userID string) (model.UserLearningState, string, error) {
	st := model.UserLearningState{UserID: userID, WeaknessByCategory: map[model.ContentType]float64{}}

	var row userStateRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT user_id, accuracy_rate, weakness, prefer_novelty, current_streak, last_study_date
		 FROM user_states WHERE user_id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return st, "", err
	default:
		st.AccuracyRate = row.AccuracyRate
		st.PreferNovelty = row.PreferNovelty
		st.CurrentStreak = row.CurrentStreak
		if row.Weakness.Valid {
			if err := json.Unmarshal([]byte(row.Weakness.String), &st.WeaknessByCategory); err != nil {
				return st, "", fmt.Errorf("decode weakness for %s: %w", userID, err)
			}
		}
	}

	var recent []struct {
		ContentType model.ContentType `db:"content_type"`
		ContentID   string            `db:"content_id"`
	}
	if err := sqlx.SelectContext(ctx, q, &recent,
		`SELECT content_type, content_id FROM review_log
		 WHERE user_id = ? ORDER BY answered_at DESC, id DESC LIMIT ?`, userID, recentWindow); err != nil {
		return st, "", err
	}
	for _, r := range recent {
		st.RecentItems = append(st.RecentItems, model.ItemKey{ContentType: r.ContentType, ContentID: r.ContentID})
	}
	return st, row.LastStudyDate.String, nil
}

// SaveLearningState stores the profile fields a user can set directly.
func (s *SQLiteStore) SaveLearningState(ctx context.Context, st model.UserLearningState) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, last, err := s.learningState(ctx, tx, st.UserID)
		if err != nil {
			return err
		}
		return saveUserState(ctx, tx, st, last)
	})
}

func saveUserState(ctx context.Context, tx *sqlx.Tx, st model.UserLearningState, lastStudyDate string) error {
	if st.UserID == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if st.AccuracyRate < 0 || st.AccuracyRate > 1 {
		return fmt.Errorf("%w: accuracy %v outside [0, 1]", model.ErrInvalidInput, st.AccuracyRate)
	}
	weakness, err := json.Marshal(st.WeaknessByCategory)
	if err != nil {
		return err
	}
	last := sql.NullString{String: lastStudyDate, Valid: lastStudyDate != ""}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_states (user_id, accuracy_rate, weakness, prefer_novelty, current_streak, last_study_date, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			accuracy_rate = excluded.accuracy_rate,
			weakness = excluded.weakness,
			prefer_novelty = excluded.prefer_novelty,
			current_streak = excluded.current_streak,
			last_study_date = excluded.last_study_date,
			updated_at = excluded.updated_at`,
		st.UserID, st.AccuracyRate, string(weakness), st.PreferNovelty, st.CurrentStreak, last, formatTime(time.Now()))
	return err
}

// ApplySummary folds a finished session into the learner profile: weakness
// takes the proposed values, accuracy moves towards the session accuracy and
// the daily streak advances. The first summary for a user sets the accuracy
// outright.
func (s *SQLiteStore) ApplySummary(ctx context.Context, sum *session.Summary) (model.UserLearningState, error) {
	var out model.UserLearningState
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		st, last, err := s.learningState(ctx, tx, sum.UserID)
		if err != nil {
			return err
		}
		for ct, w := range sum.WeaknessUpdates {
			st.WeaknessByCategory[ct] = w
		}
		if sum.Stats.Answered > 0 {
			// No study date yet means no session has been folded in.
			if last == "" {
				st.AccuracyRate = sum.Stats.Accuracy
			} else {
				st.AccuracyRate = (1-accuracyBlend)*st.AccuracyRate + accuracyBlend*sum.Stats.Accuracy
			}
		}

		day := sum.EndedAt.UTC().Format(time.DateOnly)
		if sum.Stats.Answered > 0 && day != last {
			prev := sum.EndedAt.UTC().AddDate(0, 0, -1).Format(time.DateOnly)
			if last == prev {
				st.CurrentStreak++
			} else {
				st.CurrentStreak = 1
			}
			last = day
		}

		if err := saveUserState(ctx, tx, st, last); err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, err
}

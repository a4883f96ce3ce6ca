package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Export is a portable snapshot of the catalog and, optionally, one user's
// learning data.
type Export struct {
	ExportedAt    time.Time                 `json:"exported_at"`
	Catalog       []model.CatalogItem       `json:"catalog"`
	UserID        string                    `json:"user_id,omitempty"`
	ReviewItems   []model.ReviewItem        `json:"review_items,omitempty"`
	Performance   []model.PerformanceRecord `json:"performance,omitempty"`
	LearningState *model.UserLearningState  `json:"learning_state,omitempty"`
	LastStudyDate string                    `json:"last_study_date,omitempty"`
	Log           []LogEntry                `json:"log,omitempty"`
}

// ExportAll returns the whole catalog plus the latest state of userID's
// queue. An empty userID exports the catalog only.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) (*Export, error) {
	catalog, err := s.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	out := &Export{ExportedAt: time.Now().UTC(), Catalog: catalog, UserID: userID}
	if userID == "" {
		return out, nil
	}

	if out.ReviewItems, err = s.ReviewItems(ctx, userID); err != nil {
		return nil, err
	}
	if out.Performance, err = s.PerformanceRecords(ctx, userID); err != nil {
		return nil, err
	}
	st, last, err := s.learningState(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	out.LearningState, out.LastStudyDate = &st, last
	if err := s.db.SelectContext(ctx, &out.Log,
		`SELECT id, session_id, user_id, content_type, content_id, quality, correct,
			response_time_ms, interval_days, ease_factor, difficulty_delta, predicted_recall, answered_at
		 FROM review_log WHERE user_id = ? ORDER BY answered_at, id`, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Import restores an export. Catalog entries are upserted; review items are
// stored as new versions; log rows already present are skipped.
func (s *SQLiteStore) Import(ctx context.Context, e *Export) (int, error) {
	n, err := s.PutCatalogItems(ctx, e.Catalog)
	if err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	if e.UserID == "" {
		return n, nil
	}

	now := time.Now()
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range e.ReviewItems {
			if _, err := s.saveReview(ctx, tx, r, now); err != nil {
				return err
			}
			n++
		}
		for _, p := range e.Performance {
			if err := savePerformance(ctx, tx, p, now); err != nil {
				return err
			}
			n++
		}
		for _, l := range e.Log {
			res, err := tx.NamedExecContext(ctx,
				`INSERT OR IGNORE INTO review_log (id, session_id, user_id, content_type, content_id, quality, correct,
					response_time_ms, interval_days, ease_factor, difficulty_delta, predicted_recall, answered_at)
				 VALUES (:id, :session_id, :user_id, :content_type, :content_id, :quality, :correct,
					:response_time_ms, :interval_days, :ease_factor, :difficulty_delta, :predicted_recall, :answered_at)`, l)
			if err != nil {
				return fmt.Errorf("import log %s: %w", l.ID, err)
			}
			if added, _ := res.RowsAffected(); added > 0 {
				n++
			}
		}
		if e.LearningState != nil {
			if err := saveUserState(ctx, tx, *e.LearningState, e.LastStudyDate); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

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

const catalogColumns = `content_type, content_id, display, reading, meaning,
	jlpt_level, base_difficulty, frequency_rank, curriculum_priority`

// PutCatalogItems inserts or updates catalog entries and replaces their
// prerequisites, all in one transaction. Existing entries keep their
// position in catalog order.
func (s *SQLiteStore) PutCatalogItems(ctx context.Context, items []model.CatalogItem) (int, error) {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return 0, fmt.Errorf("item %d (%s): %w", i, it.Key(), err)
		}
	}
	now := formatTime(time.Now())
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, it := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO catalog_items (`+catalogColumns+`, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (content_type, content_id) DO UPDATE SET
					display = excluded.display,
					reading = excluded.reading,
					meaning = excluded.meaning,
					jlpt_level = excluded.jlpt_level,
					base_difficulty = excluded.base_difficulty,
					frequency_rank = excluded.frequency_rank,
					curriculum_priority = excluded.curriculum_priority,
					updated_at = excluded.updated_at`,
				it.ContentType, it.ContentID, it.Display, it.Reading, it.Meaning,
				it.JLPTLevel, it.BaseDifficulty, it.FrequencyRank, it.CurriculumPriority, now, now)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", it.Key(), err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM prerequisites WHERE content_type = ? AND content_id = ?`,
				it.ContentType, it.ContentID); err != nil {
				return err
			}
			for _, p := range it.PrerequisiteIDs {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO prerequisites (content_type, content_id, prereq_id, created_at) VALUES (?, ?, ?, ?)`,
					it.ContentType, it.ContentID, p, now); err != nil {
					return fmt.Errorf("insert prerequisite %s -> %s: %w", it.Key(), p, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// CatalogItem returns one catalog entry with its prerequisites.
func (s *SQLiteStore) CatalogItem(ctx context.Context, key model.ItemKey) (model.CatalogItem, error) {
	var it model.CatalogItem
	err := s.db.GetContext(ctx, &it,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE content_type = ? AND content_id = ?`,
		key.ContentType, key.ContentID)
	if errors.Is(err, sql.ErrNoRows) {
		return it, fmt.Errorf("catalog item %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return it, err
	}
	it.PrerequisiteIDs, err = s.Prerequisites(ctx, key)
	return it, err
}

// ListCatalog returns every catalog entry in insertion order.
func (s *SQLiteStore) ListCatalog(ctx context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	if err := s.db.SelectContext(ctx, &items,
		`SELECT `+catalogColumns+` FROM catalog_items ORDER BY rowid`); err != nil {
		return nil, err
	}
	if err := s.attachPrerequisites(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Search finds catalog entries whose id, display text, reading or meaning
// contain the query substring.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.CatalogItem, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	like := "%" + p.Query + "%"
	query := `SELECT ` + catalogColumns + ` FROM catalog_items
		WHERE (content_id LIKE ? OR display LIKE ? OR reading LIKE ? OR meaning LIKE ?)`
	args := []any{like, like, like, like}

	if p.ContentType != "" {
		query += ` AND content_type = ?`
		args = append(args, p.ContentType)
	}
	if p.JLPTLevel > 0 {
		query += ` AND jlpt_level = ?`
		args = append(args, p.JLPTLevel)
	}
	query += ` ORDER BY frequency_rank = 0, frequency_rank, rowid LIMIT ?`
	args = append(args, limit)

	var items []model.CatalogItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	if err := s.attachPrerequisites(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLiteStore) attachPrerequisites(ctx context.Context, items []model.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	var links []prereqRow
	if err := s.db.SelectContext(ctx, &links,
		`SELECT content_type, content_id, prereq_id FROM prerequisites ORDER BY rowid`); err != nil {
		return err
	}
	byKey := map[model.ItemKey][]string{}
	for _, l := range links {
		k := model.ItemKey{ContentType: l.ContentType, ContentID: l.ContentID}
		byKey[k] = append(byKey[k], l.PrereqID)
	}
	for i := range items {
		items[i].PrerequisiteIDs = byKey[items[i].Key()]
	}
	return nil
}

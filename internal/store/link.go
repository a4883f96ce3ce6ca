package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Link is a prerequisite edge: Item depends on PrerequisiteID.
type Link struct {
	Item           model.ItemKey `json:"item"`
	PrerequisiteID string        `json:"prerequisite_id"`
	CreatedAt      string        `json:"created_at,omitempty"`
}

type prereqRow struct {
	ContentType model.ContentType `db:"content_type"`
	ContentID   string            `db:"content_id"`
	PrereqID    string            `db:"prereq_id"`
	CreatedAt   string            `db:"created_at"`
}

// Link adds or removes a prerequisite of a catalog item.
func (s *SQLiteStore) Link(ctx context.Context, p LinkParams) (*Link, error) {
	if p.PrerequisiteID == "" {
		return nil, fmt.Errorf("%w: empty prerequisite id", model.ErrInvalidInput)
	}
	if _, err := s.CatalogItem(ctx, p.Item); err != nil {
		return nil, fmt.Errorf("resolve item: %w", err)
	}

	if p.Remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM prerequisites WHERE content_type = ? AND content_id = ? AND prereq_id = ?`,
			p.Item.ContentType, p.Item.ContentID, p.PrerequisiteID)
		if err != nil {
			return nil, err
		}
		return &Link{Item: p.Item, PrerequisiteID: p.PrerequisiteID}, nil
	}

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO prerequisites (content_type, content_id, prereq_id, created_at) VALUES (?, ?, ?, ?)`,
		p.Item.ContentType, p.Item.ContentID, p.PrerequisiteID, now)
	if err != nil {
		return nil, err
	}
	return &Link{Item: p.Item, PrerequisiteID: p.PrerequisiteID, CreatedAt: now}, nil
}

// Prerequisites returns the prerequisite ids of an item in insertion order.
func (s *SQLiteStore) Prerequisites(ctx context.Context, key model.ItemKey) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT prereq_id FROM prerequisites WHERE content_type = ? AND content_id = ? ORDER BY rowid`,
		key.ContentType, key.ContentID)
	return ids, err
}

// Dependents returns the items that list id as a prerequisite.
func (s *SQLiteStore) Dependents(ctx context.Context, id string) ([]Link, error) {
	var rows []prereqRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT content_type, content_id, prereq_id, created_at FROM prerequisites
		 WHERE prereq_id = ? ORDER BY rowid`, id); err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(rows))
	for _, r := range rows {
		links = append(links, Link{
			Item:           model.ItemKey{ContentType: r.ContentType, ContentID: r.ContentID},
			PrerequisiteID: r.PrereqID,
			CreatedAt:      r.CreatedAt,
		})
	}
	return links, nil
}

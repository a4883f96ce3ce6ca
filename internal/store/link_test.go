package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rcliao/nihongo-srs/internal/model"
)

func TestLinkCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	link, err := s.Link(ctx, LinkParams{Item: kTe, PrerequisiteID: "た-form"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link.Item != kTe || link.CreatedAt == "" {
		t.Errorf("unexpected link: %+v", link)
	}

	prereqs, err := s.Prerequisites(ctx, kTe)
	if err != nil {
		t.Fatalf("prerequisites: %v", err)
	}
	if len(prereqs) != 1 || prereqs[0] != "た-form" {
		t.Fatalf("expected [た-form], got %v", prereqs)
	}

	// Linking twice is a no-op.
	s.Link(ctx, LinkParams{Item: kTe, PrerequisiteID: "た-form"})
	prereqs, _ = s.Prerequisites(ctx, kTe)
	if len(prereqs) != 1 {
		t.Errorf("expected 1 prerequisite after duplicate link, got %d", len(prereqs))
	}
}

func TestLinkRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	if _, err := s.Link(ctx, LinkParams{Item: kNihon, PrerequisiteID: "日", Remove: true}); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	prereqs, _ := s.Prerequisites(ctx, kNihon)
	if len(prereqs) != 1 || prereqs[0] != "本" {
		t.Errorf("expected [本] after removal, got %v", prereqs)
	}
}

func TestLinkUnknownItem(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Link(context.Background(), LinkParams{
		Item:           model.ItemKey{ContentType: model.Word, ContentID: "ghost"},
		PrerequisiteID: "日",
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDependents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	deps, err := s.Dependents(ctx, "本")
	if err != nil {
		t.Fatalf("dependents: %v", err)
	}
	if len(deps) != 1 || deps[0].Item != kNihon {
		t.Errorf("expected 日本 to depend on 本, got %+v", deps)
	}
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	kNichi = model.ItemKey{ContentType: model.Character, ContentID: "日"}
	kHon   = model.ItemKey{ContentType: model.Character, ContentID: "本"}
	kNihon = model.ItemKey{ContentType: model.Word, ContentID: "日本"}
	kTe    = model.ItemKey{ContentType: model.Grammar, ContentID: "te-form"}
)

func seedCatalog(t *testing.T, s *SQLiteStore) {
	t.Helper()
	_, err := s.PutCatalogItems(context.Background(), []model.CatalogItem{
		{ContentType: model.Character, ContentID: "日", Display: "日", Reading: "にち", Meaning: "sun, day", JLPTLevel: 5, BaseDifficulty: 10, FrequencyRank: 1},
		{ContentType: model.Character, ContentID: "本", Display: "本", Reading: "ほん", Meaning: "book, origin", JLPTLevel: 5, BaseDifficulty: 15, FrequencyRank: 10},
		{ContentType: model.Word, ContentID: "日本", Display: "日本", Reading: "にほん", Meaning: "Japan", JLPTLevel: 5, BaseDifficulty: 20, FrequencyRank: 50, PrerequisiteIDs: []string{"日", "本"}},
		{ContentType: model.Grammar, ContentID: "te-form", Display: "〜て", Meaning: "connective form", JLPTLevel: 5, BaseDifficulty: 45, CurriculumPriority: 80},
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

func TestPutAndGetCatalogItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	got, err := s.CatalogItem(ctx, kNihon)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reading != "にほん" || got.Meaning != "Japan" || got.FrequencyRank != 50 {
		t.Errorf("unexpected item: %+v", got)
	}
	if len(got.PrerequisiteIDs) != 2 || got.PrerequisiteIDs[0] != "日" || got.PrerequisiteIDs[1] != "本" {
		t.Errorf("expected prerequisites [日 本], got %v", got.PrerequisiteIDs)
	}

	_, err = s.CatalogItem(ctx, model.ItemKey{ContentType: model.Word, ContentID: "missing"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutCatalogItemsUpsertKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	_, err := s.PutCatalogItems(ctx, []model.CatalogItem{
		{ContentType: model.Character, ContentID: "日", Display: "日", Meaning: "sun", BaseDifficulty: 12},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 items, got %d", len(all))
	}
	if all[0].Key() != kNichi || all[0].Meaning != "sun" || all[0].BaseDifficulty != 12 {
		t.Errorf("expected updated 日 first, got %+v", all[0])
	}
	if all[2].Key() != kNihon || len(all[2].PrerequisiteIDs) != 2 {
		t.Errorf("expected 日本 with prerequisites third, got %+v", all[2])
	}
}

func TestPutCatalogItemsValidates(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PutCatalogItems(context.Background(), []model.CatalogItem{
		{ContentType: "kana", ContentID: "あ"},
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	res, err := s.Search(ctx, SearchParams{Query: "日"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results for 日, got %d", len(res))
	}
	if res[0].Key() != kNichi {
		t.Errorf("expected most frequent first, got %s", res[0].Key())
	}

	res, _ = s.Search(ctx, SearchParams{Query: "book"})
	if len(res) != 1 || res[0].Key() != kHon {
		t.Errorf("expected 本 for 'book', got %v", res)
	}

	res, _ = s.Search(ctx, SearchParams{Query: "", ContentType: model.Grammar})
	if len(res) != 1 || res[0].Key() != kTe {
		t.Errorf("expected te-form for grammar filter, got %v", res)
	}

	res, _ = s.Search(ctx, SearchParams{Query: "", Limit: 1})
	if len(res) != 1 {
		t.Errorf("expected limit 1, got %d", len(res))
	}
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	n, err := s.Enqueue(ctx, "u1", []model.ItemKey{kNichi, kHon})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 added, got %d", n)
	}

	n, _ = s.Enqueue(ctx, "u1", []model.ItemKey{kNichi, kNihon})
	if n != 1 {
		t.Errorf("expected only 日本 added, got %d", n)
	}

	items, err := s.ReviewItems(ctx, "u1")
	if err != nil {
		t.Fatalf("review items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 queued, got %d", len(items))
	}
	for _, it := range items {
		if it.EaseFactor != model.DefaultEaseFactor || it.LastQuality != -1 || it.NextReviewAt != nil {
			t.Errorf("unexpected initial state: %+v", it)
		}
	}

	_, err = s.Enqueue(ctx, "u1", []model.ItemKey{{ContentType: model.Word, ContentID: "nope"}})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestReviewVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)
	s.Enqueue(ctx, "u1", []model.ItemKey{kNichi})

	next := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	reviewed := next.AddDate(0, 0, -1)
	item := model.NewReviewItem("u1", kNichi)
	item.Repetitions, item.Interval, item.EaseFactor, item.LastQuality = 1, 1, 2.6, 5
	item.NextReviewAt, item.LastReviewedAt = &next, &reviewed

	v, err := s.SaveReviewItem(ctx, item)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}

	got, err := s.ReviewItem(ctx, "u1", kNichi)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Repetitions != 1 || got.EaseFactor != 2.6 || got.NextReviewAt == nil || !got.NextReviewAt.Equal(next) {
		t.Errorf("expected latest version, got %+v", got)
	}

	hist, err := s.ReviewHistory(ctx, "u1", kNichi)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 2 || hist[0].Supersedes != hist[1].ID {
		t.Errorf("expected v2 superseding v1, got %+v / %+v", hist[0], hist[1])
	}

	all, _ := s.ReviewItems(ctx, "u1")
	if len(all) != 1 {
		t.Errorf("expected latest only, got %d", len(all))
	}

	if _, err := s.ReviewItem(ctx, "u2", kNichi); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestDue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)
	s.Enqueue(ctx, "u1", []model.ItemKey{kNichi, kHon, kNihon})
	s.Enqueue(ctx, "u2", []model.ItemKey{kTe})

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(72 * time.Hour)

	overdue := model.NewReviewItem("u1", kHon)
	overdue.NextReviewAt, overdue.LastReviewedAt = &past, &past
	s.SaveReviewItem(ctx, overdue)

	later := model.NewReviewItem("u1", kNichi)
	later.NextReviewAt, later.LastReviewedAt = &future, &past
	s.SaveReviewItem(ctx, later)

	due, err := s.Due(ctx, DueParams{UserID: "u1", Now: now})
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due, got %d", len(due))
	}
	if due[0].Review.Key() != kHon {
		t.Errorf("expected overdue item first, got %s", due[0].Review.Key())
	}
	if due[1].Review.Key() != kNihon || due[1].Catalog.Reading != "にほん" || len(due[1].Catalog.PrerequisiteIDs) != 2 {
		t.Errorf("expected never-scheduled 日本 with catalog data, got %+v", due[1])
	}

	counts, err := s.DueCounts(ctx, now)
	if err != nil {
		t.Fatalf("due counts: %v", err)
	}
	if len(counts) != 2 || counts[0] != (DueCount{UserID: "u1", Due: 2}) || counts[1] != (DueCount{UserID: "u2", Due: 1}) {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestWorkload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)
	s.Enqueue(ctx, "u1", []model.ItemKey{kNichi, kHon, kNihon, kTe})

	// New characters take 22.5s each, the new word 37.5s and the grammar point 67.5s.
	res, err := s.Workload(ctx, WorkloadParams{UserID: "u1", Budget: time.Minute})
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	if len(res.Items) != 2 || res.Deferred != 2 {
		t.Errorf("expected 2 packed and 2 deferred, got %d / %d", len(res.Items), res.Deferred)
	}
	if res.Used > res.Budget {
		t.Errorf("used %v exceeds budget %v", res.Used, res.Budget)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

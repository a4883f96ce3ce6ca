package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/session"
)

// runSession studies every queued item once through the coordinator and
// persists each update, like the study command does.
func runSession(t *testing.T, s *SQLiteStore, userID string, at time.Time, quality func(model.ItemKey) int) *session.Summary {
	t.Helper()
	ctx := context.Background()
	c := session.New(s, s, s, session.WithClock(func() time.Time { return at }))
	sess, err := c.InitializeSession(ctx, userID, 10)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for next := sess.NextItem(); next != nil; next = sess.NextItem() {
		res, err := c.ProcessResponse(sess, session.Response{Key: next.Key, Quality: quality(next.Key), ResponseTimeMs: 1500})
		if err != nil {
			t.Fatalf("process %s: %v", next.Key, err)
		}
		if err := s.ApplyUpdate(ctx, sess.ID, res.Update); err != nil {
			t.Fatalf("apply %s: %v", next.Key, err)
		}
	}
	sum, err := c.EndSession(sess)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	return sum
}

func TestApplyUpdateAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	at := time.Date(2025, 8, 1, 7, 30, 0, 0, time.UTC)
	sum := runSession(t, s, "u1", at, func(k model.ItemKey) int {
		if k == kTe {
			return 1
		}
		return 5
	})
	if sum.Stats.Answered != 4 || sum.Stats.Correct != 3 {
		t.Fatalf("unexpected summary stats: %+v", sum.Stats)
	}

	items, _ := s.ReviewItems(ctx, "u1")
	if len(items) != 4 {
		t.Fatalf("expected 4 review items after session, got %d", len(items))
	}
	nichi, err := s.ReviewItem(ctx, "u1", kNichi)
	if err != nil {
		t.Fatalf("review item: %v", err)
	}
	if nichi.Repetitions != 1 || nichi.Interval != 1 || nichi.LastQuality != 5 {
		t.Errorf("unexpected 日 state: %+v", nichi)
	}
	if nichi.NextReviewAt == nil || !nichi.NextReviewAt.Equal(at.AddDate(0, 0, 1)) {
		t.Errorf("expected next review tomorrow, got %v", nichi.NextReviewAt)
	}

	rec, err := s.PerformanceRecord(ctx, "u1", kTe)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if rec.Attempts != 1 || rec.CorrectAttempts != 0 || rec.AvgResponseTimeMs != 1500 {
		t.Errorf("unexpected te-form record: %+v", rec)
	}
	if rec.DifficultyOffset >= 0 {
		t.Errorf("expected a negative difficulty offset after a miss, got %v", rec.DifficultyOffset)
	}

	hist, err := s.History(ctx, HistoryParams{UserID: "u1"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(hist))
	}
	if hist[0].SessionID != sum.SessionID {
		t.Errorf("expected session id %s, got %s", sum.SessionID, hist[0].SessionID)
	}

	one, _ := s.History(ctx, HistoryParams{UserID: "u1", Key: &kTe})
	if len(one) != 1 || one[0].Correct || one[0].Quality != 1 {
		t.Errorf("unexpected te-form history: %+v", one)
	}

	times, _ := s.ResponseTimes(ctx, "u1", kTe)
	if len(times) != 1 || times[0] != 1500 {
		t.Errorf("unexpected response times: %v", times)
	}
}

func TestApplyUpdateRejectsMismatch(t *testing.T) {
	s := newTestStore(t)
	u := session.Update{
		Key:         kNichi,
		Review:      model.NewReviewItem("u1", kHon),
		Performance: model.NewPerformanceRecord("u1", kNichi),
	}
	if err := s.ApplyUpdate(context.Background(), "s1", u); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLearningStateAndSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	st, err := s.LearningState(ctx, "u1")
	if err != nil {
		t.Fatalf("learning state: %v", err)
	}
	if st.UserID != "u1" || st.AccuracyRate != 0 || len(st.RecentItems) != 0 {
		t.Errorf("expected empty profile, got %+v", st)
	}

	st.PreferNovelty = true
	st.WeaknessByCategory[model.Grammar] = 40
	if err := s.SaveLearningState(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	day1 := time.Date(2025, 8, 1, 7, 0, 0, 0, time.UTC)
	sum := runSession(t, s, "u1", day1, func(k model.ItemKey) int {
		if k.ContentType == model.Grammar {
			return 0
		}
		return 4
	})
	after, err := s.ApplySummary(ctx, sum)
	if err != nil {
		t.Fatalf("apply summary: %v", err)
	}
	if after.CurrentStreak != 1 {
		t.Errorf("expected streak 1, got %d", after.CurrentStreak)
	}
	if after.AccuracyRate != 0.75 {
		t.Errorf("expected accuracy 0.75, got %v", after.AccuracyRate)
	}
	// 0.7*40 + 0.3*100
	if w := after.WeaknessByCategory[model.Grammar]; math.Abs(w-58) > 1e-9 {
		t.Errorf("expected grammar weakness 58, got %v", w)
	}
	if !after.PreferNovelty {
		t.Error("expected novelty preference to survive the summary")
	}

	reloaded, _ := s.LearningState(ctx, "u1")
	if len(reloaded.RecentItems) != 4 {
		t.Errorf("expected 4 recent items from the log, got %d", len(reloaded.RecentItems))
	}

	// A session the next day extends the streak; two more on the same day do not.
	sum2 := runSession(t, s, "u1", day1.AddDate(0, 0, 1), func(model.ItemKey) int { return 5 })
	sum2.EndedAt = day1.AddDate(0, 0, 1)
	after, _ = s.ApplySummary(ctx, sum2)
	if after.CurrentStreak != 2 {
		t.Errorf("expected streak 2, got %d", after.CurrentStreak)
	}
	after, _ = s.ApplySummary(ctx, sum2)
	if after.CurrentStreak != 2 {
		t.Errorf("expected streak to stay 2 on the same day, got %d", after.CurrentStreak)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)
	s.Enqueue(ctx, "u1", []model.ItemKey{kNichi, kHon})

	dbPath := filepath.Join(t.TempDir(), "unused.db")
	st, err := s.Stats(ctx, dbPath, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.CatalogItems != 4 || st.Queued != 2 || st.DueNow != 2 || st.ReviewVersions != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.AvgEaseFactor != model.DefaultEaseFactor {
		t.Errorf("expected avg ease 2.5, got %v", st.AvgEaseFactor)
	}
	if len(st.Types) != 3 {
		t.Fatalf("expected 3 content types, got %+v", st.Types)
	}
	for _, ts := range st.Types {
		if ts.ContentType == model.Character && (ts.Catalog != 2 || ts.Queued != 2) {
			t.Errorf("unexpected character stats: %+v", ts)
		}
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedCatalog(t, src)
	sum := runSession(t, src, "u1", time.Date(2025, 8, 3, 9, 0, 0, 0, time.UTC), func(model.ItemKey) int { return 4 })
	if _, err := src.ApplySummary(ctx, sum); err != nil {
		t.Fatalf("apply summary: %v", err)
	}

	exp, err := src.ExportAll(ctx, "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exp.Catalog) != 4 || len(exp.ReviewItems) != 4 || len(exp.Performance) != 4 || len(exp.Log) != 4 {
		t.Fatalf("unexpected export sizes: catalog=%d reviews=%d perf=%d log=%d",
			len(exp.Catalog), len(exp.ReviewItems), len(exp.Performance), len(exp.Log))
	}

	dst := newTestStore(t)
	if _, err := dst.Import(ctx, exp); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := dst.ReviewItem(ctx, "u1", kNihon)
	if err != nil {
		t.Fatalf("review item after import: %v", err)
	}
	if got.Repetitions != 1 || got.LastQuality != 4 {
		t.Errorf("unexpected imported state: %+v", got)
	}
	hist, _ := dst.History(ctx, HistoryParams{UserID: "u1"})
	if len(hist) != 4 {
		t.Errorf("expected 4 imported log rows, got %d", len(hist))
	}

	again, err := dst.ExportAll(ctx, "u1")
	if err != nil {
		t.Fatalf("export after import: %v", err)
	}
	if exp.LastStudyDate != "2025-08-03" || again.LastStudyDate != exp.LastStudyDate {
		t.Errorf("study date not carried over: exported %q, restored %q", exp.LastStudyDate, again.LastStudyDate)
	}
	if again.LearningState.AccuracyRate != 1 || again.LearningState.CurrentStreak != 1 {
		t.Errorf("unexpected restored profile: %+v", again.LearningState)
	}

	// Importing again does not duplicate log rows.
	dst.Import(ctx, exp)
	hist, _ = dst.History(ctx, HistoryParams{UserID: "u1"})
	if len(hist) != 4 {
		t.Errorf("expected log import to be idempotent, got %d rows", len(hist))
	}
}

func TestApplySummaryBlendsAfterZeroAccuracy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCatalog(t, s)

	day1 := time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)
	first, err := s.ApplySummary(ctx, runSession(t, s, "u1", day1, func(model.ItemKey) int { return 0 }))
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if first.AccuracyRate != 0 {
		t.Fatalf("expected accuracy 0 after a fully missed session, got %v", first.AccuracyRate)
	}

	second, err := s.ApplySummary(ctx, runSession(t, s, "u1", day1.AddDate(0, 0, 1), func(model.ItemKey) int { return 5 }))
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	// 0.7*0 + 0.3*1
	if math.Abs(second.AccuracyRate-0.3) > 1e-9 {
		t.Errorf("expected blended accuracy 0.3, got %v", second.AccuracyRate)
	}
}

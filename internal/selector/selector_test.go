package selector

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
)

var now = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func reviewed(t model.ContentType, id string, dueInDays int) Candidate {
	next := now.AddDate(0, 0, dueInDays)
	last := now.AddDate(0, 0, -1)
	r := model.ReviewItem{ContentType: t, ContentID: id, EaseFactor: 2.5, Repetitions: 2, Interval: 6, NextReviewAt: &next, LastReviewedAt: &last}
	return Candidate{Catalog: model.CatalogItem{ContentType: t, ContentID: id}, Review: &r}
}

func fresh(t model.ContentType, id string) Candidate {
	return Candidate{Catalog: model.CatalogItem{ContentType: t, ContentID: id}}
}

func TestScoreDueFactor(t *testing.T) {
	s := New(DefaultWeights())
	state := model.UserLearningState{}

	due := s.Score(state, reviewed(model.Word, "a", -1), now)
	far := s.Score(state, reviewed(model.Word, "b", 40), now)
	gone := s.Score(state, reviewed(model.Word, "c", 80), now)
	unscheduled := s.Score(state, fresh(model.Word, "d"), now)

	if !near(due.Due, 30) {
		t.Errorf("due item Due = %v, want 30", due.Due)
	}
	if !near(far.Due, 3) {
		t.Errorf("40-day item Due = %v, want 3", far.Due)
	}
	if gone.Due != 0 {
		t.Errorf("80-day item Due = %v, want 0", gone.Due)
	}
	if !near(unscheduled.Due, 30) {
		t.Errorf("new item Due = %v, want 30", unscheduled.Due)
	}
}

func TestScoreWeakness(t *testing.T) {
	s := New(DefaultWeights())
	state := model.UserLearningState{WeaknessByCategory: map[model.ContentType]float64{model.Grammar: 40, model.Word: 95}}

	c := fresh(model.Grammar, "g")
	if f := s.Score(state, c, now); !near(f.Weakness, 0.25*40) {
		t.Errorf("baseline weakness = %v", f.Weakness)
	}

	c.Performance = &model.PerformanceRecord{Attempts: 4, CorrectAttempts: 1, AccuracyRate: 0.25}
	if f := s.Score(state, c, now); !near(f.Weakness, 0.25*(40+22.5)) {
		t.Errorf("adjusted weakness = %v", f.Weakness)
	}

	w := fresh(model.Word, "w")
	w.Performance = &model.PerformanceRecord{Attempts: 2, AccuracyRate: 0}
	if f := s.Score(state, w, now); !near(f.Weakness, 25) {
		t.Errorf("capped weakness = %v, want 25", f.Weakness)
	}

	empty := fresh(model.Grammar, "e")
	empty.Performance = &model.PerformanceRecord{}
	if f := s.Score(state, empty, now); !near(f.Weakness, 10) {
		t.Errorf("record without attempts weakness = %v, want 10", f.Weakness)
	}
}

func TestScoreCurriculumVarietyNovelty(t *testing.T) {
	s := New(DefaultWeights())
	state := model.UserLearningState{
		PreferNovelty: true,
		RecentItems: []model.ItemKey{
			{ContentType: model.Character, ContentID: "1"},
			{ContentType: model.Character, ContentID: "2"},
			{ContentType: model.Word, ContentID: "3"},
		},
	}

	ch := fresh(model.Character, "x")
	f := s.Score(state, ch, now)
	if !near(f.Curriculum, 10) {
		t.Errorf("default curriculum = %v, want 0.2*50", f.Curriculum)
	}
	if !near(f.Variety, 0.15*10) {
		t.Errorf("variety = %v", f.Variety)
	}
	if !near(f.Novelty, 2) {
		t.Errorf("novelty = %v, want 20*0.1", f.Novelty)
	}

	gr := fresh(model.Grammar, "y")
	gr.Catalog.CurriculumPriority = 90
	f = s.Score(state, gr, now)
	if !near(f.Curriculum, 18) || !near(f.Variety, 4.5) {
		t.Errorf("grammar factors = %+v", f)
	}

	old := reviewed(model.Grammar, "z", 3)
	if f := s.Score(state, old, now); f.Novelty != 0 {
		t.Errorf("reviewed item novelty = %v", f.Novelty)
	}
	state.PreferNovelty = false
	if f := s.Score(state, gr, now); f.Novelty != 0 {
		t.Errorf("novelty without preference = %v", f.Novelty)
	}
}

func TestSelectItemsOrdersAndBounds(t *testing.T) {
	s := New(DefaultWeights())
	cands := []Candidate{
		reviewed(model.Word, "later", 40),
		reviewed(model.Word, "due", -2),
		reviewed(model.Word, "soon", 5),
	}
	got, err := s.SelectItems(model.UserLearningState{}, cands, 2, now)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Catalog.ContentID != "due" || got[1].Catalog.ContentID != "soon" {
		t.Errorf("order = %s, %s", got[0].Catalog.ContentID, got[1].Catalog.ContentID)
	}
	if got[0].Score < got[1].Score {
		t.Error("scores not descending")
	}
	if !near(got[0].Score, got[0].Factors.Total()) {
		t.Error("score does not match factor total")
	}

	all, err := s.SelectItems(model.UserLearningState{}, cands, 10, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(cands) {
		t.Errorf("len = %d, want every candidate", len(all))
	}
}

func TestSelectItemsStableTies(t *testing.T) {
	s := New(DefaultWeights())
	var cands []Candidate
	for i := 0; i < 8; i++ {
		cands = append(cands, fresh(model.Character, fmt.Sprintf("c%d", i)))
	}
	for run := 0; run < 3; run++ {
		got, err := s.SelectItems(model.UserLearningState{}, cands, 5, now)
		if err != nil {
			t.Fatal(err)
		}
		for i, it := range got {
			if want := fmt.Sprintf("c%d", i); it.Catalog.ContentID != want {
				t.Fatalf("run %d position %d = %s, want %s", run, i, it.Catalog.ContentID, want)
			}
		}
	}
}

func TestSelectItemsErrors(t *testing.T) {
	s := New(DefaultWeights())
	if _, err := s.SelectItems(model.UserLearningState{}, []Candidate{fresh(model.Word, "a")}, 0, now); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("count 0 err = %v", err)
	}
	if _, err := s.SelectItems(model.UserLearningState{}, nil, 3, now); !errors.Is(err, model.ErrNoEligibleItems) {
		t.Errorf("empty pool err = %v", err)
	}
}

func TestEstimateDuration(t *testing.T) {
	items := []Scored{
		{Candidate: reviewed(model.Character, "a", 0)},
		{Candidate: reviewed(model.Grammar, "b", 0)},
		{Candidate: fresh(model.Word, "c")},
	}
	want := time.Duration((15 + 45 + 37.5) * float64(time.Second))
	if got := EstimateDuration(items); got != want {
		t.Errorf("EstimateDuration = %v, want %v", got, want)
	}
	if got := EstimateDuration(nil); got != 0 {
		t.Errorf("empty = %v", got)
	}
}

func TestRecommendations(t *testing.T) {
	state := model.UserLearningState{
		AccuracyRate:       0.5,
		CurrentStreak:      10,
		WeaknessByCategory: map[model.ContentType]float64{model.Grammar: 75, model.Word: 20},
	}
	items := []Scored{
		{Candidate: reviewed(model.Word, "a", -1)},
		{Candidate: fresh(model.Grammar, "b")},
	}
	recs := Recommendations(state, items, now)
	joined := strings.Join(recs, "\n")
	for _, want := range []string{"1 of 2 items are due", "1 new items", "focus on grammar", "accuracy is low", "10-day streak"} {
		if !strings.Contains(joined, want) {
			t.Errorf("recommendations missing %q:\n%s", want, joined)
		}
	}
	if got := Recommendations(state, nil, now); len(got) != 0 {
		t.Errorf("empty selection gave %v", got)
	}
}

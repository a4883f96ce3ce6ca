// Package selector ranks candidate items for a study session.
package selector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Weights are the coefficients of the five priority factors.
type Weights struct {
	Due        float64 `mapstructure:"due" json:"due"`
	Weakness   float64 `mapstructure:"weakness" json:"weakness"`
	Curriculum float64 `mapstructure:"curriculum" json:"curriculum"`
	Variety    float64 `mapstructure:"variety" json:"variety"`
	Novelty    float64 `mapstructure:"novelty" json:"novelty"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{Due: 0.30, Weakness: 0.25, Curriculum: 0.20, Variety: 0.15, Novelty: 0.10}
}

// Candidate is a catalog item with the learner's state for it, if any.
type Candidate struct {
	Catalog     model.CatalogItem        `json:"catalog"`
	Review      *model.ReviewItem        `json:"review,omitempty"`
	Performance *model.PerformanceRecord `json:"performance,omitempty"`
}

// Key returns the catalog key.
func (c Candidate) Key() model.ItemKey {
	return c.Catalog.Key()
}

// IsNew reports whether the learner has never reviewed the item.
func (c Candidate) IsNew() bool {
	return c.Review == nil || c.Review.IsNew()
}

// IsDue reports whether the item is due at now. Unscheduled items are due.
func (c Candidate) IsDue(now time.Time) bool {
	return c.Review == nil || c.Review.IsDue(now)
}

// Scored is a ranked candidate.
type Scored struct {
	Candidate
	Score   float64               `json:"score"`
	Factors model.PriorityFactors `json:"factors"`
}

// Selector scores and orders candidates. It is stateless.
type Selector struct {
	weights Weights
}

// New creates a Selector.
func New(w Weights) *Selector {
	return &Selector{weights: w}
}

// Score computes the weighted factors for one candidate.
func (s *Selector) Score(state model.UserLearningState, c Candidate, now time.Time) model.PriorityFactors {
	w := s.weights
	var f model.PriorityFactors

	if c.IsDue(now) {
		f.Due = w.Due * 100
	} else {
		f.Due = w.Due * math.Max(0, 50-c.Review.DaysUntilDue(now))
	}

	weakness := state.Weakness(c.Catalog.ContentType)
	if c.Performance != nil && c.Performance.Attempts > 0 {
		weakness += (1 - c.Performance.AccuracyRate) * 30
	}
	f.Weakness = w.Weakness * math.Min(weakness, 100)

	f.Curriculum = w.Curriculum * float64(c.Catalog.Priority())

	same := lo.CountBy(state.RecentItems, func(k model.ItemKey) bool {
		return k.ContentType == c.Catalog.ContentType
	})
	f.Variety = w.Variety * math.Max(0, 30-10*float64(same))

	if state.PreferNovelty && c.IsNew() {
		f.Novelty = 20 * w.Novelty
	}
	return f
}

// SelectItems returns up to count candidates ordered by descending score.
// Equal scores keep the order of candidates.
func (s *Selector) SelectItems(state model.UserLearningState, candidates []Candidate, count int, now time.Time) ([]Scored, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", model.ErrInvalidInput, count)
	}
	if len(candidates) == 0 {
		return nil, model.ErrNoEligibleItems
	}

	scored := lo.Map(candidates, func(c Candidate, _ int) Scored {
		f := s.Score(state, c, now)
		return Scored{Candidate: c, Score: f.Total(), Factors: f}
	})
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > count {
		scored = scored[:count]
	}
	return scored, nil
}

var secondsPerItem = map[model.ContentType]float64{
	model.Character: 15,
	model.Word:      25,
	model.Grammar:   45,
}

const newItemFactor = 1.5

// EstimateDuration is a rough study-time estimate for a list of items.
func EstimateDuration(items []Scored) time.Duration {
	total := lo.SumBy(items, func(it Scored) float64 {
		sec, ok := secondsPerItem[it.Catalog.ContentType]
		if !ok {
			sec = secondsPerItem[model.Word]
		}
		if it.IsNew() {
			sec *= newItemFactor
		}
		return sec
	})
	return time.Duration(total * float64(time.Second))
}

// Recommendations produces short advice for a selected session.
func Recommendations(state model.UserLearningState, items []Scored, now time.Time) []string {
	var out []string
	if len(items) == 0 {
		return out
	}

	due := lo.CountBy(items, func(it Scored) bool { return !it.IsNew() && it.IsDue(now) })
	fresh := lo.CountBy(items, func(it Scored) bool { return it.IsNew() })
	if due > 0 {
		out = append(out, fmt.Sprintf("%d of %d items are due for review", due, len(items)))
	}
	if fresh > 0 {
		out = append(out, fmt.Sprintf("%d new items are introduced", fresh))
	}

	var weakest model.ContentType
	worst := 0.0
	for _, t := range model.ContentTypes {
		if w := state.Weakness(t); w > worst {
			weakest, worst = t, w
		}
	}
	if worst >= 60 {
		out = append(out, fmt.Sprintf("focus on %s items (weakness %.0f)", weakest, worst))
	}

	if state.AccuracyRate > 0 && state.AccuracyRate < 0.6 {
		out = append(out, "recent accuracy is low; keep this session short")
	}
	if state.CurrentStreak >= 7 {
		out = append(out, fmt.Sprintf("%d-day streak, keep it going", state.CurrentStreak))
	}
	return out
}

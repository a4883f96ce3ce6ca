package session

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/nihongo-srs/internal/difficulty"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/predictor"
	"github.com/rcliao/nihongo-srs/internal/srs"
)

// Session is the handle for one study session. A Session is not safe for
// concurrent use; callers process one response at a time.
type Session struct {
	ID     string
	UserID string

	state     State
	plan      model.SessionPlan
	learner   model.UserLearningState
	index     map[model.ItemKey]int
	answered  map[model.ItemKey]bool
	samples   []difficulty.Sample
	results   []outcome
	stats     Stats
	startedAt time.Time
}

type outcome struct {
	key     model.ItemKey
	correct bool
}

// State returns the session's lifecycle stage.
func (s *Session) State() State {
	return s.state
}

// Plan returns a copy of the session plan, including the latest review and
// performance state of every answered item.
func (s *Session) Plan() model.SessionPlan {
	p := s.plan
	p.Items = append([]model.PlannedItem(nil), s.plan.Items...)
	return p
}

// Stats returns the running totals.
func (s *Session) Stats() Stats {
	st := s.stats
	st.Planned = len(s.plan.Items)
	st.Remaining = st.Planned - len(s.answered)
	return st
}

// NextItem returns the first planned item that has not been answered, or
// nil when every item has a response.
func (s *Session) NextItem() *model.PlannedItem {
	for i := range s.plan.Items {
		if !s.answered[s.plan.Items[i].Key] {
			it := s.plan.Items[i]
			return &it
		}
	}
	return nil
}

// ProcessResponse grades one answer. The scheduler, the difficulty adjuster
// and the predictor hook run on copies; the session changes only when every
// step succeeds, so a failed response leaves earlier ones intact.
func (c *Coordinator) ProcessResponse(sess *Session, resp Response) (*ResponseResult, error) {
	if sess == nil || sess.state != SessionActive {
		return nil, model.ErrSessionNotActive
	}
	idx, ok := sess.index[resp.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrItemNotInSession, resp.Key)
	}
	if sess.answered[resp.Key] {
		return nil, fmt.Errorf("%w: %s", model.ErrAlreadyAnswered, resp.Key)
	}
	quality, err := srs.ParseQuality(resp.Quality)
	if err != nil {
		return nil, err
	}
	if resp.ResponseTimeMs < 0 {
		return nil, fmt.Errorf("%w: negative response time %v", model.ErrInvalidInput, resp.ResponseTimeMs)
	}
	at := resp.AnsweredAt
	if at.IsZero() {
		at = c.now()
	}
	at = at.UTC()

	item := sess.plan.Items[idx]
	correct := quality.Passed()

	review, err := srs.Review(item.Review, quality, at)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", resp.Key, err)
	}

	perf := item.Performance
	prior := 0.0
	if perf.Attempts > 0 {
		prior = perf.AvgResponseTimeMs
	}
	perf.Record(correct, resp.ResponseTimeMs)

	adj, err := difficulty.Adjust(difficulty.Sample{
		Accuracy:               perf.AccuracyRate,
		ResponseTimeMs:         resp.ResponseTimeMs,
		PriorAvgResponseTimeMs: prior,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust %s: %w", resp.Key, err)
	}
	perf.DifficultyOffset = difficulty.ApplyOffset(perf.DifficultyOffset, adj.DifficultyDelta)

	load := 0.0
	if n := len(sess.plan.Items); n > 0 {
		load = float64(len(sess.answered)) / float64(n)
	}
	before := predictor.FeaturesFor(item.Review, item.Performance, item.Metadata, at, load)
	predicted, err := c.predictor.PredictRecall(before)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", resp.Key, err)
	}
	residual, err := c.predictor.UpdateModel(before, correct)
	if err != nil {
		return nil, fmt.Errorf("update model %s: %w", resp.Key, err)
	}
	after := predictor.FeaturesFor(review, perf, item.Metadata, at, load)
	timing, err := c.predictor.RecommendTiming(after, c.targetRetention)
	if err != nil {
		return nil, fmt.Errorf("recommend timing %s: %w", resp.Key, err)
	}

	update := Update{
		Key:             resp.Key,
		Quality:         int(quality),
		Correct:         correct,
		ResponseTimeMs:  resp.ResponseTimeMs,
		AnsweredAt:      at,
		Previous:        item.Review,
		Review:          review,
		Performance:     perf,
		Adjustment:      adj,
		PredictedRecall: predicted,
		Residual:        residual,
		Timing:          timing,
	}

	// Commit.
	sess.plan.Items[idx].Review = review
	sess.plan.Items[idx].Performance = perf
	sess.answered[resp.Key] = true
	sess.samples = append(sess.samples, difficulty.Sample{
		Accuracy:               boolToFloat(correct),
		ResponseTimeMs:         resp.ResponseTimeMs,
		PriorAvgResponseTimeMs: prior,
	})
	sess.results = append(sess.results, outcome{key: resp.Key, correct: correct})
	sess.stats.Answered++
	if correct {
		sess.stats.Correct++
		sess.stats.Streak++
	} else {
		sess.stats.Streak = 0
	}
	sess.stats.Accuracy = float64(sess.stats.Correct) / float64(sess.stats.Answered)

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"item":       resp.Key.String(),
		"quality":    int(quality),
		"interval":   review.Interval,
		"ease":       review.EaseFactor,
	}).Debug("response processed")

	return &ResponseResult{
		NextItem: sess.NextItem(),
		Update:   update,
		Stats:    sess.Stats(),
		Feedback: feedback(quality, review, adj),
	}, nil
}

// EndSession completes the session and summarises it. A completed session
// accepts no further responses.
func (c *Coordinator) EndSession(sess *Session) (*Summary, error) {
	if sess == nil || sess.state != SessionActive {
		return nil, model.ErrSessionNotActive
	}
	factor, err := difficulty.AdjustSession(sess.samples)
	if err != nil {
		return nil, err
	}
	sess.state = SessionComplete

	sum := &Summary{
		SessionID:           sess.ID,
		UserID:              sess.UserID,
		StartedAt:           sess.startedAt,
		EndedAt:             c.now().UTC(),
		Stats:               sess.Stats(),
		CategoryAccuracy:    map[model.ContentType]float64{},
		WeaknessUpdates:     map[model.ContentType]float64{},
		DifficultyFactor:    factor,
		RecommendedNextSize: difficulty.ScaleCount(len(sess.plan.Items), factor),
	}

	type tally struct{ n, correct int }
	byType := map[model.ContentType]*tally{}
	for _, r := range sess.results {
		t, ok := byType[r.key.ContentType]
		if !ok {
			t = &tally{}
			byType[r.key.ContentType] = t
		}
		t.n++
		if r.correct {
			t.correct++
		}
	}
	for ct, t := range byType {
		acc := float64(t.correct) / float64(t.n)
		sum.CategoryAccuracy[ct] = acc
		sum.WeaknessUpdates[ct] = blendWeakness(sess.learner.Weakness(ct), acc)
	}

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"answered":   sum.Stats.Answered,
		"accuracy":   sum.Stats.Accuracy,
		"factor":     factor,
	}).Info("session complete")
	return sum, nil
}

const weaknessBlend = 0.3

// blendWeakness moves a 0..100 category weakness towards the miss rate seen
// in this session.
func blendWeakness(prev, accuracy float64) float64 {
	return (1-weaknessBlend)*prev + weaknessBlend*(1-accuracy)*100
}

func feedback(q srs.Quality, review model.ReviewItem, adj difficulty.Adjustment) []string {
	var out []string
	switch {
	case q == srs.Perfect:
		out = append(out, "perfect recall")
	case q.Passed():
		out = append(out, "correct")
	default:
		out = append(out, "missed; this item will come back tomorrow")
	}
	if q.Passed() {
		out = append(out, fmt.Sprintf("next review in %d day(s)", review.Interval))
	}
	switch {
	case adj.TimePressureDelta < 0:
		out = append(out, "slower than usual; take your time")
	case adj.TimePressureDelta > 0:
		out = append(out, "faster than usual")
	}
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

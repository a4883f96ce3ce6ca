// Package session runs study sessions: it builds a plan from the learner's
// queue and turns each graded answer into scheduling updates.
//
// The coordinator never writes to storage. Each ResponseResult carries an
// Update that the caller persists.
package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/rcliao/nihongo-srs/internal/metadata"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/predictor"
	"github.com/rcliao/nihongo-srs/internal/selector"
)

// Catalog lists the content that can be studied.
type Catalog interface {
	ListCatalog(ctx context.Context) ([]model.CatalogItem, error)
}

// Store reads the learner's scheduling and performance history.
type Store interface {
	ReviewItems(ctx context.Context, userID string) ([]model.ReviewItem, error)
	PerformanceRecords(ctx context.Context, userID string) ([]model.PerformanceRecord, error)
}

// Profile supplies the learner profile.
type Profile interface {
	LearningState(ctx context.Context, userID string) (model.UserLearningState, error)
}

// Coordinator wires the scheduler, predictor, adjuster, selector and
// metadata enricher together. It is safe for concurrent use; the sessions it
// returns are not.
type Coordinator struct {
	catalog Catalog
	store   Store
	profile Profile

	selector  *selector.Selector
	predictor *predictor.Predictor
	enricher  *metadata.Enricher
	log       logrus.FieldLogger
	now       func() time.Time

	targetRetention float64
	maxNewItems     int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSelector replaces the default selector.
func WithSelector(s *selector.Selector) Option {
	return func(c *Coordinator) { c.selector = s }
}

// WithPredictor replaces the default predictor.
func WithPredictor(p *predictor.Predictor) Option {
	return func(c *Coordinator) { c.predictor = p }
}

// WithEnricher shares a metadata cache with other callers.
func WithEnricher(e *metadata.Enricher) Option {
	return func(c *Coordinator) { c.enricher = e }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithTargetRetention sets the retention the predictor aims for.
func WithTargetRetention(r float64) Option {
	return func(c *Coordinator) { c.targetRetention = r }
}

// WithMaxNewItems caps how many never-queued catalog items enter the
// candidate pool. Zero means no cap.
func WithMaxNewItems(n int) Option {
	return func(c *Coordinator) { c.maxNewItems = n }
}

// New creates a Coordinator over the given collaborators.
func New(catalog Catalog, store Store, profile Profile, opts ...Option) *Coordinator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Coordinator{
		catalog:         catalog,
		store:           store,
		profile:         profile,
		selector:        selector.New(selector.DefaultWeights()),
		enricher:        metadata.New(nil),
		log:             discard,
		now:             time.Now,
		targetRetention: predictor.DefaultTargetRetention,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.predictor == nil {
		c.predictor = predictor.New(predictor.DefaultWeights(), predictor.WithLogger(c.log))
	}
	return c
}

// InitializeSession builds a plan of up to itemCount items and returns an
// active session.
func (c *Coordinator) InitializeSession(ctx context.Context, userID string, itemCount int) (*Session, error) {
	if itemCount <= 0 {
		return nil, fmt.Errorf("%w: item count must be positive, got %d", model.ErrInvalidInput, itemCount)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	now := c.now().UTC()
	s := &Session{ID: ulid.Make().String(), UserID: userID, state: Idle}
	s.state = SessionBuilding

	state, err := c.profile.LearningState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load learning state: %w", err)
	}
	candidates, err := c.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	selected, err := c.selector.SelectItems(state, candidates, itemCount, now)
	if err != nil {
		return nil, err
	}

	items := lo.Map(selected, func(sc selector.Scored, _ int) model.PlannedItem {
		return c.plan(userID, sc)
	})
	s.plan = model.SessionPlan{
		SessionID:         s.ID,
		UserID:            userID,
		Items:             items,
		EstimatedDuration: selector.EstimateDuration(selected),
		Recommendations:   selector.Recommendations(state, selected, now),
		CreatedAt:         now,
	}
	s.learner = state
	s.index = make(map[model.ItemKey]int, len(items))
	for i, it := range items {
		s.index[it.Key] = i
	}
	s.answered = make(map[model.ItemKey]bool, len(items))
	s.startedAt = now
	s.state = SessionActive

	c.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"user_id":    userID,
		"items":      len(items),
		"candidates": len(candidates),
	}).Info("session started")
	return s, nil
}

// candidates joins the catalog with the learner's queue. Queued items keep
// their review state; unqueued catalog items enter as new.
func (c *Coordinator) candidates(ctx context.Context, userID string) ([]selector.Candidate, error) {
	catalog, err := c.catalog.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	reviews, err := c.store.ReviewItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load review items: %w", err)
	}
	records, err := c.store.PerformanceRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load performance records: %w", err)
	}

	reviewByKey := lo.KeyBy(reviews, func(r model.ReviewItem) model.ItemKey { return r.Key() })
	recordByKey := lo.KeyBy(records, func(p model.PerformanceRecord) model.ItemKey { return p.Key() })

	out := make([]selector.Candidate, 0, len(catalog))
	newCount := 0
	for _, item := range catalog {
		cand := selector.Candidate{Catalog: item}
		if r, ok := reviewByKey[item.Key()]; ok {
			cand.Review = &r
		} else {
			if c.maxNewItems > 0 && newCount >= c.maxNewItems {
				continue
			}
			newCount++
		}
		if p, ok := recordByKey[item.Key()]; ok {
			cand.Performance = &p
		}
		out = append(out, cand)
	}
	return out, nil
}

func (c *Coordinator) plan(userID string, sc selector.Scored) model.PlannedItem {
	key := sc.Key()
	review := model.NewReviewItem(userID, key)
	if sc.Review != nil {
		review = sc.Review.Clone()
	}
	perf := model.NewPerformanceRecord(userID, key)
	if sc.Performance != nil {
		perf = *sc.Performance
	}
	return model.PlannedItem{
		Key:         key,
		Catalog:     sc.Catalog,
		Review:      review,
		Performance: perf,
		Metadata:    c.enricher.Get(sc.Catalog),
		Priority:    sc.Score,
		Factors:     sc.Factors,
	}
}

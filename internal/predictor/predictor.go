// Package predictor estimates recall probability with a fixed logistic model
// and searches for the review delay that hits a target retention.
package predictor

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/nihongo-srs/internal/difficulty"
	"github.com/rcliao/nihongo-srs/internal/model"
)

const (
	// DefaultTargetRetention is used when RecommendTiming gets target <= 0.
	DefaultTargetRetention = 0.8

	minDays       = 0.1
	maxDays       = 365.0
	maxIterations = 20
	tolerance     = 0.01

	// neutralAccuracy stands in for items that were never attempted.
	neutralAccuracy = 0.5
)

// Features is the input vector of the recall model.
//
// TimeSinceLastReview is measured in days. EaseFactor is the raw SM-2 ease.
// The remaining fields are fractions in [0, 1].
type Features struct {
	TimeSinceLastReview    float64 `json:"time_since_last_review"`
	EaseFactor             float64 `json:"ease_factor"`
	UserHistoricalAccuracy float64 `json:"user_historical_accuracy"`
	ContentDifficulty      float64 `json:"content_difficulty"`
	DailyLoadFactor        float64 `json:"daily_load_factor"`
}

// Validate rejects NaN and infinite values.
func (f Features) Validate() error {
	vals := map[string]float64{
		"time_since_last_review":   f.TimeSinceLastReview,
		"ease_factor":              f.EaseFactor,
		"user_historical_accuracy": f.UserHistoricalAccuracy,
		"content_difficulty":       f.ContentDifficulty,
		"daily_load_factor":        f.DailyLoadFactor,
	}
	for name, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %s is %v", model.ErrInvalidInput, name, v)
		}
	}
	return nil
}

// Weights are the signed coefficients of the logistic model.
type Weights struct {
	TimeSinceLastReview    float64 `mapstructure:"time_since_last_review" json:"time_since_last_review"`
	EaseFactor             float64 `mapstructure:"ease_factor" json:"ease_factor"`
	UserHistoricalAccuracy float64 `mapstructure:"user_historical_accuracy" json:"user_historical_accuracy"`
	ContentDifficulty      float64 `mapstructure:"content_difficulty" json:"content_difficulty"`
	DailyLoadFactor        float64 `mapstructure:"daily_load_factor" json:"daily_load_factor"`
	Intercept              float64 `mapstructure:"intercept" json:"intercept"`
}

// DefaultWeights returns the standard coefficients.
func DefaultWeights() Weights {
	return Weights{
		TimeSinceLastReview:    -0.05,
		EaseFactor:             0.3,
		UserHistoricalAccuracy: 0.4,
		ContentDifficulty:      -0.2,
		DailyLoadFactor:        -0.1,
	}
}

func (w Weights) score(f Features) float64 {
	return w.Intercept +
		w.TimeSinceLastReview*f.TimeSinceLastReview +
		w.EaseFactor*f.EaseFactor +
		w.UserHistoricalAccuracy*f.UserHistoricalAccuracy +
		w.ContentDifficulty*f.ContentDifficulty +
		w.DailyLoadFactor*f.DailyLoadFactor
}

// Observer receives every outcome passed to UpdateModel.
type Observer interface {
	Observe(f Features, predicted float64, recalled bool)
}

// Timing is the result of RecommendTiming.
// Converged is false when the search fell back to the final bracket midpoint.
type Timing struct {
	Days        float64 `json:"days"`
	Probability float64 `json:"probability"`
	Iterations  int     `json:"iterations"`
	Converged   bool    `json:"converged"`
}

// Predictor evaluates the recall model. It holds no mutable state and is
// safe for concurrent use.
type Predictor struct {
	weights  Weights
	log      logrus.FieldLogger
	observer Observer
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the logger used for convergence fallbacks.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithObserver installs the UpdateModel hook.
func WithObserver(o Observer) Option {
	return func(p *Predictor) { p.observer = o }
}

// New creates a Predictor with the given weights.
func New(w Weights, opts ...Option) *Predictor {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	p := &Predictor{weights: w, log: discard}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Weights returns the model coefficients.
func (p *Predictor) Weights() Weights {
	return p.weights
}

// PredictRecall returns the probability in [0, 1] that the item is recalled.
func (p *Predictor) PredictRecall(f Features) (float64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return sigmoid(p.weights.score(f)), nil
}

// RecommendTiming searches [0.1, 365] days for the delay at which predicted
// recall equals target. Recall falls as time passes, so a bracket is kept
// and halved up to 20 times. If no midpoint lands within 0.01 of the target
// the midpoint of the final bracket is returned with Converged false.
func (p *Predictor) RecommendTiming(f Features, target float64) (Timing, error) {
	if err := f.Validate(); err != nil {
		return Timing{}, err
	}
	if target <= 0 {
		target = DefaultTargetRetention
	}
	if target >= 1 || math.IsNaN(target) {
		return Timing{}, fmt.Errorf("%w: target retention %v outside (0, 1)", model.ErrInvalidInput, target)
	}

	at := func(days float64) float64 {
		g := f
		g.TimeSinceLastReview = days
		return sigmoid(p.weights.score(g))
	}

	lo, hi := minDays, maxDays
	for i := 1; i <= maxIterations; i++ {
		mid := (lo + hi) / 2
		prob := at(mid)
		if math.Abs(prob-target) < tolerance {
			return Timing{Days: mid, Probability: prob, Iterations: i, Converged: true}, nil
		}
		// The weight on elapsed time is normally negative; a positive one
		// flips the direction of the search.
		rising := p.weights.TimeSinceLastReview > 0
		if (prob > target) != rising {
			lo = mid
		} else {
			hi = mid
		}
	}

	mid := (lo + hi) / 2
	prob := at(mid)
	p.log.WithFields(logrus.Fields{
		"target":      target,
		"days":        mid,
		"probability": prob,
	}).Debug("retention search did not converge, using bracket midpoint")
	return Timing{Days: mid, Probability: prob, Iterations: maxIterations, Converged: false}, nil
}

// UpdateModel reports an observed outcome. Weights are static; the outcome
// is forwarded to the Observer, if any. It returns observed minus predicted.
func (p *Predictor) UpdateModel(f Features, wasRecalled bool) (float64, error) {
	predicted, err := p.PredictRecall(f)
	if err != nil {
		return 0, err
	}
	observed := 0.0
	if wasRecalled {
		observed = 1
	}
	if p.observer != nil {
		p.observer.Observe(f, predicted, wasRecalled)
	}
	return observed - predicted, nil
}

// FeaturesFor assembles the feature vector for an item at now.
// dailyLoad is the fraction of today's review budget already used.
func FeaturesFor(item model.ReviewItem, record model.PerformanceRecord, meta model.ContentMetadata, now time.Time, dailyLoad float64) Features {
	f := Features{
		EaseFactor:             item.EaseFactor,
		UserHistoricalAccuracy: neutralAccuracy,
		ContentDifficulty:      difficulty.Perceived(meta.ComplexityScore, record.DifficultyOffset),
		DailyLoadFactor:        math.Max(0, math.Min(1, dailyLoad)),
	}
	if f.EaseFactor == 0 {
		f.EaseFactor = model.DefaultEaseFactor
	}
	if item.LastReviewedAt != nil {
		f.TimeSinceLastReview = math.Max(0, now.Sub(*item.LastReviewedAt).Hours()/24)
	}
	if record.Attempts > 0 {
		f.UserHistoricalAccuracy = record.AccuracyRate
	}
	return f
}

// sigmoid is evaluated so that large |z| saturates instead of overflowing.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

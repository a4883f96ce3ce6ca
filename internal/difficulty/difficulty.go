// Package difficulty turns recent performance into difficulty and pacing
// signals.
//
// Deltas produced here only shift the perceived difficulty of an item (the
// content-difficulty input of the retention predictor). They never rewrite
// the quality grade given to the scheduler.
package difficulty

import (
	"fmt"
	"math"

	"github.com/rcliao/nihongo-srs/internal/model"
)

const (
	maxIncrease = 0.30
	maxDecrease = -0.40

	minSessionFactor = 0.7
	maxSessionFactor = 1.3

	// Offsets accumulated on a performance record stay within this range.
	maxOffset = 1.0
)

// Sample is one observation of learner performance on an item.
// PriorAvgResponseTimeMs <= 0 means there is no latency history.
type Sample struct {
	Accuracy               float64 `json:"accuracy"`
	ResponseTimeMs         float64 `json:"response_time_ms"`
	PriorAvgResponseTimeMs float64 `json:"prior_avg_response_time_ms"`
}

// Validate rejects accuracy outside [0, 1], negative latencies and NaN.
func (s Sample) Validate() error {
	for _, v := range []float64{s.Accuracy, s.ResponseTimeMs, s.PriorAvgResponseTimeMs} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample value", model.ErrInvalidInput)
		}
	}
	if s.Accuracy < 0 || s.Accuracy > 1 {
		return fmt.Errorf("%w: accuracy %v outside [0, 1]", model.ErrInvalidInput, s.Accuracy)
	}
	if s.ResponseTimeMs < 0 {
		return fmt.Errorf("%w: negative response time %v", model.ErrInvalidInput, s.ResponseTimeMs)
	}
	return nil
}

func (s Sample) hasHistory() bool {
	return s.PriorAvgResponseTimeMs > 0
}

// Adjustment is the outcome of Adjust.
type Adjustment struct {
	DifficultyDelta   float64 `json:"difficulty_delta"`
	TimePressureDelta float64 `json:"time_pressure_delta"`
}

// Adjust computes the difficulty and time-pressure deltas for one sample.
func Adjust(s Sample) (Adjustment, error) {
	if err := s.Validate(); err != nil {
		return Adjustment{}, err
	}
	var adj Adjustment

	switch {
	case s.Accuracy >= 0.9:
		d := 0.10
		if s.Accuracy > 0.95 {
			d += 0.05
		}
		if s.hasHistory() && s.ResponseTimeMs < 0.7*s.PriorAvgResponseTimeMs {
			d += 0.05
		}
		adj.DifficultyDelta = math.Min(d, maxIncrease)
	case s.Accuracy <= 0.5:
		d := -0.15
		if s.Accuracy < 0.3 {
			d -= 0.10
		}
		if s.hasHistory() && s.ResponseTimeMs > 1.5*s.PriorAvgResponseTimeMs {
			d -= 0.10
		}
		adj.DifficultyDelta = math.Max(d, maxDecrease)
	}

	if s.hasHistory() {
		switch ratio := s.ResponseTimeMs / s.PriorAvgResponseTimeMs; {
		case ratio > 2:
			adj.TimePressureDelta = -0.1
		case ratio < 0.5:
			adj.TimePressureDelta = 0.1
		}
	}
	return adj, nil
}

// AdjustSession returns a multiplicative factor in [0.7, 1.3] from the mean
// accuracy of recent samples. No samples yields 1.
func AdjustSession(samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 1, nil
	}
	var sum float64
	for i, s := range samples {
		if err := s.Validate(); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		sum += s.Accuracy
	}
	mean := sum / float64(len(samples))

	factor := 1.0
	switch {
	case mean > 0.9:
		factor *= 1.1
	case mean < 0.6:
		factor *= 0.9
	}
	return clamp(factor, minSessionFactor, maxSessionFactor), nil
}

// ApplyOffset accumulates delta into an existing offset, clamped to [-1, 1].
func ApplyOffset(current, delta float64) float64 {
	return clamp(current+delta, -maxOffset, maxOffset)
}

// Perceived maps a 0..100 complexity score and an accumulated offset to the
// predictor's content difficulty in [0, 1]. A positive offset means the
// learner finds the item easier than its complexity suggests.
func Perceived(complexity int, offset float64) float64 {
	return clamp(float64(complexity)/100-offset, 0, 1)
}

// ScaleCount applies a session factor to an item count, keeping at least one.
func ScaleCount(n int, factor float64) int {
	scaled := int(math.Round(float64(n) * factor))
	if scaled < 1 {
		return 1
	}
	return scaled
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

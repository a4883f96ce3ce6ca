package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Result is the scheduling state produced by one review.
type Result struct {
	Interval     int       `json:"interval"` // days
	Repetitions  int       `json:"repetitions"`
	EaseFactor   float64   `json:"ease_factor"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// Schedule computes the SM-2 state after a review graded quality at now.
//
// A failed recall (quality < 3) resets repetitions to 0 and the interval to
// one day. A pass schedules 1 day, then 6 days, then round(interval × EF).
// The ease factor is adjusted on every review and never drops below 1.3.
func Schedule(quality Quality, repetitions, interval int, easeFactor float64, now time.Time) (Result, error) {
	if !quality.IsValid() {
		return Result{}, fmt.Errorf("%w: quality %d outside [0, 5]", model.ErrInvalidInput, int(quality))
	}
	if repetitions < 0 || interval < 0 {
		return Result{}, fmt.Errorf("%w: negative repetitions (%d) or interval (%d)", model.ErrInvalidInput, repetitions, interval)
	}
	if math.IsNaN(easeFactor) || math.IsInf(easeFactor, 0) {
		return Result{}, fmt.Errorf("%w: ease factor %v", model.ErrInvalidInput, easeFactor)
	}

	var res Result
	if quality.Passed() {
		res.Repetitions = repetitions + 1
		switch res.Repetitions {
		case 1:
			res.Interval = 1
		case 2:
			res.Interval = 6
		default:
			res.Interval = int(math.Round(float64(interval) * easeFactor))
		}
	} else {
		res.Repetitions = 0
		res.Interval = 1
	}

	res.EaseFactor = nextEaseFactor(easeFactor, quality)
	res.NextReviewAt = now.AddDate(0, 0, res.Interval)
	return res, nil
}

// nextEaseFactor applies EF' = EF + (0.1 - (5-q)(0.08 + (5-q)·0.02)), floored at 1.3.
func nextEaseFactor(ef float64, q Quality) float64 {
	d := float64(Perfect - q)
	next := ef + (0.1 - d*(0.08+d*0.02))
	if next < model.MinEaseFactor {
		next = model.MinEaseFactor
	}
	return next
}

// Review applies Schedule to a copy of item. The input is not mutated.
func Review(item model.ReviewItem, quality Quality, now time.Time) (model.ReviewItem, error) {
	ef := item.EaseFactor
	if ef == 0 {
		ef = model.DefaultEaseFactor
	}
	res, err := Schedule(quality, item.Repetitions, item.Interval, ef, now)
	if err != nil {
		return model.ReviewItem{}, err
	}

	out := item.Clone()
	out.Repetitions = res.Repetitions
	out.Interval = res.Interval
	out.EaseFactor = res.EaseFactor
	out.LastQuality = int(quality)
	next := res.NextReviewAt
	out.NextReviewAt = &next
	reviewed := now
	out.LastReviewedAt = &reviewed
	return out, nil
}

// Package srs implements the SM-2 review scheduler.
//
// Schedule is a pure function: given a recall quality and the current
// repetitions, interval and ease factor it returns the next state. Persisting
// the result is the caller's job.
//
//	res, err := srs.Schedule(srs.Perfect, 0, 0, model.DefaultEaseFactor, time.Now())
//	// res.Repetitions == 1, res.Interval == 1
package srs

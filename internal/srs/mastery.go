package srs

import (
	"math"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// IsMastered reports whether an item meets its mastery criteria.
//
// timingConsistency is the caller's measure of how stable response times
// are, in [0, 1]; pass 1 when it is not tracked.
func IsMastered(item model.ReviewItem, record model.PerformanceRecord, criteria model.MasteryCriteria, timingConsistency float64) bool {
	if record.Attempts == 0 {
		return false
	}
	return item.Repetitions >= criteria.MinRepetitions &&
		record.AccuracyRate >= criteria.MinAccuracy &&
		timingConsistency >= criteria.TimingConsistency
}

// TimingConsistency converts the spread of response times into a [0, 1]
// score: 1 when every answer took the same time, falling towards 0 as the
// coefficient of variation grows.
func TimingConsistency(responseTimesMs []float64) float64 {
	if len(responseTimesMs) < 2 {
		return 1
	}
	var sum float64
	for _, v := range responseTimesMs {
		sum += v
	}
	mean := sum / float64(len(responseTimesMs))
	if mean <= 0 {
		return 1
	}
	var sq float64
	for _, v := range responseTimesMs {
		sq += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(sq/float64(len(responseTimesMs))) / mean
	return 1 / (1 + cv)
}

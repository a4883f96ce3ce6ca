package srs

import (
	"fmt"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Quality is the 0..5 recall grade used by SM-2.
type Quality int

const (
	Blackout          Quality = iota // Complete failure to recall.
	Incorrect                        // Wrong, but recognised the answer.
	IncorrectFamiliar                // Wrong, but the answer felt familiar.
	CorrectDifficult                 // Correct with serious effort.
	CorrectHesitation                // Correct after some hesitation.
	Perfect                          // Immediate, confident recall.
)

// PassThreshold is the lowest quality that counts as a successful recall.
const PassThreshold = CorrectDifficult

var qualityNames = [...]string{
	Blackout:          "blackout",
	Incorrect:         "incorrect",
	IncorrectFamiliar: "incorrect-familiar",
	CorrectDifficult:  "correct-difficult",
	CorrectHesitation: "correct-hesitation",
	Perfect:           "perfect",
}

// IsValid reports whether q is within [0, 5].
func (q Quality) IsValid() bool {
	return q >= Blackout && q <= Perfect
}

// Passed reports whether q is a successful recall.
func (q Quality) Passed() bool {
	return q >= PassThreshold
}

func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality validates an integer grade.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.IsValid() {
		return 0, fmt.Errorf("%w: quality %d outside [0, 5]", model.ErrInvalidInput, v)
	}
	return q, nil
}

// QualityFromResponse grades a binary answer using its latency.
// expectedMs <= 0 disables the latency component.
func QualityFromResponse(correct bool, responseTimeMs, expectedMs float64) Quality {
	if !correct {
		if expectedMs > 0 && responseTimeMs > 0 && responseTimeMs < expectedMs {
			// A quick wrong answer is usually a near miss rather than a blank.
			return IncorrectFamiliar
		}
		return Incorrect
	}
	if expectedMs <= 0 || responseTimeMs <= 0 {
		return CorrectHesitation
	}
	switch ratio := responseTimeMs / expectedMs; {
	case ratio <= 0.7:
		return Perfect
	case ratio <= 1.5:
		return CorrectHesitation
	default:
		return CorrectDifficult
	}
}

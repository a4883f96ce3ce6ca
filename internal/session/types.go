package session

import (
	"fmt"
	"time"

	"github.com/rcliao/nihongo-srs/internal/difficulty"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/predictor"
)

// State is the lifecycle stage of a Session.
type State int

const (
	Idle State = iota
	SessionBuilding
	SessionActive
	SessionComplete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SessionBuilding:
		return "building"
	case SessionActive:
		return "active"
	case SessionComplete:
		return "complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Response is one graded answer.
type Response struct {
	Key            model.ItemKey `json:"key"`
	Quality        int           `json:"quality"`
	ResponseTimeMs float64       `json:"response_time_ms"`
	AnsweredAt     time.Time     `json:"answered_at,omitempty"` // zero means now
}

// Update is everything the host must persist for one response.
type Update struct {
	Key             model.ItemKey           `json:"key"`
	Quality         int                     `json:"quality"`
	Correct         bool                    `json:"correct"`
	ResponseTimeMs  float64                 `json:"response_time_ms"`
	AnsweredAt      time.Time               `json:"answered_at"`
	Previous        model.ReviewItem        `json:"previous"`
	Review          model.ReviewItem        `json:"review"`
	Performance     model.PerformanceRecord `json:"performance"`
	Adjustment      difficulty.Adjustment   `json:"adjustment"`
	PredictedRecall float64                 `json:"predicted_recall"`
	Residual        float64                 `json:"residual"`
	Timing          predictor.Timing        `json:"timing"`
}

// Stats are running totals for a session.
type Stats struct {
	Planned   int     `json:"planned"`
	Answered  int     `json:"answered"`
	Correct   int     `json:"correct"`
	Remaining int     `json:"remaining"`
	Accuracy  float64 `json:"accuracy"`
	Streak    int     `json:"streak"` // consecutive correct answers
}

// ResponseResult is returned by ProcessResponse.
type ResponseResult struct {
	NextItem *model.PlannedItem `json:"next_item,omitempty"`
	Update   Update             `json:"update"`
	Stats    Stats              `json:"stats"`
	Feedback []string           `json:"feedback"`
}

// Summary closes a session.
type Summary struct {
	SessionID           string                        `json:"session_id"`
	UserID              string                        `json:"user_id"`
	StartedAt           time.Time                     `json:"started_at"`
	EndedAt             time.Time                     `json:"ended_at"`
	Stats               Stats                         `json:"stats"`
	CategoryAccuracy    map[model.ContentType]float64 `json:"category_accuracy"`
	WeaknessUpdates     map[model.ContentType]float64 `json:"weakness_updates"`
	DifficultyFactor    float64                       `json:"difficulty_factor"`
	RecommendedNextSize int                           `json:"recommended_next_size"`
}

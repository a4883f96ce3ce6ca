package model

import "time"

// DefaultEaseFactor is the ease factor of a freshly queued item.
const DefaultEaseFactor = 2.5

// MinEaseFactor is the SM-2 ease factor floor.
const MinEaseFactor = 1.3

// ReviewItem is the scheduling state of one content item for one user.
type ReviewItem struct {
	UserID         string      `json:"user_id"`
	ContentType    ContentType `json:"content_type"`
	ContentID      string      `json:"content_id"`
	EaseFactor     float64     `json:"ease_factor"`
	Interval       int         `json:"interval"`     // days
	Repetitions    int         `json:"repetitions"`
	LastQuality    int         `json:"last_quality"` // -1 before the first review
	NextReviewAt   *time.Time  `json:"next_review_at,omitempty"`
	LastReviewedAt *time.Time  `json:"last_reviewed_at,omitempty"`
}

// NewReviewItem creates the initial scheduling state for a queued item.
func NewReviewItem(userID string, key ItemKey) ReviewItem {
	return ReviewItem{
		UserID:      userID,
		ContentType: key.ContentType,
		ContentID:   key.ContentID,
		EaseFactor:  DefaultEaseFactor,
		LastQuality: -1,
	}
}

// Key returns the item's catalog key.
func (r ReviewItem) Key() ItemKey {
	return ItemKey{ContentType: r.ContentType, ContentID: r.ContentID}
}

// IsDue reports whether the item should be reviewed at now.
// Items that were never scheduled are due immediately.
func (r ReviewItem) IsDue(now time.Time) bool {
	return r.NextReviewAt == nil || !r.NextReviewAt.After(now)
}

// IsNew reports whether the item has never been reviewed.
func (r ReviewItem) IsNew() bool {
	return r.LastReviewedAt == nil
}

// DaysUntilDue returns the fractional days until the item is due; zero or
// negative when already due.
func (r ReviewItem) DaysUntilDue(now time.Time) float64 {
	if r.NextReviewAt == nil {
		return 0
	}
	return r.NextReviewAt.Sub(now).Hours() / 24.0
}

// Clone returns a deep copy. Pointer fields are copied by value.
func (r ReviewItem) Clone() ReviewItem {
	out := r
	if r.NextReviewAt != nil {
		v := *r.NextReviewAt
		out.NextReviewAt = &v
	}
	if r.LastReviewedAt != nil {
		v := *r.LastReviewedAt
		out.LastReviewedAt = &v
	}
	return out
}

// PerformanceRecord aggregates a user's attempts on one item.
type PerformanceRecord struct {
	UserID            string      `json:"user_id" db:"user_id"`
	ContentType       ContentType `json:"content_type" db:"content_type"`
	ContentID         string      `json:"content_id" db:"content_id"`
	Attempts          int         `json:"attempts" db:"attempts"`
	CorrectAttempts   int         `json:"correct_attempts" db:"correct_attempts"`
	AccuracyRate      float64     `json:"accuracy_rate" db:"accuracy_rate"`
	AvgResponseTimeMs float64     `json:"avg_response_time_ms" db:"avg_response_time_ms"`
	DifficultyOffset  float64     `json:"difficulty_offset" db:"difficulty_offset"` // accumulated adjuster deltas, [-1, 1]
}

// NewPerformanceRecord creates an empty record for a user and item.
func NewPerformanceRecord(userID string, key ItemKey) PerformanceRecord {
	return PerformanceRecord{UserID: userID, ContentType: key.ContentType, ContentID: key.ContentID}
}

// Key returns the item's catalog key.
func (p PerformanceRecord) Key() ItemKey {
	return ItemKey{ContentType: p.ContentType, ContentID: p.ContentID}
}

// Record adds one attempt. Accuracy and average response time are
// recomputed from the running counts.
func (p *PerformanceRecord) Record(correct bool, responseTimeMs float64) {
	prev := float64(p.Attempts)
	p.Attempts++
	if correct {
		p.CorrectAttempts++
	}
	p.AccuracyRate = float64(p.CorrectAttempts) / float64(p.Attempts)
	p.AvgResponseTimeMs = (p.AvgResponseTimeMs*prev + responseTimeMs) / float64(p.Attempts)
}

// UserLearningState is the read-mostly learner profile supplied by the host.
type UserLearningState struct {
	UserID             string                  `json:"user_id"`
	AccuracyRate       float64                 `json:"accuracy_rate"`
	WeaknessByCategory map[ContentType]float64 `json:"weakness_by_category"` // 0..100
	RecentItems        []ItemKey               `json:"recent_items,omitempty"`
	PreferNovelty      bool                    `json:"prefer_novelty"`
	CurrentStreak      int                     `json:"current_streak"`
}

// Weakness returns the baseline weakness for a category, zero when unknown.
func (u UserLearningState) Weakness(t ContentType) float64 {
	if u.WeaknessByCategory == nil {
		return 0
	}
	return u.WeaknessByCategory[t]
}

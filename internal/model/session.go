package model

import "time"

// PriorityFactors is the per-factor breakdown of a selection score.
// Every value is already multiplied by its weight.
type PriorityFactors struct {
	Due        float64 `json:"due"`
	Weakness   float64 `json:"weakness"`
	Curriculum float64 `json:"curriculum"`
	Variety    float64 `json:"variety"`
	Novelty    float64 `json:"novelty"`
}

// Total sums the weighted factors.
func (f PriorityFactors) Total() float64 {
	return f.Due + f.Weakness + f.Curriculum + f.Variety + f.Novelty
}

// PlannedItem is one entry of a session plan.
type PlannedItem struct {
	Key         ItemKey           `json:"key"`
	Catalog     CatalogItem       `json:"catalog"`
	Review      ReviewItem        `json:"review"`
	Performance PerformanceRecord `json:"performance"`
	Metadata    ContentMetadata   `json:"metadata"`
	Priority    float64           `json:"priority"`
	Factors     PriorityFactors   `json:"factors"`
}

// SessionPlan is the ordered set of items chosen for one study session.
// It is not persisted.
type SessionPlan struct {
	SessionID         string        `json:"session_id"`
	UserID            string        `json:"user_id"`
	Items             []PlannedItem `json:"items"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Recommendations   []string      `json:"recommendations,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

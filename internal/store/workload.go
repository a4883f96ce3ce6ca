package store

import (
	"context"
	"time"

	"github.com/rcliao/nihongo-srs/internal/selector"
)

// WorkloadParams holds parameters for budgeted due lists.
type WorkloadParams struct {
	UserID string
	Now    time.Time
	Budget time.Duration // study time available; <= 0 means 10 minutes
}

// WorkloadResult is the set of due reviews that fit in a time budget.
type WorkloadResult struct {
	Budget   time.Duration `json:"budget"`
	Used     time.Duration `json:"used"`
	Items    []DueItem     `json:"items"`
	Deferred int           `json:"deferred"` // due items that did not fit
}

const maxWorkloadScan = 500

// Workload packs due reviews, oldest first, into the given study time.
func (s *SQLiteStore) Workload(ctx context.Context, p WorkloadParams) (*WorkloadResult, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = 10 * time.Minute
	}

	due, err := s.Due(ctx, DueParams{UserID: p.UserID, Now: p.Now, Limit: maxWorkloadScan})
	if err != nil {
		return nil, err
	}

	res := &WorkloadResult{Budget: budget, Items: []DueItem{}}
	for _, d := range due {
		review := d.Review
		cost := selector.EstimateDuration([]selector.Scored{{
			Candidate: selector.Candidate{Catalog: d.Catalog, Review: &review},
		}})
		if res.Used+cost > budget {
			res.Deferred++
			continue
		}
		res.Items = append(res.Items, d)
		res.Used += cost
	}
	return res, nil
}

// Package metadata derives scheduling metadata from catalog entries and
// caches it per item.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Source resolves catalog entries for Lookup.
type Source interface {
	CatalogItem(ctx context.Context, key model.ItemKey) (model.CatalogItem, error)
}

type profile struct {
	predictors model.RetentionPredictors
	pattern    model.ReviewPattern
	mastery    model.MasteryCriteria
}

var defaultPattern = model.ReviewPattern{
	InitialInterval: 1,
	SecondInterval:  3,
	ExpansionFactor: 2.0,
	MinInterval:     1,
	MaxInterval:     365,
}

var defaultMastery = model.MasteryCriteria{
	MinAccuracy:       0.9,
	MinRepetitions:    3,
	TimingConsistency: 0.8,
}

// Characters lean on shape, words on sound and meaning, grammar on context.
var profiles = map[model.ContentType]profile{
	model.Character: {
		predictors: model.RetentionPredictors{Visual: 0.8, Phonetic: 0.5, Semantic: 0.6, Contextual: 0.3},
		pattern:    defaultPattern,
		mastery:    defaultMastery,
	},
	model.Word: {
		predictors: model.RetentionPredictors{Visual: 0.5, Phonetic: 0.7, Semantic: 0.7, Contextual: 0.6},
		pattern:    defaultPattern,
		mastery:    defaultMastery,
	},
	model.Grammar: {
		predictors: model.RetentionPredictors{Visual: 0.2, Phonetic: 0.4, Semantic: 0.6, Contextual: 0.9},
		pattern: model.ReviewPattern{
			InitialInterval: 1,
			SecondInterval:  2,
			ExpansionFactor: 1.8,
			MinInterval:     1,
			MaxInterval:     180,
		},
		mastery: model.MasteryCriteria{MinAccuracy: 0.9, MinRepetitions: 4, TimingConsistency: 0.8},
	},
}

// ComplexityScore combines authored difficulty, frequency and prerequisite
// count into a 0..100-ish score:
//
//	round(0.5*base + 0.3*max(0, 100 - rank/10) + 0.2*(5*prereqs))
func ComplexityScore(base, frequencyRank, prerequisites int) int {
	freq := math.Max(0, 100-float64(frequencyRank)/10)
	return int(math.Round(0.5*float64(base) + 0.3*freq + 0.2*float64(5*prerequisites)))
}

// Compute derives metadata for item without touching any cache.
func Compute(item model.CatalogItem, now time.Time) model.ContentMetadata {
	p, ok := profiles[item.ContentType]
	if !ok {
		p = profile{pattern: defaultPattern, mastery: defaultMastery}
	}
	prereqs := append([]string(nil), item.PrerequisiteIDs...)
	return model.ContentMetadata{
		Key:                  item.Key(),
		BaseDifficulty:       item.BaseDifficulty,
		FrequencyRank:        item.FrequencyRank,
		PrerequisiteIDs:      prereqs,
		ComplexityScore:      ComplexityScore(item.BaseDifficulty, item.FrequencyRank, len(prereqs)),
		RetentionPredictors:  p.predictors,
		OptimalReviewPattern: p.pattern,
		MasteryCriteria:      p.mastery,
		ComputedAt:           now,
	}
}

// Enricher is a read-through metadata cache. Reads are concurrent and
// concurrent misses on one key compute the entry once.
//
// Entries are never invalidated individually; call Clear after reloading
// the catalog.
type Enricher struct {
	src   Source
	now   func() time.Time
	cache sync.Map // item key string -> model.ContentMetadata
	group singleflight.Group

	computed atomic.Int64
}

// New creates an Enricher. src may be nil when only Get is used.
func New(src Source) *Enricher {
	return &Enricher{src: src, now: time.Now}
}

// Get returns metadata for item, computing and caching it on first use.
func (e *Enricher) Get(item model.CatalogItem) model.ContentMetadata {
	key := item.Key().String()
	if v, ok := e.cache.Load(key); ok {
		return detach(v.(model.ContentMetadata))
	}
	v, _, _ := e.group.Do(key, func() (any, error) {
		if v, ok := e.cache.Load(key); ok {
			return v, nil
		}
		m := detach(Compute(item, e.now().UTC()))
		e.cache.Store(key, m)
		e.computed.Add(1)
		return m, nil
	})
	return detach(v.(model.ContentMetadata))
}

// detach copies the slice fields so callers never share the cached backing array.
func detach(m model.ContentMetadata) model.ContentMetadata {
	m.PrerequisiteIDs = slices.Clone(m.PrerequisiteIDs)
	return m
}

// Lookup returns metadata for key, resolving the catalog entry through the
// Source on a cache miss.
func (e *Enricher) Lookup(ctx context.Context, key model.ItemKey) (model.ContentMetadata, error) {
	if v, ok := e.cache.Load(key.String()); ok {
		return detach(v.(model.ContentMetadata)), nil
	}
	if e.src == nil {
		return model.ContentMetadata{}, errors.New("metadata: no catalog source configured")
	}
	item, err := e.src.CatalogItem(ctx, key)
	if err != nil {
		return model.ContentMetadata{}, fmt.Errorf("lookup %s: %w", key, err)
	}
	return e.Get(item), nil
}

// Clear drops every cached entry.
func (e *Enricher) Clear() {
	e.cache.Clear()
}

// Len returns the number of cached entries.
func (e *Enricher) Len() int {
	n := 0
	e.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

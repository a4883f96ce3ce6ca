// Package model defines the core review-engine data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ContentType is the category of a catalog item.
type ContentType string

const (
	Character ContentType = "character"
	Word      ContentType = "word"
	Grammar   ContentType = "grammar"
)

// ContentTypes lists every valid content type in catalog order.
var ContentTypes = []ContentType{Character, Word, Grammar}

// IsValid reports whether t is one of the known content types.
func (t ContentType) IsValid() bool {
	switch t {
	case Character, Word, Grammar:
		return true
	}
	return false
}

func (t ContentType) String() string {
	return string(t)
}

// MarshalText implements encoding.TextMarshaler.
func (t ContentType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: content type %q", ErrInvalidInput, string(t))
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (t *ContentType) UnmarshalText(text []byte) error {
	v, err := ParseContentType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseContentType parses a content type name.
func ParseContentType(s string) (ContentType, error) {
	v := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("%w: content type %q", ErrInvalidInput, s)
	}
	return v, nil
}

// ItemKey identifies a catalog item.
type ItemKey struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
}

// String renders the key as "type:id".
func (k ItemKey) String() string {
	return string(k.ContentType) + ":" + k.ContentID
}

// ParseItemKey parses a "type:id" string.
func ParseItemKey(s string) (ItemKey, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return ItemKey{}, fmt.Errorf("%w: item key %q (want type:id)", ErrInvalidInput, s)
	}
	ct, err := ParseContentType(typ)
	if err != nil {
		return ItemKey{}, err
	}
	return ItemKey{ContentType: ct, ContentID: strings.TrimSpace(id)}, nil
}

// DefaultCurriculumPriority is used when a catalog item has no authored priority.
const DefaultCurriculumPriority = 50

// CatalogItem is one entry of the content catalog.
type CatalogItem struct {
	ContentType        ContentType `json:"content_type" db:"content_type"`
	ContentID          string      `json:"content_id" db:"content_id"`
	Display            string      `json:"display" db:"display"`
	Reading            string      `json:"reading,omitempty" db:"reading"`
	Meaning            string      `json:"meaning,omitempty" db:"meaning"`
	JLPTLevel          int         `json:"jlpt_level,omitempty" db:"jlpt_level"` // 1 (N1) .. 5 (N5), 0 unknown
	BaseDifficulty     int         `json:"base_difficulty" db:"base_difficulty"` // 0..100
	FrequencyRank      int         `json:"frequency_rank" db:"frequency_rank"`
	PrerequisiteIDs    []string    `json:"prerequisite_ids,omitempty" db:"-"`
	CurriculumPriority int         `json:"curriculum_priority,omitempty" db:"curriculum_priority"` // 0 → DefaultCurriculumPriority
}

// Key returns the item's catalog key.
func (c CatalogItem) Key() ItemKey {
	return ItemKey{ContentType: c.ContentType, ContentID: c.ContentID}
}

// Priority returns the authored curriculum priority, defaulting to 50.
func (c CatalogItem) Priority() int {
	if c.CurriculumPriority <= 0 {
		return DefaultCurriculumPriority
	}
	if c.CurriculumPriority > 100 {
		return 100
	}
	return c.CurriculumPriority
}

// Validate checks the fields the engine relies on.
func (c CatalogItem) Validate() error {
	if !c.ContentType.IsValid() {
		return fmt.Errorf("%w: content type %q", ErrInvalidInput, string(c.ContentType))
	}
	if strings.TrimSpace(c.ContentID) == "" {
		return fmt.Errorf("%w: empty content id", ErrInvalidInput)
	}
	if c.BaseDifficulty < 0 || c.BaseDifficulty > 100 {
		return fmt.Errorf("%w: base difficulty %d outside [0, 100]", ErrInvalidInput, c.BaseDifficulty)
	}
	if c.FrequencyRank < 0 {
		return fmt.Errorf("%w: negative frequency rank %d", ErrInvalidInput, c.FrequencyRank)
	}
	return nil
}

// RetentionPredictors are per-modality memorability sub-scores in [0, 1].
type RetentionPredictors struct {
	Visual     float64 `json:"visual"`
	Phonetic   float64 `json:"phonetic"`
	Semantic   float64 `json:"semantic"`
	Contextual float64 `json:"contextual"`
}

// ReviewPattern is the default interval expansion for an item, in days.
type ReviewPattern struct {
	InitialInterval int     `json:"initial_interval"`
	SecondInterval  int     `json:"second_interval"`
	ExpansionFactor float64 `json:"expansion_factor"`
	MinInterval     int     `json:"min_interval"`
	MaxInterval     int     `json:"max_interval"`
}

// MasteryCriteria decide when an item counts as mastered.
type MasteryCriteria struct {
	MinAccuracy       float64 `json:"min_accuracy"`
	MinRepetitions    int     `json:"min_repetitions"`
	TimingConsistency float64 `json:"timing_consistency"`
}

// ContentMetadata is the derived, cacheable view of a catalog item.
type ContentMetadata struct {
	Key                  ItemKey             `json:"key"`
	BaseDifficulty       int                 `json:"base_difficulty"`
	FrequencyRank        int                 `json:"frequency_rank"`
	PrerequisiteIDs      []string            `json:"prerequisite_ids,omitempty"`
	ComplexityScore      int                 `json:"complexity_score"`
	RetentionPredictors  RetentionPredictors `json:"retention_predictors"`
	OptimalReviewPattern ReviewPattern       `json:"optimal_review_pattern"`
	MasteryCriteria      MasteryCriteria     `json:"mastery_criteria"`
	ComputedAt           time.Time           `json:"computed_at"`
}

package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Category is one dimension along which a job offer and a CV are compared.
type Category string

const (
	CategorySkill      Category = "skill"
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
)

// AllCategories returns the categories in a fixed order so that fan-out and
// result assembly never depend on map iteration.
func AllCategories() []Category {
	return []Category{CategorySkill, CategoryExperience, CategoryEducation}
}

// MatchSource identifies which retrieval signal produced a match. The two
// sources are fixed and known; this is a closed set, not a plugin surface.
type MatchSource string

const (
	SourceSemantic MatchSource = "semantic"
	SourceFulltext MatchSource = "fulltext"
)

// CategoryQuery is one search query derived from the job offer text.
type CategoryQuery struct {
	Category Category
	Text     string
}

// CandidateMatch is a single per-source hit for one document. RawScore scales
// differ between sources (cosine similarity vs ts_rank) and are only
// comparable after the fuser normalizes them.
type CandidateMatch struct {
	DocumentID uuid.UUID
	Category   Category
	Source     MatchSource
	RawScore   float64
}

// DocumentScore is the fused result for one document. CategoryScores always
// holds an entry for every requested category, zero when the document never
// matched in it.
type DocumentScore struct {
	DocumentID     uuid.UUID            `json:"document_id"`
	CandidateName  string               `json:"candidate_name,omitempty"`
	Email          string               `json:"email,omitempty"`
	CategoryScores map[Category]float64 `json:"category_scores"`
	CompositeScore float64              `json:"composite_score"`
}

const weightSumTolerance = 1e-6

type Weights struct {
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
}

// ForCategory returns the weight assigned to a category, zero for unknown.
func (w Weights) ForCategory(c Category) float64 {
	switch c {
	case CategorySkill:
		return w.Skill
	case CategoryExperience:
		return w.Experience
	case CategoryEducation:
		return w.Education
	}
	return 0
}

// Validate rejects weight sets that are negative or do not sum to 1.0 within
// tolerance. Weights are never renormalized on the caller's behalf.
func (w Weights) Validate() error {
	if w.Skill < 0 || w.Experience < 0 || w.Education < 0 {
		return fmt.Errorf("weights must be non-negative, got skill=%v experience=%v education=%v",
			w.Skill, w.Experience, w.Education)
	}

	sum := w.Skill + w.Experience + w.Education
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}

	return nil
}

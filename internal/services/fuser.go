package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/DavideCamp/match-cv/internal/models"
)

// FuseScores merges per-category, per-source matches into one ranked list of
// per-document composite scores.
//
// Combination policy: raw scores are min-max normalized to [0,1] within each
// (category, source) result set, since the two sources score on different
// scales (cosine similarity vs ts_rank). Per document and category the max
// across sources is kept, so a document strongly matched by either signal is
// rewarded. The composite is the weighted sum over categories; a document
// missing a category contributes 0 for that term but the entry is always
// present.
//
// The output ordering is fully deterministic: composite descending, ties
// broken by document id ascending.
func FuseScores(matches []models.CandidateMatch, weights models.Weights, topK int) []models.DocumentScore {
	normalized := normalizeMatches(matches)

	type docKey struct {
		doc      uuid.UUID
		category models.Category
	}

	bestPerCategory := make(map[docKey]float64)
	docIDs := make(map[uuid.UUID]struct{})
	for i, match := range normalized {
		docIDs[match.DocumentID] = struct{}{}
		key := docKey{doc: match.DocumentID, category: match.Category}
		if prev, ok := bestPerCategory[key]; !ok || normalized[i].RawScore > prev {
			bestPerCategory[key] = normalized[i].RawScore
		}
	}

	scores := make([]models.DocumentScore, 0, len(docIDs))
	for docID := range docIDs {
		categoryScores := make(map[models.Category]float64, 3)
		composite := 0.0
		for _, category := range models.AllCategories() {
			score := bestPerCategory[docKey{doc: docID, category: category}]
			categoryScores[category] = score
			composite += weights.ForCategory(category) * score
		}

		scores = append(scores, models.DocumentScore{
			DocumentID:     docID,
			CategoryScores: categoryScores,
			CompositeScore: composite,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].CompositeScore != scores[j].CompositeScore {
			return scores[i].CompositeScore > scores[j].CompositeScore
		}
		return scores[i].DocumentID.String() < scores[j].DocumentID.String()
	})

	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}

	return scores
}

// normalizeMatches rescales raw scores to [0,1] via min-max over each
// (category, source) result set. A degenerate set where every score is equal
// maps to 1.0 when the shared score is positive, 0 otherwise.
func normalizeMatches(matches []models.CandidateMatch) []models.CandidateMatch {
	type groupKey struct {
		category models.Category
		source   models.MatchSource
	}
	type bounds struct {
		min, max float64
	}

	groupBounds := make(map[groupKey]bounds)
	for _, match := range matches {
		key := groupKey{category: match.Category, source: match.Source}
		b, ok := groupBounds[key]
		if !ok {
			groupBounds[key] = bounds{min: match.RawScore, max: match.RawScore}
			continue
		}
		if match.RawScore < b.min {
			b.min = match.RawScore
		}
		if match.RawScore > b.max {
			b.max = match.RawScore
		}
		groupBounds[key] = b
	}

	normalized := make([]models.CandidateMatch, len(matches))
	for i, match := range matches {
		b := groupBounds[groupKey{category: match.Category, source: match.Source}]
		normalized[i] = match
		if b.max > b.min {
			normalized[i].RawScore = (match.RawScore - b.min) / (b.max - b.min)
		} else if b.max > 0 {
			normalized[i].RawScore = 1.0
		} else {
			normalized[i].RawScore = 0.0
		}
	}

	return normalized
}

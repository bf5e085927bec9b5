package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DavideCamp/match-cv/internal/models"
)

// The per-category weight classes steer ts_rank: skill counts text and
// metadata equally, experience favors the raw text, education favors the
// structured metadata.
func TestFulltextVectorWeights(t *testing.T) {
	tests := []struct {
		category   models.Category
		textWeight string
		metaWeight string
	}{
		{models.CategorySkill, "'A'", "'A'"},
		{models.CategoryExperience, "'A'", "'B'"},
		{models.CategoryEducation, "'B'", "'A'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			vector := fulltextVector(tt.category)
			assert.Contains(t, vector, "coalesce(raw_text, '')), "+tt.textWeight)
			assert.Contains(t, vector, "coalesce(metadata::text, '')), "+tt.metaWeight)
		})
	}
}

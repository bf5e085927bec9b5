package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		valid   bool
	}{
		{"balanced", Weights{Skill: 0.1, Experience: 0.7, Education: 0.2}, true},
		{"single category", Weights{Skill: 1, Experience: 0, Education: 0}, true},
		{"within tolerance", Weights{Skill: 0.4, Experience: 0.4, Education: 0.2000005}, true},
		{"sum below one", Weights{Skill: 0.2, Experience: 0.2, Education: 0.2}, false},
		{"sum above one", Weights{Skill: 0.5, Experience: 0.6, Education: 0.1}, false},
		{"negative weight", Weights{Skill: 0.5, Experience: 0.6, Education: -0.1}, false},
		{"all zero", Weights{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWeightsForCategory(t *testing.T) {
	w := Weights{Skill: 0.4, Experience: 0.4, Education: 0.2}

	assert.Equal(t, 0.4, w.ForCategory(CategorySkill))
	assert.Equal(t, 0.4, w.ForCategory(CategoryExperience))
	assert.Equal(t, 0.2, w.ForCategory(CategoryEducation))
	assert.Equal(t, 0.0, w.ForCategory(Category("unknown")))
}

func TestAllCategoriesOrderIsStable(t *testing.T) {
	require.Equal(t,
		[]Category{CategorySkill, CategoryExperience, CategoryEducation},
		AllCategories(),
	)
}

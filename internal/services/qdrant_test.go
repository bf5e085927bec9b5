package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryLimitClampsNonPositiveValues(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  uint64
	}{
		{name: "positive limit passes through", limit: 25, want: 25},
		{name: "zero clamps to one", limit: 0, want: 1},
		{name: "negative would wrap around", limit: -5, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queryLimit(tt.limit))
		})
	}
}

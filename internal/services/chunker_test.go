package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	chunker := NewTextChunker()

	t.Run("short text stays in one chunk", func(t *testing.T) {
		chunks := chunker.ChunkText("A short CV paragraph.", 1000, 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "A short CV paragraph.", chunks[0])
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, chunker.ChunkText("", 1000, 100))
		assert.Empty(t, chunker.ChunkText("\n\n  \n\n", 1000, 100))
	})

	t.Run("long text is split", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 40; i++ {
			sb.WriteString("Worked on a backend service handling millions of requests.\n\n")
		}

		chunks := chunker.ChunkText(sb.String(), 200, 20)
		assert.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			assert.NotEmpty(t, chunk)
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 20; i++ {
			sb.WriteString("Ten years of experience with distributed systems and Go.\n\n")
		}

		chunks := chunker.ChunkText(sb.String(), 200, 30)
		require.Greater(t, len(chunks), 1)

		tail := lastNRunes(chunks[0], 30)
		assert.True(t, strings.HasPrefix(chunks[1], tail))
	})

	t.Run("defaults applied for nonsense parameters", func(t *testing.T) {
		chunks := chunker.ChunkText("Some text.", -5, -5)
		require.Len(t, chunks, 1)
	})
}

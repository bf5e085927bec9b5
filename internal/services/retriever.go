package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

// RetrievalSource is one of the two fixed retrieval signals. Both return the
// same CandidateMatch shape so the fuser does not care where a score came
// from.
type RetrievalSource interface {
	Source() models.MatchSource
	Retrieve(ctx context.Context, query models.CategoryQuery, topN int) ([]models.CandidateMatch, error)
}

type semanticSource struct {
	gemini GeminiService
	qdrant QdrantService
}

// NewSemanticSource retrieves documents by vector similarity over their
// embedded chunks.
func NewSemanticSource(gemini GeminiService, qdrant QdrantService) RetrievalSource {
	return &semanticSource{gemini: gemini, qdrant: qdrant}
}

func (s *semanticSource) Source() models.MatchSource {
	return models.SourceSemantic
}

// Retrieve implements RetrievalSource. Several chunks of the same document
// can match; only the best chunk similarity counts for the document.
func (s *semanticSource) Retrieve(ctx context.Context, query models.CategoryQuery, topN int) ([]models.CandidateMatch, error) {
	embedding, err := s.gemini.GenerateEmbedding(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s query: %w", query.Category, err)
	}

	hits, err := s.qdrant.SearchSimilar(ctx, embedding, topN)
	if err != nil {
		return nil, fmt.Errorf("semantic search for %s failed: %w", query.Category, err)
	}

	bestByDoc := make(map[uuid.UUID]float64)
	for _, hit := range hits {
		docID, err := uuid.Parse(hit.DocumentID)
		if err != nil {
			continue
		}
		if prev, ok := bestByDoc[docID]; !ok || hit.Score > prev {
			bestByDoc[docID] = hit.Score
		}
	}

	matches := make([]models.CandidateMatch, 0, len(bestByDoc))
	for docID, score := range bestByDoc {
		matches = append(matches, models.CandidateMatch{
			DocumentID: docID,
			Category:   query.Category,
			Source:     models.SourceSemantic,
			RawScore:   score,
		})
	}

	return matches, nil
}

type fulltextSource struct {
	docRepo repositories.DocumentRepository
}

// NewFulltextSource retrieves documents by Postgres full-text rank over raw
// text and extracted metadata.
func NewFulltextSource(docRepo repositories.DocumentRepository) RetrievalSource {
	return &fulltextSource{docRepo: docRepo}
}

func (s *fulltextSource) Source() models.MatchSource {
	return models.SourceFulltext
}

// Retrieve implements RetrievalSource.
func (s *fulltextSource) Retrieve(ctx context.Context, query models.CategoryQuery, topN int) ([]models.CandidateMatch, error) {
	matches, err := s.docRepo.SearchFulltext(ctx, query.Category, query.Text, topN)
	if err != nil {
		return nil, fmt.Errorf("fulltext search for %s failed: %w", query.Category, err)
	}

	return matches, nil
}

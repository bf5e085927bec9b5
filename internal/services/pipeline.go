package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

// SearchPipeline drives one search run: decompose the job offer, retrieve
// per category from both sources in parallel, fuse, rank.
type SearchPipeline interface {
	Run(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
}

type searchPipeline struct {
	extractor   CategoryExtractor
	sources     []RetrievalSource
	docRepo     repositories.DocumentRepository
	timeout     time.Duration
	topN        int
	defaultTopK int
	logger      *zap.Logger
}

func NewSearchPipeline(
	extractor CategoryExtractor,
	sources []RetrievalSource,
	docRepo repositories.DocumentRepository,
	timeout time.Duration,
	topN int,
	defaultTopK int,
	logger *zap.Logger,
) SearchPipeline {
	return &searchPipeline{
		extractor:   extractor,
		sources:     sources,
		docRepo:     docRepo,
		timeout:     timeout,
		topN:        topN,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

type retrievalResult struct {
	matches  []models.CandidateMatch
	category models.Category
	source   models.MatchSource
	err      error
}

// Run implements SearchPipeline.
func (p *searchPipeline) Run(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	if strings.TrimSpace(req.JobOfferText) == "" {
		return nil, fmt.Errorf("%w: job_offer_text is required", ErrValidation)
	}
	if err := req.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.TopK < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative, got %d", ErrValidation, req.TopK)
	}

	topK := req.TopK
	if topK == 0 {
		topK = p.defaultTopK
	}

	queries, err := p.extractor.Extract(ctx, req.JobOfferText)
	if err != nil {
		return nil, err
	}

	matches, failedSources := p.retrieveAll(ctx, queries)
	if len(failedSources) == len(queries)*len(p.sources) {
		return nil, fmt.Errorf("%w: every retrieval source failed", ErrPipeline)
	}

	scores := FuseScores(matches, req.Weights, 0)
	p.hydrate(scores)
	scores = dedupByCandidate(scores)
	if len(scores) > topK {
		scores = scores[:topK]
	}

	return &models.SearchResponse{
		Results:       scores,
		Degraded:      len(failedSources) > 0,
		FailedSources: failedSources,
	}, nil
}

// retrieveAll fans out one call per category and source, six in total. Each
// call gets its own timeout and its failure is contained: the run proceeds
// with whatever the other calls returned.
func (p *searchPipeline) retrieveAll(ctx context.Context, queries []models.CategoryQuery) ([]models.CandidateMatch, []string) {
	results := make(chan retrievalResult, len(queries)*len(p.sources))

	var wg sync.WaitGroup
	for _, query := range queries {
		for _, source := range p.sources {
			wg.Add(1)
			go func(query models.CategoryQuery, source RetrievalSource) {
				defer wg.Done()

				callCtx, cancel := context.WithTimeout(ctx, p.timeout)
				defer cancel()

				matches, err := source.Retrieve(callCtx, query, p.topN)
				results <- retrievalResult{
					matches:  matches,
					category: query.Category,
					source:   source.Source(),
					err:      err,
				}
			}(query, source)
		}
	}

	wg.Wait()
	close(results)

	var matches []models.CandidateMatch
	var failedSources []string
	for result := range results {
		if result.err != nil {
			p.logger.Warn("retrieval source failed",
				zap.String("category", string(result.category)),
				zap.String("source", string(result.source)),
				zap.Error(result.err),
			)
			failedSources = append(failedSources, fmt.Sprintf("%s/%s", result.category, result.source))
			continue
		}
		matches = append(matches, result.matches...)
	}

	return matches, failedSources
}

// hydrate fills candidate name and email from the document store. A lookup
// failure only costs display fields, never the ranking.
func (p *searchPipeline) hydrate(scores []models.DocumentScore) {
	if len(scores) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(scores))
	for i, score := range scores {
		ids[i] = score.DocumentID
	}

	docs, err := p.docRepo.FindByIDs(ids)
	if err != nil {
		p.logger.Warn("failed to hydrate candidate details", zap.Error(err))
		return
	}

	byID := make(map[uuid.UUID]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	for i := range scores {
		if doc, ok := byID[scores[i].DocumentID]; ok {
			scores[i].CandidateName = doc.CandidateName
			scores[i].Email = doc.Email
		}
	}
}

// dedupByCandidate collapses documents belonging to the same candidate,
// keeping the best-scoring one. Identity falls back from email to name to
// document id. Input must already be sorted best-first.
func dedupByCandidate(scores []models.DocumentScore) []models.DocumentScore {
	seen := make(map[string]struct{}, len(scores))
	deduped := make([]models.DocumentScore, 0, len(scores))

	for _, score := range scores {
		key := strings.ToLower(strings.TrimSpace(score.Email))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(score.CandidateName))
		}
		if key == "" {
			key = score.DocumentID.String()
		}

		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, score)
	}

	return deduped
}

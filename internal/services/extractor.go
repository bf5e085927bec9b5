package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
)

// CategoryExtractor splits a job offer into one retrieval query per
// category. Extraction is a single structured model call; the decomposition
// itself is opaque, but the result is validated here.
type CategoryExtractor interface {
	Extract(ctx context.Context, jobOfferText string) ([]models.CategoryQuery, error)
}

type categoryExtractor struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	logger        *zap.Logger
}

func NewCategoryExtractor(gemini GeminiService, logger *zap.Logger) CategoryExtractor {
	return &categoryExtractor{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		logger:        logger,
	}
}

type categorySplit struct {
	Skill      string `json:"skill"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
}

// Extract implements CategoryExtractor.
func (e *categoryExtractor) Extract(ctx context.Context, jobOfferText string) ([]models.CategoryQuery, error) {
	if strings.TrimSpace(jobOfferText) == "" {
		return nil, fmt.Errorf("%w: empty job offer text", ErrExtraction)
	}

	prompt := e.promptBuilder.BuildCategorySplitPrompt(jobOfferText)

	response, err := e.gemini.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var split categorySplit
	if err := json.Unmarshal([]byte(extractJSON(response)), &split); err != nil {
		return nil, fmt.Errorf("%w: unparseable model response: %v", ErrExtraction, err)
	}

	queries := []models.CategoryQuery{
		{Category: models.CategorySkill, Text: strings.TrimSpace(split.Skill)},
		{Category: models.CategoryExperience, Text: strings.TrimSpace(split.Experience)},
		{Category: models.CategoryEducation, Text: strings.TrimSpace(split.Education)},
	}

	for _, q := range queries {
		if q.Text == "" {
			return nil, fmt.Errorf("%w: empty %s query", ErrExtraction, q.Category)
		}
	}

	e.logger.Debug("job offer decomposed",
		zap.String("skill", split.Skill),
		zap.String("experience", split.Experience),
		zap.String("education", split.Education),
	)

	return queries, nil
}

// extractJSON pulls a JSON object or array out of text that might wrap it in
// markdown fences or prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

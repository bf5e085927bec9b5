package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/services"
)

type SearchHandler struct {
	pipeline services.SearchPipeline
	logger   *zap.Logger
}

func NewSearchHandler(pipeline services.SearchPipeline, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleSearch handles POST /search: run the full matching pipeline for one
// job offer and return ranked candidates.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request payload",
		})
	}

	response, err := h.pipeline.Run(c.Context(), req)
	if err != nil {
		// Extraction failures are caller problems (degenerate job text),
		// pipeline failures are ours.
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrExtraction) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		h.logger.Error("search run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(response)
}

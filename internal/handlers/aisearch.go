package handlers

import (
	"net/http"
	"strings"

	"rentalshop/internal/ai"
	"rentalshop/internal/models"
	"rentalshop/internal/search"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AISearchHandler turns a free-text description into a keyword search.
// Without an extractor (or when extraction fails) it degrades to
// stopword-stripped tokens from the description itself.
// @Summary AI-assisted search
// @Tags search
// @Accept json
// @Produce json
// @Param request body models.AISearchRequest true "Description of the desired item"
// @Success 200 {object} models.AISearchResponse
// @Failure 400 {object} models.AISearchResponse
// @Router /api/search/ai [post]
func AISearchHandler(extractor *ai.Extractor, controller *search.Controller, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AISearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.AISearchResponse{Error: "invalid request body"})
		}
		if strings.TrimSpace(req.Description) == "" {
			return c.JSON(http.StatusBadRequest, models.AISearchResponse{Error: "description is required"})
		}
		if req.Limit < 1 || req.Limit > 50 {
			req.Limit = 10
		}

		ctx := c.Request().Context()
		response := models.AISearchResponse{}

		keywords := ""
		if extractor != nil {
			extracted, err := extractor.ExtractKeywords(ctx, req.Description)
			if err != nil {
				logger.Warn().Err(err).Msg("Keyword extraction failed, using token fallback")
			} else {
				keywords = extracted
			}
		}
		if keywords == "" {
			keywords = ai.FallbackKeywords(req.Description)
			response.Fallback = true
		}
		response.Keywords = keywords

		result := controller.Search(ctx, models.SearchQuery{
			Text:  keywords,
			Mode:  models.ModeBroad,
			Page:  1,
			Limit: req.Limit,
		})
		response.Items = result.Items
		if response.Items == nil {
			response.Items = []models.SearchItem{}
		}

		return c.JSON(http.StatusOK, response)
	}
}

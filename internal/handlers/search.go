package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"rentalshop/internal/analytics"
	"rentalshop/internal/cache"
	"rentalshop/internal/models"
	"rentalshop/internal/search"

	"github.com/labstack/echo/v4"
)

// SearchHandler serves inventory search requests
// @Summary Search inventory
// @Description Searches items across the configured backends with automatic fallback
// @Tags search
// @Produce json
// @Param q query string false "Query text; empty lists all items"
// @Param mode query string false "Search mode: exact, fuzzy, broad or auto" default(auto)
// @Param category query string false "Exact category filter"
// @Param hasImage query bool false "Only items with an image"
// @Param sort query string false "Sort order: oldest for chronological browsing"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size, capped at 100" default(20)
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.SearchResponse
// @Router /api/search [get]
func SearchHandler(controller *search.Controller, responseCache *cache.SearchCache, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := models.SearchQuery{
			Text:     strings.TrimSpace(c.QueryParam("q")),
			Mode:     c.QueryParam("mode"),
			Category: c.QueryParam("category"),
			Sort:     c.QueryParam("sort"),
		}

		if q.Mode == "" {
			q.Mode = models.ModeAuto
		}
		if !models.ValidMode(q.Mode) {
			return c.JSON(http.StatusBadRequest, models.SearchResponse{
				Items: []models.SearchItem{},
				Error: "invalid mode, expected exact, fuzzy, broad or auto",
			})
		}

		q.HasImage, _ = strconv.ParseBool(c.QueryParam("hasImage"))
		q.Page, _ = strconv.Atoi(c.QueryParam("page"))
		q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
		if q.Page < 1 {
			q.Page = 1
		}
		if q.Limit < 1 {
			q.Limit = 20
		}

		key := cache.Key(q)
		if cached, ok := responseCache.Get(key); ok {
			return c.JSON(http.StatusOK, cached)
		}

		response := controller.Search(c.Request().Context(), q)
		if response.Error == "" {
			responseCache.Set(key, response)
		}
		if tracker != nil {
			tracker.TrackSearch(q, response)
		}

		return c.JSON(http.StatusOK, response)
	}
}

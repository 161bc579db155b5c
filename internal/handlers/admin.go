package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"rentalshop/internal/analytics"
	"rentalshop/internal/auth"
	"rentalshop/internal/cache"
	"rentalshop/internal/k8s"
	"rentalshop/internal/models"
	"rentalshop/internal/search"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// LoginHandler authenticates the shop admin and returns a session token
// @Summary Admin login
// @Tags admin
// @Accept json
// @Produce json
// @Param credentials body models.AdminAuthRequest true "Credentials"
// @Success 200 {object} models.AdminAuthResponse
// @Failure 401 {object} models.AdminAuthResponse
// @Router /api/admin/login [post]
func LoginHandler(authManager *auth.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AdminAuthRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.AdminAuthResponse{Error: "invalid request body"})
		}

		token, err := authManager.Authenticate(req.Username, req.Password)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.AdminAuthResponse{Error: "invalid credentials"})
		}

		return c.JSON(http.StatusOK, models.AdminAuthResponse{Success: true, Token: token})
	}
}

// ReindexHandler triggers a full index rebuild. With a Kubernetes client
// and job image configured the rebuild runs as a Job; otherwise it runs
// in-process in the background.
// @Summary Trigger full reindex
// @Tags admin
// @Produce json
// @Success 202 {object} models.ReindexResponse
// @Failure 500 {object} models.ReindexResponse
// @Router /api/admin/reindex [post]
func ReindexHandler(reindexer *search.Reindexer, k8sClient *k8s.Client, jobImage string, responseCache *cache.SearchCache, logger zerolog.Logger) echo.HandlerFunc {
	// Guards the in-process path: two concurrent rebuilds would race each
	// other's index drop/recreate.
	var inFlight atomic.Bool

	return func(c echo.Context) error {
		if k8sClient != nil && jobImage != "" {
			jobName := fmt.Sprintf("search-reindex-%d", time.Now().Unix())
			if err := k8sClient.CreateReindexJob(c.Request().Context(), jobName, jobImage); err != nil {
				logger.Error().Err(err).Msg("Failed to create reindex job")
				return c.JSON(http.StatusInternalServerError, models.ReindexResponse{Error: "failed to create reindex job"})
			}
			responseCache.Clear()
			return c.JSON(http.StatusAccepted, models.ReindexResponse{
				Success: true,
				Message: "reindex job created",
				JobName: jobName,
			})
		}

		if !inFlight.CompareAndSwap(false, true) {
			return c.JSON(http.StatusConflict, models.ReindexResponse{Error: "reindex already running"})
		}

		go func() {
			defer inFlight.Store(false)
			// Detached from the request: a full rebuild outlives any
			// sensible HTTP timeout.
			ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
			defer cancel()
			if _, err := reindexer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("In-process reindex failed")
			}
			responseCache.Clear()
		}()

		return c.JSON(http.StatusAccepted, models.ReindexResponse{
			Success: true,
			Message: "reindex started in-process",
		})
	}
}

// ReindexStatusHandler reports the state of a previously created reindex job
// @Summary Reindex job status
// @Tags admin
// @Produce json
// @Param name path string true "Job name"
// @Success 200 {object} models.ReindexResponse
// @Failure 404 {object} models.ReindexResponse
// @Router /api/admin/reindex/{name} [get]
func ReindexStatusHandler(k8sClient *k8s.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		if k8sClient == nil {
			return c.JSON(http.StatusNotFound, models.ReindexResponse{Error: "job tracking not available"})
		}

		jobName := c.Param("name")
		job, err := k8sClient.GetJobStatus(c.Request().Context(), jobName)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.ReindexResponse{Error: "job not found"})
		}

		message := "running"
		switch {
		case job.Status.Succeeded > 0:
			message = "succeeded"
		case job.Status.Failed > 0:
			message = "failed"
		}

		return c.JSON(http.StatusOK, models.ReindexResponse{
			Success: job.Status.Failed == 0,
			Message: message,
			JobName: jobName,
		})
	}
}

// AnalyticsSummaryHandler aggregates recent search traffic
// @Summary Search analytics summary
// @Tags admin
// @Produce json
// @Param period query string false "today, last_7_days or last_30_days" default(today)
// @Success 200 {object} models.AnalyticsSummaryResponse
// @Failure 500 {object} models.AnalyticsSummaryResponse
// @Router /api/admin/analytics [get]
func AnalyticsSummaryHandler(service *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		summary, err := service.GetSummary(c.Request().Context(), c.QueryParam("period"))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.AnalyticsSummaryResponse{Error: "failed to load analytics"})
		}
		return c.JSON(http.StatusOK, summary)
	}
}

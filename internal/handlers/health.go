package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rentalshop/internal/models"
	"rentalshop/internal/search"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles basic health check requests
// @Summary Health check
// @Description Returns service liveness
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func HealthHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
		}

		return c.JSON(http.StatusOK, response)
	}
}

// DBHealthHandler handles database health check requests
// @Summary Database health check
// @Description Returns database connectivity and ping latency
// @Tags health
// @Produce json
// @Success 200 {object} models.DBHealthResponse
// @Failure 503 {object} models.DBHealthResponse
// @Router /healthz/db [get]
func DBHealthHandler(db *sqlx.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.DBHealthResponse{
			Status:    "unknown",
			Timestamp: time.Now().UTC(),
			Connected: false,
			Latency:   0,
		}

		if db == nil {
			response.Status = "unhealthy"
			response.Error = "Database connection not initialized"
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := db.PingContext(ctx)
		response.Latency = time.Since(start)

		if err != nil {
			response.Status = "unhealthy"
			response.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		var count int
		if err := db.Get(&count, "SELECT 1"); err != nil {
			response.Status = "unhealthy"
			response.Error = fmt.Sprintf("Database query failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		response.Status = "healthy"
		response.Connected = true

		return c.JSON(http.StatusOK, response)
	}
}

// SearchHealthHandler reports the reachability of each search backend
// @Summary Search backend health check
// @Description Returns per-backend connection state
// @Tags health
// @Produce json
// @Success 200 {object} models.SearchHealthResponse
// @Router /healthz/search [get]
func SearchHealthHandler(controller *search.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		health := controller.Healthy(c.Request().Context())

		state := func(backend string) string {
			up, configured := health[backend]
			if !configured {
				return "disabled"
			}
			if up {
				return "connected"
			}
			return "disconnected"
		}

		response := models.SearchHealthResponse{
			Status:        "healthy",
			Timestamp:     time.Now().UTC(),
			Elasticsearch: state(search.BackendElasticsearch),
			Typesense:     state(search.BackendTypesense),
		}
		// The database fallback keeps search available even with every
		// index backend down, so this endpoint never reports unhealthy.
		return c.JSON(http.StatusOK, response)
	}
}

// RootHandler handles requests to the root endpoint
func RootHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Rental Shop Search API",
			"version": version,
			"status":  "running",
		})
	}
}

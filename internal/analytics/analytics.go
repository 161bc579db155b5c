package analytics

import (
	"context"
	"fmt"
	"time"

	"rentalshop/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Period constants for analytics queries
const (
	PeriodToday      = "today"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// Service records search traffic and aggregates it for the admin
// dashboard. Tracking is best-effort: a failed insert is logged and the
// search response is unaffected.
type Service struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewService creates a new analytics service
func NewService(db *sqlx.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// TrackSearch records one search event asynchronously.
func (s *Service) TrackSearch(q models.SearchQuery, resp *models.SearchResponse) {
	backend := "database"
	if resp.Elasticsearch != nil && *resp.Elasticsearch {
		backend = "elasticsearch"
	} else if resp.Typesense != nil && *resp.Typesense {
		backend = "typesense"
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO search_events (query_text, mode, backend, fallback, hit_count, latency_ms)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			q.Text, q.Mode, backend, resp.Fallback, resp.Total, resp.SearchTime)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to track search event")
		}
	}()
}

// GetSummary aggregates search activity over the given period.
func (s *Service) GetSummary(ctx context.Context, period string) (*models.AnalyticsSummaryResponse, error) {
	now := time.Now().UTC()
	var start time.Time

	switch period {
	case PeriodLast7Days:
		start = now.AddDate(0, 0, -7)
	case PeriodLast30Days:
		start = now.AddDate(0, 0, -30)
	default:
		period = PeriodToday
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	summary := &models.AnalyticsSummaryResponse{Period: period}

	var totals struct {
		Total        int     `db:"total"`
		Fallbacks    int     `db:"fallbacks"`
		AvgLatencyMS float64 `db:"avg_latency"`
	}
	err := s.db.GetContext(ctx, &totals,
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN fallback THEN 1 ELSE 0 END), 0) AS fallbacks,
		        COALESCE(AVG(latency_ms), 0) AS avg_latency
		 FROM search_events WHERE created_at >= $1`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate search events: %w", err)
	}

	summary.TotalSearches = totals.Total
	summary.AvgLatencyMS = totals.AvgLatencyMS
	if totals.Total > 0 {
		summary.FallbackRate = float64(totals.Fallbacks) / float64(totals.Total)
	}

	err = s.db.SelectContext(ctx, &summary.TopQueries,
		`SELECT query_text, COUNT(*) AS count
		 FROM search_events
		 WHERE created_at >= $1 AND query_text <> ''
		 GROUP BY query_text
		 ORDER BY count DESC, query_text
		 LIMIT 10`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load top queries: %w", err)
	}
	if summary.TopQueries == nil {
		summary.TopQueries = []models.TopQuery{}
	}
	return summary, nil
}

package search

import (
	"context"
	"fmt"
	"time"

	"rentalshop/internal/database"
	"rentalshop/internal/models"

	"github.com/rs/zerolog"
)

// ReindexReport summarizes one full rebuild run.
type ReindexReport struct {
	Backend  string        `json:"backend"`
	Total    int           `json:"total"`
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// ReportSender delivers reindex reports to the shop operator. Delivery
// failures are logged and never fail the run.
type ReportSender interface {
	SendReindexReport(ctx context.Context, reports []ReindexReport) error
}

// Reindexer drops and rebuilds every search index from the database.
// Throughput is throttled with a fixed inter-batch delay so a full
// rebuild never saturates the shared database or the search backends.
type Reindexer struct {
	store   *database.ItemStore
	engines []Engine
	logger  zerolog.Logger
	sender  ReportSender

	batchSize int
	bulkSize  int
	delay     time.Duration
}

func NewReindexer(store *database.ItemStore, engines []Engine, batchSize, bulkSize, delayMS int, sender ReportSender, logger zerolog.Logger) *Reindexer {
	if batchSize < 1 {
		batchSize = 100
	}
	if bulkSize < 1 {
		bulkSize = 50
	}
	return &Reindexer{
		store:     store,
		engines:   engines,
		logger:    logger,
		sender:    sender,
		batchSize: batchSize,
		bulkSize:  bulkSize,
		delay:     time.Duration(delayMS) * time.Millisecond,
	}
}

// Run rebuilds all engines sequentially and returns per-backend reports.
// One backend failing does not stop the others.
func (r *Reindexer) Run(ctx context.Context) ([]ReindexReport, error) {
	ids, err := r.store.ListItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for reindex: %w", err)
	}
	r.logger.Info().Int("total", len(ids)).Msg("Starting full reindex")

	var reports []ReindexReport
	var firstErr error
	for _, engine := range r.engines {
		report, err := r.rebuildEngine(ctx, engine, ids)
		if err != nil {
			r.logger.Error().Err(err).Str("backend", engine.Name()).Msg("Reindex failed")
			if firstErr == nil {
				firstErr = err
			}
		}
		reports = append(reports, report)
	}

	if r.sender != nil {
		if err := r.sender.SendReindexReport(ctx, reports); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to send reindex report")
		}
	}
	return reports, firstErr
}

func (r *Reindexer) rebuildEngine(ctx context.Context, engine Engine, ids []int) (ReindexReport, error) {
	start := time.Now()
	report := ReindexReport{Backend: engine.Name(), Total: len(ids)}

	if err := engine.Rebuild(ctx); err != nil {
		report.Failed = len(ids)
		report.Duration = time.Since(start)
		return report, err
	}

	for offset := 0; offset < len(ids); offset += r.batchSize {
		end := offset + r.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		docs, err := r.loadBatch(ctx, ids[offset:end])
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("failed to load reindex batch at offset %d: %w", offset, err)
		}

		for i := 0; i < len(docs); i += r.bulkSize {
			j := i + r.bulkSize
			if j > len(docs) {
				j = len(docs)
			}
			failed, err := engine.BulkUpsert(ctx, docs[i:j])
			if err != nil {
				report.Duration = time.Since(start)
				return report, err
			}
			report.Failed += failed
			report.Indexed += len(docs[i:j]) - failed
		}

		elapsed := time.Since(start)
		rate := float64(report.Indexed+report.Failed) / elapsed.Seconds()
		remaining := len(ids) - end
		var eta time.Duration
		if rate > 0 {
			eta = time.Duration(float64(remaining)/rate) * time.Second
		}
		r.logger.Info().
			Str("backend", engine.Name()).
			Int("done", end).
			Int("total", len(ids)).
			Float64("docs_per_sec", rate).
			Dur("eta", eta).
			Msg("Reindex progress")

		if r.delay > 0 && end < len(ids) {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				report.Duration = time.Since(start)
				return report, ctx.Err()
			}
		}
	}

	report.Duration = time.Since(start)
	r.logger.Info().
		Str("backend", engine.Name()).
		Int("indexed", report.Indexed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Reindex complete")
	return report, nil
}

// loadBatch fetches one id range with sizes and tags and builds documents.
func (r *Reindexer) loadBatch(ctx context.Context, ids []int) ([]*models.SearchDocument, error) {
	items, err := r.store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sizes, err := r.store.GetSizes(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := r.store.GetTags(ctx, ids)
	if err != nil {
		return nil, err
	}

	docs := make([]*models.SearchDocument, 0, len(items))
	for i := range items {
		items[i].Sizes = sizes[items[i].ID]
		items[i].Tags = tags[items[i].ID]
		docs = append(docs, BuildDocument(&items[i]))
	}
	return docs, nil
}

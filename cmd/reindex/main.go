package main

import (
	"context"
	"os"
	"time"

	"rentalshop/internal/config"
	"rentalshop/internal/crypto"
	"rentalshop/internal/database"
	"rentalshop/internal/email"
	"rentalshop/internal/search"
)

// Standalone full-reindex binary: runs as a Kubernetes Job or from the
// command line, rebuilds every configured index from the database, then
// exits non-zero if any backend failed.
func main() {
	cfg := config.Load()
	logger := cfg.SetupLogger()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("Encryption setup failed")
	}
	store := database.NewItemStore(db, cipher)

	var engines []search.Engine
	if cfg.ElasticsearchURL != "" {
		engine, err := search.NewElasticEngine(cfg.ElasticsearchURL, cfg.IndexName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Elasticsearch setup failed")
		}
		engines = append(engines, engine)
	}
	if cfg.TypesenseURL != "" {
		engines = append(engines, search.NewTypesenseEngine(cfg.TypesenseURL, cfg.TypesenseAPIKey, cfg.IndexName, logger))
	}
	if len(engines) == 0 {
		logger.Fatal().Msg("No search backend configured, nothing to reindex")
	}

	var sender search.ReportSender
	if cfg.SendGridAPIKey != "" {
		sender = email.NewService(cfg.SendGridAPIKey, cfg.OperatorEmail)
	}

	reindexer := search.NewReindexer(store, engines,
		cfg.ReindexBatchSize, cfg.ReindexBulkSize, cfg.ReindexDelayMS, sender, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	reports, err := reindexer.Run(ctx)
	for _, report := range reports {
		logger.Info().
			Str("backend", report.Backend).
			Int("indexed", report.Indexed).
			Int("failed", report.Failed).
			Dur("duration", report.Duration).
			Msg("Reindex report")
	}
	if err != nil {
		logger.Error().Err(err).Msg("Reindex finished with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Reindex finished")
}

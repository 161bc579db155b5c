package main

import (
	"context"
	"time"

	"rentalshop/internal/config"
	"rentalshop/internal/database"
	"rentalshop/internal/server"
)

// @title Rental Shop Search API
// @version 1.0
// @description Inventory search and indexing service for a Vietnamese formal-wear rental shop.
// @BasePath /
func main() {
	cfg := config.Load()
	logger := cfg.SetupLogger()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("Schema setup failed")
	}
	cancel()

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Server setup failed")
	}
	srv.Initialize()
	defer srv.Shutdown()

	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}

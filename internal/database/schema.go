package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the inventory tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id SERIAL PRIMARY KEY,
			category TEXT NOT NULL,
			category_counter INTEGER NOT NULL,
			name TEXT NOT NULL,
			image_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS item_sizes (
			id SERIAL PRIMARY KEY,
			item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			on_hand INTEGER NOT NULL DEFAULT 0,
			price BIGINT NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS item_tags (
			item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (item_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS category_counters (
			category TEXT PRIMARY KEY,
			counter INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS search_events (
			id SERIAL PRIMARY KEY,
			query_text TEXT NOT NULL,
			mode VARCHAR(16) NOT NULL,
			backend VARCHAR(32) NOT NULL,
			fallback BOOLEAN NOT NULL DEFAULT FALSE,
			hit_count INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_sizes_item_id ON item_sizes(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_item_tags_item_id ON item_tags(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_search_events_created_at ON search_events(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentalshop/internal/crypto"
	"rentalshop/internal/database"
	"rentalshop/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*database.ItemStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Plaintext values pass through decryption untouched, which keeps the
	// fixtures readable.
	cipher, err := crypto.NewCipher("test-secret")
	require.NoError(t, err)
	return database.NewItemStore(sqlx.NewDb(db, "sqlmock"), cipher), mock
}

func testHit(id int, name, category string, tags []string, image string) models.SearchHit {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return models.SearchHit{
		Document: models.SearchDocument{
			ID:          id,
			FormattedID: "AD-000001",
			Name:        name,
			Category:    category,
			ImageURL:    image,
			Tags:        tags,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Score: 7.5,
	}
}

func TestReconcilePrefersAuthoritativeFields(t *testing.T) {
	store, mock := newMockStore(t)
	r := NewReconciler(store, zerolog.Nop())

	now := time.Now()
	mock.ExpectQuery(`SELECT id, category, category_counter, name, image_url`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(3, "Áo Dài", 1, "Áo Dài Cưới Đỏ", "https://cdn/fresh.jpg", now, now))
	mock.ExpectQuery(`SELECT it.item_id, t.name`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "name"}).
			AddRow(3, "cưới").
			AddRow(3, "đỏ"))

	hits := []models.SearchHit{
		testHit(3, "Áo Dài Cưới Đỏ", "Áo Dài", []string{"stale"}, "https://cdn/stale.jpg"),
	}
	items := r.Reconcile(context.Background(), hits, "áo dài")

	require.Len(t, items, 1)
	require.NotNil(t, items[0].ImageURL)
	assert.Equal(t, "https://cdn/fresh.jpg", *items[0].ImageURL)
	assert.Equal(t, []string{"cưới", "đỏ"}, items[0].Tags)
	assert.Equal(t, 7.5, items[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileDegradesToIndexOnDatabaseError(t *testing.T) {
	store, mock := newMockStore(t)
	r := NewReconciler(store, zerolog.Nop())

	mock.ExpectQuery(`SELECT id, category`).
		WillReturnError(errors.New("connection refused"))

	hits := []models.SearchHit{
		testHit(3, "Áo Dài Cưới Đỏ", "Áo Dài", []string{"cưới"}, "https://cdn/indexed.jpg"),
	}
	items := r.Reconcile(context.Background(), hits, "áo dài")

	require.Len(t, items, 1, "a reconciliation failure must not fail the search")
	require.NotNil(t, items[0].ImageURL)
	assert.Equal(t, "https://cdn/indexed.jpg", *items[0].ImageURL)
	assert.Equal(t, []string{"cưới"}, items[0].Tags)
}

func TestReconcileEmptyHits(t *testing.T) {
	store, _ := newMockStore(t)
	r := NewReconciler(store, zerolog.Nop())

	items := r.Reconcile(context.Background(), nil, "áo dài")
	assert.Empty(t, items)
}

func TestMatchesLiterally(t *testing.T) {
	item := models.SearchItem{
		Name:        "Áo Dài Cưới Đỏ",
		FormattedID: "AD-000831",
		Category:    "Áo Dài",
		Tags:        []string{"truyền thống"},
	}

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"verbatim substring", "Dài Cưới", true},
		{"case-insensitive", "áo dài cưới", true},
		{"diacritic-free query", "ao dai cuoi", true},
		{"formatted id", "ad-000831", true},
		{"tag match", "truyen thong", true},
		{"fuzzy near-miss", "vest", false},
		{"partial word elsewhere", "vay", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesLiterally(item, tt.query))
		})
	}
}

func TestMergeHighlightsFoldsSearchSubfields(t *testing.T) {
	merged := mergeHighlights(map[string][]string{
		"name":        {"<em>Áo Dài</em> Cưới"},
		"name.search": {"<em>ao dai</em> cuoi", "<em>Áo Dài</em> Cưới"},
		"tags.search": {"<em>cuoi</em>"},
	})

	assert.ElementsMatch(t, []string{"<em>Áo Dài</em> Cưới", "<em>ao dai</em> cuoi"}, merged["name"])
	assert.Equal(t, []string{"<em>cuoi</em>"}, merged["tags"])
	assert.NotContains(t, merged, "name.search")
}

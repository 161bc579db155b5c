package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"rentalshop/internal/crypto"
	"rentalshop/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ItemStore, sqlmock.Sqlmock, *crypto.Cipher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cipher, err := crypto.NewCipher("test-secret")
	require.NoError(t, err)
	return NewItemStore(sqlx.NewDb(db, "sqlmock"), cipher), mock, cipher
}

func TestGetItemDecryptsFields(t *testing.T) {
	store, mock, cipher := newTestStore(t)

	encName, err := cipher.Encrypt("Áo Dài Cưới Đỏ")
	require.NoError(t, err)
	encCategory, err := cipher.Encrypt("Áo Dài")
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, category, category_counter, name, image_url`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(3, encCategory, 831, encName, nil, now, now))

	item, err := store.GetItem(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Áo Dài Cưới Đỏ", item.Name)
	assert.Equal(t, "Áo Dài", item.Category)
	assert.Equal(t, 831, item.CategoryCounter)
}

func TestGetItemLegacyPlaintextRows(t *testing.T) {
	store, mock, _ := newTestStore(t)

	// Rows written before encryption was introduced come back as-is.
	now := time.Now()
	mock.ExpectQuery(`SELECT id, category, category_counter, name, image_url`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(7, "Vest", 12, "Vest Đen", nil, now, now))

	item, err := store.GetItem(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Vest Đen", item.Name)
	assert.Equal(t, "Vest", item.Category)
}

func TestGetItemsByIDsEmpty(t *testing.T) {
	store, _, _ := newTestStore(t)

	items, err := store.GetItemsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestGetSizesPreservesStoredOrder(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(`SELECT item_id, title, quantity, on_hand, price, position`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "title", "quantity", "on_hand", "price", "position"}).
			AddRow(3, "S", 2, 2, 400000, 0).
			AddRow(3, "M", 3, 1, 450000, 1))

	sizes, err := store.GetSizes(context.Background(), []int{3})
	require.NoError(t, err)
	require.Len(t, sizes[3], 2)
	assert.Equal(t, "S", sizes[3][0].Title)
	assert.Equal(t, "M", sizes[3][1].Title)
}

func TestNextCategoryCounter(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(`INSERT INTO category_counters`).
		WithArgs("Áo Dài").
		WillReturnRows(sqlmock.NewRows([]string{"counter"}).AddRow(832))

	counter, err := store.NextCategoryCounter(context.Background(), "Áo Dài")
	require.NoError(t, err)
	assert.Equal(t, 832, counter)
}

func TestCreateItem(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(`INSERT INTO category_counters`).
		WithArgs("Áo Dài").
		WillReturnRows(sqlmock.NewRows([]string{"counter"}).AddRow(832))
	mock.ExpectBegin()
	// Encrypted columns carry a random nonce, so argument values are opaque.
	mock.ExpectQuery(`INSERT INTO items`).
		WithArgs(sqlmock.AnyArg(), 832, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO item_sizes`).
		WithArgs(42, sqlmock.AnyArg(), 3, 3, int64(450000), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(`INSERT INTO item_tags`).
		WithArgs(42, 9).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := store.CreateItem(context.Background(), models.ItemRequest{
		Name:     "Áo Dài Cưới Đỏ",
		Category: "Áo Dài",
		Tags:     []string{"cưới"},
		Sizes:    []models.Size{{Title: "M", Quantity: 3, OnHand: 3, Price: 450000}},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemNotFound(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE items SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.UpdateItem(context.Background(), 999, models.ItemRequest{Name: "x", Category: "Vest"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeleteItemNotFound(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM item_sizes`).WithArgs(999).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM item_tags`).WithArgs(999).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM items WHERE`).WithArgs(999).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteItem(context.Background(), 999)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestFilterItemsMatchesDecryptedText(t *testing.T) {
	store, mock, cipher := newTestStore(t)

	encName1, _ := cipher.Encrypt("Áo Dài Cưới Đỏ")
	encCat1, _ := cipher.Encrypt("Áo Dài")
	encName2, _ := cipher.Encrypt("Vest Đen")
	encCat2, _ := cipher.Encrypt("Vest")

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM items ORDER BY created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(1, encCat1, 1, encName1, nil, base, base).
			AddRow(2, encCat2, 1, encName2, nil, base.Add(time.Hour), base))
	mock.ExpectQuery(`SELECT item_id, title`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "title", "quantity", "on_hand", "price", "position"}))
	mock.ExpectQuery(`SELECT it.item_id, t.name`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "name"}))

	// Substring matching happens after decryption; ciphertext never
	// contains the needle.
	items, err := store.FilterItems(context.Background(), FilterOptions{Text: "cưới"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Áo Dài Cưới Đỏ", items[0].Name)
}

func TestItemMatchesFoldsDiacritics(t *testing.T) {
	item := models.Item{
		Name:     "Áo Dài Cưới Đỏ",
		Category: "Áo Dài",
		Tags:     []string{"truyền thống"},
	}

	assert.True(t, itemMatches(item, "ao dai"))
	assert.True(t, itemMatches(item, "cưới"))
	assert.True(t, itemMatches(item, "truyen thong"))
	assert.False(t, itemMatches(item, "vest"))
}

func TestFilterItemsSortOrder(t *testing.T) {
	store, mock, _ := newTestStore(t)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(1, "Vest", 1, "Vest Đen", nil, base, base).
			AddRow(2, "Vest", 2, "Vest Trắng", nil, base.Add(time.Hour), base)
	}
	emptyJoins := func() {
		mock.ExpectQuery(`SELECT item_id, title`).
			WillReturnRows(sqlmock.NewRows([]string{"item_id", "title", "quantity", "on_hand", "price", "position"}))
		mock.ExpectQuery(`SELECT it.item_id, t.name`).
			WillReturnRows(sqlmock.NewRows([]string{"item_id", "name"}))
	}

	mock.ExpectQuery(`FROM items ORDER BY created_at`).WillReturnRows(rows())
	emptyJoins()
	newest, err := store.FilterItems(context.Background(), FilterOptions{})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, 2, newest[0].ID)

	mock.ExpectQuery(`FROM items ORDER BY created_at`).WillReturnRows(rows())
	emptyJoins()
	oldest, err := store.FilterItems(context.Background(), FilterOptions{Oldest: true})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, 1, oldest[0].ID)
}

func TestFilterItemsCategoryAndImage(t *testing.T) {
	store, mock, _ := newTestStore(t)

	img := "https://cdn/a.jpg"
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM items ORDER BY created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "category_counter", "name", "image_url", "created_at", "updated_at"}).
			AddRow(1, "Vest", 1, "Vest Đen", img, base, base).
			AddRow(2, "Vest", 2, "Vest Trắng", nil, base, base).
			AddRow(3, "Áo Dài", 1, "Áo Dài Cưới", img, base, base))
	mock.ExpectQuery(`SELECT item_id, title`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "title", "quantity", "on_hand", "price", "position"}))
	mock.ExpectQuery(`SELECT it.item_id, t.name`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "name"}))

	items, err := store.FilterItems(context.Background(), FilterOptions{Category: "Vest", HasImage: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rentalshop/internal/cache"
	"rentalshop/internal/crypto"
	"rentalshop/internal/database"
	"rentalshop/internal/models"
	"rentalshop/internal/search"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemStack(t *testing.T) (*database.ItemStore, *search.Syncer, *cache.SearchCache, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	cipher, err := crypto.NewCipher("test-secret")
	require.NoError(t, err)
	store := database.NewItemStore(sqlx.NewDb(rawDB, "sqlmock"), cipher)

	// No engines and no running worker: hooks only enqueue.
	syncer := search.NewSyncer(store, nil, 8, time.Second, zerolog.Nop())
	return store, syncer, cache.New(30 * time.Second), mock
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestCreateItemHandler(t *testing.T) {
	store, syncer, responseCache, mock := newItemStack(t)

	mock.ExpectQuery(`INSERT INTO category_counters`).
		WithArgs("Áo Dài").
		WillReturnRows(sqlmock.NewRows([]string{"counter"}).AddRow(832))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	// Prime the cache to verify mutations invalidate it.
	responseCache.Set("stale", &models.SearchResponse{Total: 99})

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/api/items",
		`{"name":"Áo Dài Cưới Đỏ","category":"Áo Dài"}`)
	c := e.NewContext(req, rec)

	handler := CreateItemHandler(store, syncer, responseCache)
	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var response models.ItemMutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 42, response.ID)

	_, cached := responseCache.Get("stale")
	assert.False(t, cached, "mutations must clear cached search pages")
}

func TestCreateItemHandlerValidation(t *testing.T) {
	store, syncer, responseCache, _ := newItemStack(t)
	handler := CreateItemHandler(store, syncer, responseCache)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"category":"Vest"}`},
		{"missing category", `{"name":"Vest Đen"}`},
		{"blank size title", `{"name":"Vest Đen","category":"Vest","sizes":[{"title":"  "}]}`},
		{"negative price", `{"name":"Vest Đen","category":"Vest","sizes":[{"title":"M","price":-1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req, rec := jsonRequest(http.MethodPost, "/api/items", tt.body)
			c := e.NewContext(req, rec)

			require.NoError(t, handler(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateItemHandlerNotFound(t *testing.T) {
	store, syncer, responseCache, mock := newItemStack(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE items SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPut, "/api/items/999",
		`{"name":"Vest Đen","category":"Vest"}`)
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	handler := UpdateItemHandler(store, syncer, responseCache)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteItemHandler(t *testing.T) {
	store, syncer, responseCache, mock := newItemStack(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM item_sizes`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM item_tags`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM items WHERE`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/items/7", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	handler := DeleteItemHandler(store, syncer, responseCache)
	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response models.ItemMutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
}

func TestDeleteItemHandlerInvalidID(t *testing.T) {
	store, syncer, responseCache, _ := newItemStack(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/items/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	handler := DeleteItemHandler(store, syncer, responseCache)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

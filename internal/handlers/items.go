package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rentalshop/internal/cache"
	"rentalshop/internal/database"
	"rentalshop/internal/models"
	"rentalshop/internal/search"
	"rentalshop/internal/textutil"

	"github.com/labstack/echo/v4"
)

func validateItemRequest(req models.ItemRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(req.Category) == "" {
		return "category is required"
	}
	for _, size := range req.Sizes {
		if strings.TrimSpace(size.Title) == "" {
			return "size title is required"
		}
		if size.Quantity < 0 || size.OnHand < 0 || size.Price < 0 {
			return "size quantities and price must not be negative"
		}
	}
	return ""
}

// GetItemHandler fetches one item with sizes and tags
// @Summary Get item
// @Tags items
// @Produce json
// @Param id path int true "Item id"
// @Success 200 {object} models.Item
// @Failure 404 {object} models.ItemMutationResponse
// @Router /api/items/{id} [get]
func GetItemHandler(store *database.ItemStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: "invalid item id"})
		}

		ctx := c.Request().Context()
		item, err := store.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, models.ItemMutationResponse{Error: "item not found"})
			}
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to load item"})
		}

		sizes, err := store.GetSizes(ctx, []int{id})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to load item"})
		}
		tags, err := store.GetTags(ctx, []int{id})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to load item"})
		}
		item.Sizes = sizes[id]
		item.Tags = tags[id]
		if item.Sizes == nil {
			item.Sizes = []models.Size{}
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"item":        item,
			"formattedId": textutil.FormatID(item.Category, item.CategoryCounter),
		})
	}
}

// CreateItemHandler creates an inventory item and schedules index sync.
// The database write is the source of truth: sync failures never fail
// the mutation.
// @Summary Create item
// @Tags items
// @Accept json
// @Produce json
// @Param item body models.ItemRequest true "Item payload"
// @Success 201 {object} models.ItemMutationResponse
// @Failure 400 {object} models.ItemMutationResponse
// @Router /api/items [post]
func CreateItemHandler(store *database.ItemStore, syncer *search.Syncer, responseCache *cache.SearchCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ItemRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: "invalid request body"})
		}
		if msg := validateItemRequest(req); msg != "" {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: msg})
		}

		id, err := store.CreateItem(c.Request().Context(), req)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to create item"})
		}

		syncer.OnItemCreated(id)
		responseCache.Clear()

		return c.JSON(http.StatusCreated, models.ItemMutationResponse{Success: true, ID: id})
	}
}

// UpdateItemHandler replaces an item's fields, sizes and tags
// @Summary Update item
// @Tags items
// @Accept json
// @Produce json
// @Param id path int true "Item id"
// @Param item body models.ItemRequest true "Item payload"
// @Success 200 {object} models.ItemMutationResponse
// @Failure 404 {object} models.ItemMutationResponse
// @Router /api/items/{id} [put]
func UpdateItemHandler(store *database.ItemStore, syncer *search.Syncer, responseCache *cache.SearchCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: "invalid item id"})
		}

		var req models.ItemRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: "invalid request body"})
		}
		if msg := validateItemRequest(req); msg != "" {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: msg})
		}

		if err := store.UpdateItem(c.Request().Context(), id, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, models.ItemMutationResponse{Error: "item not found"})
			}
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to update item"})
		}

		syncer.OnItemUpdated(id)
		responseCache.Clear()

		return c.JSON(http.StatusOK, models.ItemMutationResponse{Success: true, ID: id})
	}
}

// DeleteItemHandler removes an item and schedules index cleanup
// @Summary Delete item
// @Tags items
// @Produce json
// @Param id path int true "Item id"
// @Success 200 {object} models.ItemMutationResponse
// @Failure 404 {object} models.ItemMutationResponse
// @Router /api/items/{id} [delete]
func DeleteItemHandler(store *database.ItemStore, syncer *search.Syncer, responseCache *cache.SearchCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			return c.JSON(http.StatusBadRequest, models.ItemMutationResponse{Error: "invalid item id"})
		}

		if err := store.DeleteItem(c.Request().Context(), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, models.ItemMutationResponse{Error: "item not found"})
			}
			return c.JSON(http.StatusInternalServerError, models.ItemMutationResponse{Error: "failed to delete item"})
		}

		syncer.OnItemDeleted(id)
		responseCache.Clear()

		return c.JSON(http.StatusOK, models.ItemMutationResponse{Success: true, ID: id})
	}
}

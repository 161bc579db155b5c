package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"rentalshop/internal/crypto"
	"rentalshop/internal/models"
	"rentalshop/internal/textutil"

	"github.com/jmoiron/sqlx"
)

// ItemStore provides access to the authoritative inventory rows. Sensitive
// text columns (name, category, tag names, size titles) are encrypted at
// rest; every read path decrypts before returning.
type ItemStore struct {
	db     *sqlx.DB
	cipher *crypto.Cipher
}

// NewItemStore creates an item store over the given connection.
func NewItemStore(db *sqlx.DB, cipher *crypto.Cipher) *ItemStore {
	return &ItemStore{db: db, cipher: cipher}
}

// itemRow mirrors the items table before decryption.
type itemRow struct {
	ID              int       `db:"id"`
	Category        string    `db:"category"`
	CategoryCounter int       `db:"category_counter"`
	Name            string    `db:"name"`
	ImageURL        *string   `db:"image_url"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// sizeRow mirrors the item_sizes table before decryption.
type sizeRow struct {
	ItemID   int    `db:"item_id"`
	Title    string `db:"title"`
	Quantity int    `db:"quantity"`
	OnHand   int    `db:"on_hand"`
	Price    int64  `db:"price"`
	Position int    `db:"position"`
}

// tagRow mirrors the tag join before decryption.
type tagRow struct {
	ItemID int    `db:"item_id"`
	Name   string `db:"name"`
}

func (s *ItemStore) decode(row itemRow) models.Item {
	return models.Item{
		ID:              row.ID,
		Category:        s.cipher.Decrypt(row.Category),
		CategoryCounter: row.CategoryCounter,
		Name:            s.cipher.Decrypt(row.Name),
		ImageURL:        row.ImageURL,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

// GetItem fetches a single item base row, decrypted, without sizes or tags.
func (s *ItemStore) GetItem(ctx context.Context, id int) (*models.Item, error) {
	var row itemRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, category, category_counter, name, image_url, created_at, updated_at
		 FROM items WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %d: %w", id, err)
	}

	item := s.decode(row)
	return &item, nil
}

// GetItemsByIDs batch-fetches decrypted base rows, preserving no particular order.
func (s *ItemStore) GetItemsByIDs(ctx context.Context, ids []int) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, category, category_counter, name, image_url, created_at, updated_at
		 FROM items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build item batch query: %w", err)
	}

	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.decode(row))
	}
	return items, nil
}

// GetSizes batch-fetches decrypted size lists keyed by item id, preserving
// the stored size order.
func (s *ItemStore) GetSizes(ctx context.Context, ids []int) (map[int][]models.Size, error) {
	if len(ids) == 0 {
		return map[int][]models.Size{}, nil
	}

	query, args, err := sqlx.In(
		`SELECT item_id, title, quantity, on_hand, price, position
		 FROM item_sizes WHERE item_id IN (?) ORDER BY item_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build size batch query: %w", err)
	}

	var rows []sizeRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch sizes: %w", err)
	}

	sizes := make(map[int][]models.Size, len(ids))
	for _, row := range rows {
		sizes[row.ItemID] = append(sizes[row.ItemID], models.Size{
			ItemID:   row.ItemID,
			Title:    s.cipher.Decrypt(row.Title),
			Quantity: row.Quantity,
			OnHand:   row.OnHand,
			Price:    row.Price,
		})
	}
	return sizes, nil
}

// GetTags batch-fetches decrypted tag names keyed by item id.
func (s *ItemStore) GetTags(ctx context.Context, ids []int) (map[int][]string, error) {
	if len(ids) == 0 {
		return map[int][]string{}, nil
	}

	query, args, err := sqlx.In(
		`SELECT it.item_id, t.name
		 FROM item_tags it JOIN tags t ON t.id = it.tag_id
		 WHERE it.item_id IN (?) ORDER BY it.item_id, t.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag batch query: %w", err)
	}

	var rows []tagRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	tags := make(map[int][]string, len(ids))
	for _, row := range rows {
		tags[row.ItemID] = append(tags[row.ItemID], s.cipher.Decrypt(row.Name))
	}
	return tags, nil
}

// ListItemIDs returns every item id in ascending order. The reindexer
// batches over this list rather than paging the items table directly.
func (s *ItemStore) ListItemIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list item ids: %w", err)
	}
	return ids, nil
}

// CountItems returns the total number of inventory items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM items`); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// NextCategoryCounter atomically increments and returns the per-category
// sequence counter. Counters are never reused, even after deletes.
func (s *ItemStore) NextCategoryCounter(ctx context.Context, category string) (int, error) {
	var counter int
	err := s.db.GetContext(ctx, &counter,
		`INSERT INTO category_counters (category, counter) VALUES ($1, 1)
		 ON CONFLICT (category) DO UPDATE SET counter = category_counters.counter + 1
		 RETURNING counter`, category)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter for category %q: %w", category, err)
	}
	return counter, nil
}

// CreateItem inserts an item with its sizes and tags in one transaction and
// returns the new id. Text fields are encrypted before they touch the table.
func (s *ItemStore) CreateItem(ctx context.Context, req models.ItemRequest) (int, error) {
	counter, err := s.NextCategoryCounter(ctx, req.Category)
	if err != nil {
		return 0, err
	}

	encName, err := s.cipher.Encrypt(req.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt name: %w", err)
	}
	encCategory, err := s.cipher.Encrypt(req.Category)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt category: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int
	err = tx.GetContext(ctx, &id,
		`INSERT INTO items (category, category_counter, name, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		encCategory, counter, encName, req.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}

	if err := s.writeSizes(ctx, tx, id, req.Sizes); err != nil {
		return 0, err
	}
	if err := s.writeTags(ctx, tx, id, req.Tags); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit item insert: %w", err)
	}
	return id, nil
}

// UpdateItem replaces an item's editable fields. Sizes and tags are a full
// replace, matching the edit API semantics; the category counter is kept.
func (s *ItemStore) UpdateItem(ctx context.Context, id int, req models.ItemRequest) error {
	encName, err := s.cipher.Encrypt(req.Name)
	if err != nil {
		return fmt.Errorf("failed to encrypt name: %w", err)
	}
	encCategory, err := s.cipher.Encrypt(req.Category)
	if err != nil {
		return fmt.Errorf("failed to encrypt category: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET category = $1, name = $2, image_url = $3, updated_at = NOW() WHERE id = $4`,
		encCategory, encName, req.ImageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_sizes WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear sizes for item %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear tags for item %d: %w", id, err)
	}

	if err := s.writeSizes(ctx, tx, id, req.Sizes); err != nil {
		return err
	}
	if err := s.writeTags(ctx, tx, id, req.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item update: %w", err)
	}
	return nil
}

// DeleteItem removes an item and its sizes and tag links.
func (s *ItemStore) DeleteItem(ctx context.Context, id int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_sizes WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete sizes for item %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete tags for item %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

func (s *ItemStore) writeSizes(ctx context.Context, tx *sqlx.Tx, itemID int, sizes []models.Size) error {
	for position, size := range sizes {
		encTitle, err := s.cipher.Encrypt(size.Title)
		if err != nil {
			return fmt.Errorf("failed to encrypt size title: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO item_sizes (item_id, title, quantity, on_hand, price, position)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			itemID, encTitle, size.Quantity, size.OnHand, size.Price, position)
		if err != nil {
			return fmt.Errorf("failed to insert size for item %d: %w", itemID, err)
		}
	}
	return nil
}

func (s *ItemStore) writeTags(ctx context.Context, tx *sqlx.Tx, itemID int, tags []string) error {
	for _, tag := range tags {
		encTag, err := s.cipher.Encrypt(tag)
		if err != nil {
			return fmt.Errorf("failed to encrypt tag: %w", err)
		}
		var tagID int
		err = tx.GetContext(ctx, &tagID,
			`INSERT INTO tags (name) VALUES ($1) RETURNING id`, encTag)
		if err != nil {
			return fmt.Errorf("failed to insert tag for item %d: %w", itemID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO item_tags (item_id, tag_id) VALUES ($1, $2)`, itemID, tagID)
		if err != nil {
			return fmt.Errorf("failed to link tag for item %d: %w", itemID, err)
		}
	}
	return nil
}

// FilterOptions narrows the direct-database search used when every search
// backend is down, or for filter-only oldest-sort requests that must see
// all rows in true chronological order.
type FilterOptions struct {
	Text     string
	Category string
	HasImage bool
	Oldest   bool
}

// FilterItems loads all items (with sizes and tags), decrypts them, and
// filters in memory. Encrypted columns cannot be matched with SQL LIKE, so
// the substring match happens after decryption. Results are sorted by
// creation time, oldest or newest first.
func (s *ItemStore) FilterItems(ctx context.Context, opts FilterOptions) ([]models.Item, error) {
	var rows []itemRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, category, category_counter, name, image_url, created_at, updated_at
		 FROM items ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for filtering: %w", err)
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	sizes, err := s.GetSizes(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := s.GetTags(ctx, ids)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(opts.Text)
	var matched []models.Item
	for _, row := range rows {
		item := s.decode(row)
		item.Sizes = sizes[item.ID]
		item.Tags = tags[item.ID]

		if opts.Category != "" && item.Category != opts.Category {
			continue
		}
		if opts.HasImage && (item.ImageURL == nil || *item.ImageURL == "") {
			continue
		}
		if needle != "" && !itemMatches(item, needle) {
			continue
		}
		matched = append(matched, item)
	}

	if !opts.Oldest {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})
	}
	return matched, nil
}

// itemMatches checks the needle against each text field, verbatim and
// with diacritics folded, so "ao dai" still finds "Áo Dài".
func itemMatches(item models.Item, needle string) bool {
	normNeedle := textutil.Normalize(needle)
	fields := append([]string{item.Name, item.Category}, item.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
		if strings.Contains(textutil.Normalize(f), normNeedle) {
			return true
		}
	}
	return false
}

package search

import (
	"context"
	"strings"

	"rentalshop/internal/database"
	"rentalshop/internal/models"
	"rentalshop/internal/textutil"

	"github.com/rs/zerolog"
)

// Reconciler merges index hits with authoritative database state before
// results leave the service. Index copies of mutable presentation fields
// (image url, tags) can lag behind the database between syncs; the
// reconciler re-reads those fields in one batch query and prefers them.
type Reconciler struct {
	store  *database.ItemStore
	logger zerolog.Logger
}

func NewReconciler(store *database.ItemStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile converts backend hits into response rows: authoritative
// field merge, then a literal relevance filter against the query text.
// A database failure during the merge degrades to index data instead of
// failing the search.
func (r *Reconciler) Reconcile(ctx context.Context, hits []models.SearchHit, queryText string) []models.SearchItem {
	fresh := r.fetchAuthoritative(ctx, hits)

	items := make([]models.SearchItem, 0, len(hits))
	for _, hit := range hits {
		item := mergeHit(hit, fresh[hit.Document.ID])
		if queryText != "" && !matchesLiterally(item, queryText) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// fetchAuthoritative batch-loads current image urls and tags for every
// hit. Returns nil (degrade to index values) when any query fails.
func (r *Reconciler) fetchAuthoritative(ctx context.Context, hits []models.SearchHit) map[int]*models.Item {
	if len(hits) == 0 {
		return nil
	}
	ids := make([]int, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.Document.ID)
	}

	rows, err := r.store.GetItemsByIDs(ctx, ids)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Reconciliation fetch failed, serving index data")
		return nil
	}
	tags, err := r.store.GetTags(ctx, ids)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Reconciliation tag fetch failed, serving index data")
		return nil
	}

	byID := make(map[int]*models.Item, len(rows))
	for i := range rows {
		rows[i].Tags = tags[rows[i].ID]
		byID[rows[i].ID] = &rows[i]
	}
	return byID
}

// mergeHit builds the response row from the index document, overriding
// image url and tags with authoritative values when available. An item
// missing from the authoritative fetch (deleted since indexing) still
// serves its index copy; the next sync removes it.
func mergeHit(hit models.SearchHit, fresh *models.Item) models.SearchItem {
	doc := hit.Document

	var imageURL *string
	if doc.ImageURL != "" {
		u := doc.ImageURL
		imageURL = &u
	}
	tags := doc.Tags

	if fresh != nil {
		imageURL = fresh.ImageURL
		if fresh.Tags != nil {
			tags = fresh.Tags
		} else {
			tags = []string{}
		}
	}
	if tags == nil {
		tags = []string{}
	}

	return models.SearchItem{
		ID:          doc.ID,
		FormattedID: doc.FormattedID,
		Name:        doc.Name,
		Category:    doc.Category,
		ImageURL:    imageURL,
		Tags:        tags,
		Sizes:       doc.Sizes,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Score:       hit.Score,
		Highlights:  mergeHighlights(hit.Highlights),
	}
}

// matchesLiterally keeps a hit only when the query text appears in one of
// the item's textual fields, case-insensitively, either verbatim or after
// diacritic folding. Fuzzy backends can return near-miss matches with
// decent scores; this pass drops them so "vay" never surfaces "vest".
func matchesLiterally(item models.SearchItem, query string) bool {
	fields := make([]string, 0, 3+len(item.Tags))
	fields = append(fields, item.Name, item.FormattedID, item.Category)
	fields = append(fields, item.Tags...)

	for _, f := range fields {
		if textutil.ContainsFold(f, query) {
			return true
		}
	}

	normQuery := textutil.Normalize(query)
	if normQuery == "" {
		return false
	}
	for _, f := range fields {
		if strings.Contains(textutil.Normalize(f), normQuery) {
			return true
		}
	}
	return false
}

// mergeHighlights folds the diacritic-stripped subfields into their
// parents so callers see one fragment list per logical field.
func mergeHighlights(raw map[string][]string) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	merged := make(map[string][]string, len(raw))
	for field, fragments := range raw {
		parent := strings.TrimSuffix(field, ".search")
		for _, frag := range fragments {
			if !containsString(merged[parent], frag) {
				merged[parent] = append(merged[parent], frag)
			}
		}
	}
	return merged
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

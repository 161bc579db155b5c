package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentalshop/internal/models"

	"github.com/rs/zerolog"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseEngine implements Engine against a Typesense server.
type TypesenseEngine struct {
	client     *typesense.Client
	collection string
	logger     zerolog.Logger
}

// NewTypesenseEngine creates an engine pointed at the given server.
func NewTypesenseEngine(url, apiKey, collection string, logger zerolog.Logger) *TypesenseEngine {
	client := typesense.NewClient(
		typesense.WithServer(url),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second))
	return &TypesenseEngine{client: client, collection: collection, logger: logger}
}

// Name identifies this backend in responses and logs.
func (e *TypesenseEngine) Name() string { return BackendTypesense }

// Ping checks server reachability.
func (e *TypesenseEngine) Ping(ctx context.Context) error {
	ok, err := e.client.Health(ctx, 2*time.Second)
	if err != nil {
		return fmt.Errorf("typesense: health: %w", err)
	}
	if !ok {
		return fmt.Errorf("typesense: server not healthy")
	}
	return nil
}

// EnsureIndex creates the collection when it does not exist.
func (e *TypesenseEngine) EnsureIndex(ctx context.Context) error {
	_, err := e.client.Collection(e.collection).Retrieve(ctx)
	if err == nil {
		return nil
	}
	if _, err := e.client.Collections().Create(ctx, collectionSchema(e.collection)); err != nil {
		return fmt.Errorf("typesense: create collection: %w", err)
	}
	return nil
}

// Rebuild drops and recreates the collection, discarding all documents.
func (e *TypesenseEngine) Rebuild(ctx context.Context) error {
	if _, err := e.client.Collection(e.collection).Delete(ctx); err != nil {
		// A missing collection is fine on rebuild.
		if !strings.Contains(strings.ToLower(err.Error()), "not found") &&
			!strings.Contains(err.Error(), "404") {
			return fmt.Errorf("typesense: delete collection: %w", err)
		}
	}
	if _, err := e.client.Collections().Create(ctx, collectionSchema(e.collection)); err != nil {
		return fmt.Errorf("typesense: create collection: %w", err)
	}
	return nil
}

// toTypesenseDoc flattens a SearchDocument into the collection's field set.
// Timestamps become Unix seconds because Typesense has no date type.
func toTypesenseDoc(doc *models.SearchDocument) map[string]interface{} {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	sizeTitles := make([]string, 0, len(doc.Sizes))
	for _, size := range doc.Sizes {
		sizeTitles = append(sizeTitles, size.Title)
	}

	out := map[string]interface{}{
		"id":           strconv.Itoa(doc.ID),
		"item_id":      doc.ID,
		"formatted_id": doc.FormattedID,
		"name":         doc.Name,
		"category":     doc.Category,
		"tags":         tags,
		"size_titles":  sizeTitles,
		"created_at":   doc.CreatedAt.Unix(),
		"updated_at":   doc.UpdatedAt.Unix(),
	}
	if doc.ImageURL != "" {
		out["image_url"] = doc.ImageURL
	}
	return out
}

// Upsert writes one document, keyed by the stringified item id.
func (e *TypesenseEngine) Upsert(ctx context.Context, doc *models.SearchDocument) error {
	if _, err := e.client.Collection(e.collection).Documents().Upsert(ctx, toTypesenseDoc(doc)); err != nil {
		return fmt.Errorf("typesense: upsert document %d: %w", doc.ID, err)
	}
	return nil
}

// Delete removes a document by item id. Missing documents are not an error.
func (e *TypesenseEngine) Delete(ctx context.Context, id int) error {
	_, err := e.client.Collection(e.collection).Document(strconv.Itoa(id)).Delete(ctx)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "not found") {
		return fmt.Errorf("typesense: delete document %d: %w", id, err)
	}
	return nil
}

// BulkUpsert upserts a batch one document at a time, counting failures
// instead of aborting, so a single bad document never sinks a reindex run.
func (e *TypesenseEngine) BulkUpsert(ctx context.Context, docs []*models.SearchDocument) (int, error) {
	failed := 0
	for _, doc := range docs {
		if err := e.Upsert(ctx, doc); err != nil {
			if isConnError(err) {
				return failed + 1, err
			}
			failed++
			e.logger.Warn().Err(err).Int("item_id", doc.ID).Msg("Typesense document rejected")
		}
	}
	return failed, nil
}

// Search compiles the plan into Typesense search parameters and executes it.
func (e *TypesenseEngine) Search(ctx context.Context, plan Plan) (*Result, error) {
	params := compileTypesense(plan)

	res, err := e.client.Collection(e.collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("typesense: search: %w", err)
	}

	result := &Result{}
	if res.Found != nil {
		result.Total = *res.Found
	}
	if res.Hits == nil {
		return result, nil
	}

	for _, hit := range *res.Hits {
		if hit.Document == nil {
			continue
		}
		doc := fromTypesenseDoc(*hit.Document)

		var score float64
		if hit.TextMatch != nil {
			score = float64(*hit.TextMatch)
		}

		result.Hits = append(result.Hits, models.SearchHit{
			Document:   doc,
			Score:      score,
			Highlights: typesenseHighlights(hit),
		})
	}
	return result, nil
}

// compileTypesense expresses the plan's tier decisions through Typesense's
// precision controls: typo count from the fuzzy tier, infix matching from
// the wildcard tier, and the formatted-ID field swap for product-ID
// queries. Tier order is preserved by the query_by field weights.
func compileTypesense(plan Plan) *api.SearchCollectionParams {
	page, limit := plan.Page, plan.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	params := &api.SearchCollectionParams{
		Page:    pointer.Int(page),
		PerPage: pointer.Int(limit),
	}

	var filters []string
	if plan.Category != "" {
		// Backticks keep category values with spaces or filter syntax
		// ("&&", ":") from mis-parsing inside filter_by.
		filters = append(filters, "category:=`"+plan.Category+"`")
	}
	if plan.HasImage {
		filters = append(filters, "image_url:!=``")
	}
	if len(filters) > 0 {
		params.FilterBy = pointer.String(strings.Join(filters, " && "))
	}

	if len(plan.Clauses) == 0 {
		params.Q = pointer.String("*")
		params.QueryBy = pointer.String("name")
		params.SortBy = pointer.String("created_at:desc")
		return params
	}

	// Product-ID queries search only the formatted-ID field with zero
	// typo tolerance; the dash-insensitive variants are covered by infix.
	if id, ok := idClauseText(plan.Clauses); ok {
		params.Q = pointer.String(id)
		params.QueryBy = pointer.String("formatted_id")
		params.NumTypos = pointer.String("0")
		params.Infix = pointer.String("always")
		params.Prefix = pointer.String("true")
		return params
	}

	text, typos, hasWildcard := planShape(plan.Clauses)
	params.Q = pointer.String(text)
	params.QueryBy = pointer.String("name,tags,category,size_titles")
	params.QueryByWeights = pointer.String("4,3,2,1")
	params.NumTypos = pointer.String(strconv.Itoa(typos))
	params.Prefix = pointer.String(strconv.FormatBool(typos > 0 || hasWildcard))
	if hasWildcard {
		params.Infix = pointer.String("fallback")
	}
	params.HighlightFullFields = pointer.String("name,tags")
	return params
}

// idClauseText picks the dash-stripped product-ID variant when the plan
// carries the product-ID tier.
func idClauseText(clauses []Clause) (string, bool) {
	for _, clause := range clauses {
		if clause.Kind == ClauseWildcard && len(clause.Fields) == 1 && clause.Fields[0].Name == "formatted_id" {
			return clause.Text, true
		}
	}
	return "", false
}

// planShape extracts the raw query text, the maximum typo tolerance, and
// whether the wildcard tier is present.
func planShape(clauses []Clause) (text string, typos int, hasWildcard bool) {
	for _, clause := range clauses {
		switch clause.Kind {
		case ClauseMatch:
			if text == "" {
				text = clause.Text
			}
			tier := clause.Fuzziness
			if tier == FuzzinessMax {
				tier = 2 // Typesense caps typo tolerance at 2 edits
			}
			if tier > typos {
				typos = tier
			}
		case ClauseWildcard:
			hasWildcard = true
		}
	}
	return text, typos, hasWildcard
}

// fromTypesenseDoc rebuilds a SearchDocument from the flattened collection
// fields.
func fromTypesenseDoc(doc map[string]interface{}) models.SearchDocument {
	out := models.SearchDocument{}
	if v, ok := doc["item_id"].(float64); ok {
		out.ID = int(v)
	}
	if v, ok := doc["formatted_id"].(string); ok {
		out.FormattedID = v
	}
	if v, ok := doc["name"].(string); ok {
		out.Name = v
	}
	if v, ok := doc["category"].(string); ok {
		out.Category = v
	}
	if v, ok := doc["image_url"].(string); ok {
		out.ImageURL = v
	}
	if raw, ok := doc["tags"].([]interface{}); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				out.Tags = append(out.Tags, s)
			}
		}
	}
	if raw, ok := doc["size_titles"].([]interface{}); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				out.Sizes = append(out.Sizes, models.Size{Title: s})
			}
		}
	}
	if v, ok := doc["created_at"].(float64); ok {
		out.CreatedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := doc["updated_at"].(float64); ok {
		out.UpdatedAt = time.Unix(int64(v), 0).UTC()
	}
	return out
}

// typesenseHighlights converts per-field highlight snippets into the
// shared highlight map shape.
func typesenseHighlights(hit api.SearchResultHit) map[string][]string {
	if hit.Highlights == nil || len(*hit.Highlights) == 0 {
		return nil
	}

	out := make(map[string][]string)
	for _, h := range *hit.Highlights {
		if h.Field == nil {
			continue
		}
		field := *h.Field
		if h.Snippet != nil && *h.Snippet != "" {
			out[field] = append(out[field], *h.Snippet)
		}
		if h.Snippets != nil {
			out[field] = append(out[field], *h.Snippets...)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

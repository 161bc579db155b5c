package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rentalshop/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog"
)

// ElasticEngine implements Engine against an Elasticsearch cluster.
type ElasticEngine struct {
	client *elasticsearch.Client
	index  string
	logger zerolog.Logger
}

// NewElasticEngine creates an engine pointed at the given URL.
func NewElasticEngine(url, index string, logger zerolog.Logger) (*ElasticEngine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	return &ElasticEngine{client: client, index: index, logger: logger}, nil
}

// Name identifies this backend in responses and logs.
func (e *ElasticEngine) Name() string { return BackendElasticsearch }

// Ping checks cluster reachability.
func (e *ElasticEngine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: ping status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (e *ElasticEngine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index},
		e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: check index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	return e.createIndex(ctx)
}

// Rebuild drops and recreates the index, discarding all documents.
func (e *ElasticEngine) Rebuild(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.index},
		e.client.Indices.Delete.WithContext(ctx),
		e.client.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: delete index [%s]: %s", res.Status(), body)
	}
	return e.createIndex(ctx)
}

func (e *ElasticEngine) createIndex(ctx context.Context) error {
	res, err := e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping())))
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: create index [%s]: %s", res.Status(), body)
	}
	return nil
}

// Upsert writes one document. Document id = item id, so re-running the
// same upsert overwrites rather than duplicates.
func (e *ElasticEngine) Upsert(ctx context.Context, doc *models.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch: marshal document %d: %w", doc.ID, err)
	}

	res, err := e.client.Index(e.index, bytes.NewReader(body),
		e.client.Index.WithDocumentID(strconv.Itoa(doc.ID)),
		e.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index document %d: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: index document %d [%s]: %s", doc.ID, res.Status(), body)
	}
	return nil
}

// Delete removes a document by item id. Missing documents are not an error.
func (e *ElasticEngine) Delete(ctx context.Context, id int) error {
	res, err := e.client.Delete(e.index, strconv.Itoa(id),
		e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete document %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: delete document %d [%s]: %s", id, res.Status(), body)
	}
	return nil
}

// bulkResponse is the subset of the bulk API response needed to count
// per-document failures.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// BulkUpsert submits one bulk write. Rejected documents are counted and
// reported, not fatal: reindexing is best-effort and re-runnable.
func (e *ElasticEngine) BulkUpsert(ctx context.Context, docs []*models.SearchDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_id":"%d"}}`, doc.ID)
		buf.WriteString(meta)
		buf.WriteByte('\n')

		line, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("elasticsearch: marshal document %d: %w", doc.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.index),
		e.client.Bulk.WithContext(ctx))
	if err != nil {
		return len(docs), fmt.Errorf("elasticsearch: bulk write: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return len(docs), fmt.Errorf("elasticsearch: bulk write [%s]: %s", res.Status(), body)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("elasticsearch: decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return 0, nil
	}

	failed := 0
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 300 {
				failed++
				if op.Error != nil {
					e.logger.Warn().
						Str("type", op.Error.Type).
						Str("reason", op.Error.Reason).
						Msg("Bulk document rejected")
				}
			}
		}
	}
	return failed, nil
}

// esSearchResponse decodes the subset of the search response the
// reconciler needs.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64               `json:"_score"`
			Source    models.SearchDocument `json:"_source"`
			Highlight map[string][]string   `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// Search compiles the plan to a bool query and executes it.
func (e *ElasticEngine) Search(ctx context.Context, plan Plan) (*Result, error) {
	body := compileElastic(plan)
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithTrackTotalHits(true))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
			return nil, fmt.Errorf("elasticsearch: search: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return nil, fmt.Errorf("elasticsearch: search status %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch: decode search response: %w", err)
	}

	result := &Result{Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		result.Hits = append(result.Hits, models.SearchHit{
			Document:   hit.Source,
			Score:      hit.Score,
			Highlights: hit.Highlight,
		})
	}
	return result, nil
}

// compileElastic translates the backend-agnostic plan into an
// Elasticsearch request body.
func compileElastic(plan Plan) map[string]interface{} {
	var should []interface{}
	for _, clause := range plan.Clauses {
		should = append(should, compileClause(clause)...)
	}

	var filter []interface{}
	if plan.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category.keyword": plan.Category},
		})
	}
	if plan.HasImage {
		filter = append(filter, map[string]interface{}{
			"exists": map[string]interface{}{"field": "image_url"},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(should) > 0 {
		boolQuery["should"] = should
		if plan.MinShouldMatch != "" {
			boolQuery["minimum_should_match"] = plan.MinShouldMatch
		}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	var query map[string]interface{}
	if len(should) == 0 && len(filter) == 0 {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{"bool": boolQuery}
	}

	page, limit := plan.Page, plan.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	body := map[string]interface{}{
		"query": query,
		"from":  (page - 1) * limit,
		"size":  limit,
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"name":        map[string]interface{}{},
				"tags":        map[string]interface{}{},
				"name.search": map[string]interface{}{},
				"tags.search": map[string]interface{}{},
			},
		},
	}
	// Min-score only applies when optional clauses exist and no mandatory
	// filter bounds the result set.
	if plan.MinScore > 0 && len(should) > 0 && len(filter) == 0 {
		body["min_score"] = plan.MinScore
	}
	return body
}

// compileClause expands one IR clause into Elasticsearch query fragments.
func compileClause(clause Clause) []interface{} {
	var out []interface{}
	switch clause.Kind {
	case ClauseTerm:
		for _, field := range clause.Fields {
			out = append(out, map[string]interface{}{
				"term": map[string]interface{}{
					field.Name: map[string]interface{}{
						"value": clause.Text,
						"boost": field.Boost * clause.Boost,
					},
				},
			})
		}
	case ClausePhrase:
		for _, field := range clause.Fields {
			out = append(out, map[string]interface{}{
				"match_phrase": map[string]interface{}{
					field.Name: map[string]interface{}{
						"query": clause.Text,
						"boost": field.Boost * clause.Boost,
					},
				},
			})
		}
	case ClauseMatch:
		fields := make([]string, len(clause.Fields))
		for i, field := range clause.Fields {
			fields[i] = fmt.Sprintf("%s^%g", field.Name, field.Boost)
		}
		match := map[string]interface{}{
			"query":  clause.Text,
			"fields": fields,
			"boost":  clause.Boost,
		}
		switch clause.Fuzziness {
		case FuzzinessMax:
			match["fuzziness"] = "AUTO"
		default:
			match["fuzziness"] = clause.Fuzziness
		}
		out = append(out, map[string]interface{}{"multi_match": match})
	case ClauseWildcard:
		for _, field := range clause.Fields {
			out = append(out, map[string]interface{}{
				"wildcard": map[string]interface{}{
					field.Name: map[string]interface{}{
						"value":            "*" + clause.Text + "*",
						"boost":            field.Boost * clause.Boost,
						"case_insensitive": true,
					},
				},
			})
		}
	}
	return out
}

package search

import (
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// indexMapping is the Elasticsearch settings and mappings for the inventory
// index. The vietnamese analyzer folds case and diacritics so analyzed
// matches are accent-insensitive; every text field keeps a raw keyword
// subfield for the exact tier and a search subfield sharing the analyzer.
// Sizes are nested so per-size quantity/price conditions never cross
// between sizes of the same item. Price is a long: amounts are whole VND.
func indexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "vietnamese_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "normalizer": {
        "tag_normalizer": {
          "type": "custom",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":           { "type": "integer" },
      "formatted_id": { "type": "keyword" },
      "name": {
        "type": "text",
        "analyzer": "vietnamese_analyzer",
        "fields": {
          "keyword": { "type": "keyword", "ignore_above": 256 },
          "search":  { "type": "text", "analyzer": "vietnamese_analyzer" }
        }
      },
      "category": {
        "type": "text",
        "analyzer": "vietnamese_analyzer",
        "fields": {
          "keyword": { "type": "keyword", "normalizer": "tag_normalizer" },
          "search":  { "type": "text", "analyzer": "vietnamese_analyzer" }
        }
      },
      "tags": {
        "type": "text",
        "analyzer": "vietnamese_analyzer",
        "fields": {
          "keyword": { "type": "keyword", "normalizer": "tag_normalizer" },
          "search":  { "type": "text", "analyzer": "vietnamese_analyzer" }
        }
      },
      "image_url": { "type": "keyword", "index": false },
      "sizes": {
        "type": "nested",
        "properties": {
          "title":    { "type": "keyword" },
          "quantity": { "type": "integer" },
          "onHand":   { "type": "integer" },
          "price":    { "type": "long" }
        }
      },
      "created_at": { "type": "date" },
      "updated_at": { "type": "date" }
    }
  }
}`
}

// collectionSchema is the Typesense equivalent of the index mapping.
// Typesense handles diacritic folding natively during tokenization, so no
// analyzer block is needed; infix indexes on name and tags back the
// substring tier.
func collectionSchema(name string) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "item_id", Type: "int32"},
			{Name: "formatted_id", Type: "string", Infix: pointer.True()},
			{Name: "name", Type: "string", Infix: pointer.True()},
			{Name: "category", Type: "string", Facet: pointer.True()},
			{Name: "tags", Type: "string[]", Facet: pointer.True(), Infix: pointer.True()},
			{Name: "image_url", Type: "string", Optional: pointer.True(), Index: pointer.False()},
			{Name: "size_titles", Type: "string[]", Optional: pointer.True()},
			{Name: "created_at", Type: "int64", Sort: pointer.True()},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

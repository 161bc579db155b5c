package search

import (
	"context"
	"errors"
	"net"
	"strings"

	"rentalshop/internal/models"
)

// Backend names, also used as response flags and analytics labels.
const (
	BackendElasticsearch = "elasticsearch"
	BackendTypesense     = "typesense"
	BackendDatabase      = "database"
)

// Result is a page of scored hits from a backend.
type Result struct {
	Hits  []models.SearchHit
	Total int
}

// Engine is one search backend. Implementations compile the shared Plan
// into their own wire format; tier order and gating decisions are made
// once by the Planner.
type Engine interface {
	Name() string
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
	Rebuild(ctx context.Context) error
	Upsert(ctx context.Context, doc *models.SearchDocument) error
	Delete(ctx context.Context, id int) error
	BulkUpsert(ctx context.Context, docs []*models.SearchDocument) (failed int, err error)
	Search(ctx context.Context, plan Plan) (*Result, error)
}

// isConnError classifies errors that mean the backend itself is
// unreachable, as opposed to a bad request or an index-level error.
func isConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"fetch failed",
		"eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

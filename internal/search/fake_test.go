package search

import (
	"context"
	"errors"
	"sync"

	"rentalshop/internal/models"
)

var errDown = errors.New("dial tcp: connection refused")

// fakeEngine is an in-memory Engine used across the package tests.
type fakeEngine struct {
	mu   sync.Mutex
	name string

	down       bool
	searchErr  error
	docs       map[int]*models.SearchDocument
	result     *Result
	lastPlan   *Plan
	pings      int
	ensures    int
	rebuilds   int
	bulkFailed int
}

func newFakeEngine(name string) *fakeEngine {
	return &fakeEngine{name: name, docs: make(map[int]*models.SearchDocument)}
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.down {
		return errDown
	}
	return nil
}

func (f *fakeEngine) EnsureIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.down {
		return errDown
	}
	return nil
}

func (f *fakeEngine) Rebuild(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds++
	if f.down {
		return errDown
	}
	f.docs = make(map[int]*models.SearchDocument)
	return nil
}

func (f *fakeEngine) Upsert(ctx context.Context, doc *models.SearchDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeEngine) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeEngine) BulkUpsert(ctx context.Context, docs []*models.SearchDocument) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return len(docs), errDown
	}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f.bulkFailed, nil
}

func (f *fakeEngine) Search(ctx context.Context, plan Plan) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.lastPlan = &plan
	if f.result != nil {
		return f.result, nil
	}
	return &Result{}, nil
}

func (f *fakeEngine) docCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeEngine) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

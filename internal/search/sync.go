package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentalshop/internal/database"
	"rentalshop/internal/models"
	"rentalshop/internal/textutil"

	"github.com/rs/zerolog"
)

// sync operations carried on the queue.
const (
	opUpsert = "upsert"
	opDelete = "delete"
)

type syncTask struct {
	op string
	id int
}

// Syncer keeps the search indices eventually consistent with the
// authoritative item rows. Mutation hooks are fire-and-forget: they
// enqueue work and return immediately, and sync failures are logged, never
// propagated back to the mutation that triggered them.
type Syncer struct {
	store   *database.ItemStore
	engines []Engine
	logger  zerolog.Logger
	timeout time.Duration

	queue chan syncTask
	wg    sync.WaitGroup
	once  sync.Once
}

// NewSyncer creates a syncer over the given engines. queueSize bounds the
// number of pending sync tasks; when the queue is full new tasks are
// dropped with a warning rather than blocking the mutation path.
func NewSyncer(store *database.ItemStore, engines []Engine, queueSize int, timeout time.Duration, logger zerolog.Logger) *Syncer {
	if queueSize < 1 {
		queueSize = 256
	}
	return &Syncer{
		store:   store,
		engines: engines,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan syncTask, queueSize),
	}
}

// Start launches the background worker draining the sync queue.
func (s *Syncer) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for task := range s.queue {
			s.process(task)
		}
	}()
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (s *Syncer) Stop() {
	s.once.Do(func() { close(s.queue) })
	s.wg.Wait()
}

// OnItemCreated schedules an index upsert for a newly created item.
func (s *Syncer) OnItemCreated(id int) { s.enqueue(syncTask{op: opUpsert, id: id}) }

// OnItemUpdated schedules an index upsert for an edited item.
func (s *Syncer) OnItemUpdated(id int) { s.enqueue(syncTask{op: opUpsert, id: id}) }

// OnItemDeleted schedules removal of an item's index entry.
func (s *Syncer) OnItemDeleted(id int) { s.enqueue(syncTask{op: opDelete, id: id}) }

func (s *Syncer) enqueue(task syncTask) {
	select {
	case s.queue <- task:
	default:
		s.logger.Warn().Int("item_id", task.id).Str("op", task.op).
			Msg("Sync queue full, dropping task; run a reindex to recover")
	}
}

func (s *Syncer) process(task syncTask) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var err error
	switch task.op {
	case opUpsert:
		err = s.SyncItem(ctx, task.id)
	case opDelete:
		err = s.DeleteItem(ctx, task.id)
	}
	if err != nil {
		// The database write already committed; index staleness is
		// accepted rather than coupling mutations to backend health.
		s.logger.Error().Err(err).Int("item_id", task.id).Str("op", task.op).
			Msg("Search sync failed")
	}
}

// SyncItem rebuilds the search document for one item from its current
// authoritative state and upserts it into every configured engine.
func (s *Syncer) SyncItem(ctx context.Context, id int) error {
	doc, err := s.BuildDocument(ctx, id)
	if err != nil {
		return err
	}

	var firstErr error
	for _, engine := range s.engines {
		if err := engine.Upsert(ctx, doc); err != nil {
			s.logger.Error().Err(err).Int("item_id", id).Str("backend", engine.Name()).
				Msg("Index upsert failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DeleteItem removes the item's document from every configured engine.
func (s *Syncer) DeleteItem(ctx context.Context, id int) error {
	var firstErr error
	for _, engine := range s.engines {
		if err := engine.Delete(ctx, id); err != nil {
			s.logger.Error().Err(err).Int("item_id", id).Str("backend", engine.Name()).
				Msg("Index delete failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// BuildDocument fetches the item with its sizes and tags, decrypted, and
// denormalizes it into a search document.
func (s *Syncer) BuildDocument(ctx context.Context, id int) (*models.SearchDocument, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d for sync: %w", id, err)
	}

	sizes, err := s.store.GetSizes(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	tags, err := s.store.GetTags(ctx, []int{id})
	if err != nil {
		return nil, err
	}

	item.Sizes = sizes[id]
	item.Tags = tags[id]
	return BuildDocument(item), nil
}

// BuildDocument denormalizes a fully loaded, decrypted item into its
// index representation. The formatted id is derived here with the same
// table used at read time.
func BuildDocument(item *models.Item) *models.SearchDocument {
	var imageURL string
	if item.ImageURL != nil {
		imageURL = *item.ImageURL
	}
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	sizes := item.Sizes
	if sizes == nil {
		sizes = []models.Size{}
	}

	return &models.SearchDocument{
		ID:          item.ID,
		FormattedID: textutil.FormatID(item.Category, item.CategoryCounter),
		Name:        item.Name,
		Category:    item.Category,
		ImageURL:    imageURL,
		Tags:        tags,
		Sizes:       sizes,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

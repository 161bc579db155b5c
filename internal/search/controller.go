package search

import (
	"context"
	"sync"
	"time"

	"rentalshop/internal/database"
	"rentalshop/internal/models"
	"rentalshop/internal/textutil"

	"github.com/rs/zerolog"
)

// Connection states per backend. A backend found unreachable is marked
// disconnected and retried lazily on the next request that needs it.
const (
	stateDisconnected = iota
	stateConnecting
	stateConnected
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type backendState struct {
	mu    sync.Mutex
	state int
}

// Controller routes searches across the backend chain: Elasticsearch
// first, Typesense when Elasticsearch is unreachable, direct database
// filtering when both are down. The database path is always available;
// search never hard-fails on backend outages.
type Controller struct {
	primary    Engine
	secondary  Engine
	store      *database.ItemStore
	planner    *Planner
	reconciler *Reconciler
	logger     zerolog.Logger

	retries int
	timeout time.Duration
	pageCap int

	states map[string]*backendState
}

func NewController(primary, secondary Engine, store *database.ItemStore, planner *Planner, reconciler *Reconciler, retries int, timeout time.Duration, pageCap int, logger zerolog.Logger) *Controller {
	if retries < 0 {
		retries = 0
	}
	if pageCap < 1 {
		pageCap = 250
	}
	c := &Controller{
		primary:    primary,
		secondary:  secondary,
		store:      store,
		planner:    planner,
		reconciler: reconciler,
		logger:     logger,
		retries:    retries,
		timeout:    timeout,
		pageCap:    pageCap,
		states:     make(map[string]*backendState),
	}
	for _, e := range c.engines() {
		c.states[e.Name()] = &backendState{}
	}
	return c
}

func (c *Controller) engines() []Engine {
	var out []Engine
	if c.primary != nil {
		out = append(out, c.primary)
	}
	if c.secondary != nil {
		out = append(out, c.secondary)
	}
	return out
}

// Engines returns the configured index backends in chain order, for the
// syncer and reindexer.
func (c *Controller) Engines() []Engine { return c.engines() }

// Search runs one query through the backend chain and reconciles the
// winning page against the database.
func (c *Controller) Search(ctx context.Context, q models.SearchQuery) *models.SearchResponse {
	start := time.Now()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if !models.ValidMode(q.Mode) {
		q.Mode = models.ModeAuto
	}

	// Filter-only oldest-first browsing needs the full chronological
	// row set, which only the database can give cheaply and exactly.
	if q.Text == "" && q.Sort == "oldest" {
		return c.searchDatabase(ctx, q, false, start)
	}

	plan := c.planner.Build(q)

	for _, engine := range c.engines() {
		result, err := c.searchEngine(ctx, engine, plan)
		if err != nil {
			c.logger.Warn().Err(err).Str("backend", engine.Name()).
				Msg("Search backend unavailable, falling through")
			continue
		}
		return c.respond(ctx, engine.Name(), result, q, start)
	}

	return c.searchDatabase(ctx, q, true, start)
}

// searchEngine ensures the backend is connected, then runs the plan.
// Connection-class failures flip the backend back to disconnected so
// the next request re-probes instead of assuming health.
func (c *Controller) searchEngine(ctx context.Context, engine Engine, plan Plan) (*Result, error) {
	if err := c.ensureConnected(ctx, engine); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := engine.Search(ctx, plan)
	if err != nil {
		if isConnError(err) {
			c.markDisconnected(engine.Name())
		}
		return nil, err
	}
	return result, nil
}

// ensureConnected lazily pings a disconnected backend, with a bounded
// number of retries, and creates its index on first contact.
func (c *Controller) ensureConnected(ctx context.Context, engine Engine) error {
	bs := c.states[engine.Name()]
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.state == stateConnected {
		return nil
	}
	bs.state = stateConnecting

	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = engine.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
	}
	if err != nil {
		bs.state = stateDisconnected
		return err
	}

	if err := engine.EnsureIndex(ctx); err != nil {
		bs.state = stateDisconnected
		return err
	}
	bs.state = stateConnected
	c.logger.Info().Str("backend", engine.Name()).Msg("Search backend connected")
	return nil
}

func (c *Controller) markDisconnected(name string) {
	bs := c.states[name]
	bs.mu.Lock()
	bs.state = stateDisconnected
	bs.mu.Unlock()
}

// Healthy reports per-backend reachability for the health endpoint.
func (c *Controller) Healthy(ctx context.Context) map[string]bool {
	out := make(map[string]bool, 2)
	for _, engine := range c.engines() {
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out[engine.Name()] = engine.Ping(pingCtx) == nil
		cancel()
	}
	return out
}

// respond paginates (for backends the page was already applied server
// side, total comes from the backend) and reconciles the hits.
func (c *Controller) respond(ctx context.Context, backend string, result *Result, q models.SearchQuery, start time.Time) *models.SearchResponse {
	items := c.reconciler.Reconcile(ctx, result.Hits, q.Text)

	// Post-filtering can shrink the page below the backend total; the
	// backend total still drives pagination so deep pages stay stable.
	total := result.Total
	if total < len(items) {
		total = len(items)
	}

	resp := &models.SearchResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		TotalPages: totalPages(total, q.Limit),
		SearchTime: time.Since(start).Milliseconds(),
	}
	resp.HasMore = q.Page < resp.TotalPages

	switch backend {
	case BackendElasticsearch:
		resp.Elasticsearch = boolPtr(true)
	case BackendTypesense:
		resp.Fallback = true
		resp.Typesense = boolPtr(true)
	}
	return resp
}

// searchDatabase serves the request from decrypted rows. fallback marks
// responses produced because every index backend was down, as opposed to
// the deliberate oldest-sort bypass.
func (c *Controller) searchDatabase(ctx context.Context, q models.SearchQuery, fallback bool, start time.Time) *models.SearchResponse {
	matched, err := c.store.FilterItems(ctx, database.FilterOptions{
		Text:     q.Text,
		Category: q.Category,
		HasImage: q.HasImage,
		Oldest:   q.Sort == "oldest",
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Database search failed")
		return &models.SearchResponse{
			Items:      []models.SearchItem{},
			Page:       q.Page,
			SearchTime: time.Since(start).Milliseconds(),
			Fallback:   fallback,
			Error:      "search unavailable",
		}
	}

	if len(matched) > c.pageCap*maxLimit {
		matched = matched[:c.pageCap*maxLimit]
	}

	total := len(matched)
	offset := (q.Page - 1) * q.Limit
	if offset > total {
		offset = total
	}
	end := offset + q.Limit
	if end > total {
		end = total
	}

	items := make([]models.SearchItem, 0, end-offset)
	for _, item := range matched[offset:end] {
		items = append(items, dbItem(item))
	}

	resp := &models.SearchResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		TotalPages: totalPages(total, q.Limit),
		SearchTime: time.Since(start).Milliseconds(),
		Fallback:   fallback,
	}
	resp.HasMore = q.Page < resp.TotalPages
	if fallback {
		resp.Elasticsearch = boolPtr(false)
		resp.Typesense = boolPtr(false)
	}
	return resp
}

// dbItem converts an authoritative row to a response row. Database hits
// carry no relevance score or highlights.
func dbItem(item models.Item) models.SearchItem {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	sizes := item.Sizes
	if sizes == nil {
		sizes = []models.Size{}
	}
	return models.SearchItem{
		ID:          item.ID,
		FormattedID: textutil.FormatID(item.Category, item.CategoryCounter),
		Name:        item.Name,
		Category:    item.Category,
		ImageURL:    item.ImageURL,
		Tags:        tags,
		Sizes:       sizes,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func totalPages(total, limit int) int {
	if total == 0 || limit == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func boolPtr(b bool) *bool { return &b }

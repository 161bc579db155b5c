package server

import (
	"time"

	"rentalshop/internal/ai"
	"rentalshop/internal/analytics"
	"rentalshop/internal/auth"
	"rentalshop/internal/cache"
	"rentalshop/internal/config"
	"rentalshop/internal/crypto"
	"rentalshop/internal/database"
	"rentalshop/internal/email"
	"rentalshop/internal/handlers"
	"rentalshop/internal/k8s"
	"rentalshop/internal/search"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	db     *sqlx.DB
	config *config.Config
	logger zerolog.Logger

	store      *database.ItemStore
	controller *search.Controller
	syncer     *search.Syncer
	reindexer  *search.Reindexer
	cache      *cache.SearchCache
	analytics  *analytics.Service
	auth       *auth.Manager
	extractor  *ai.Extractor
	k8sClient  *k8s.Client
}

// New creates a new server instance and wires the search stack: the
// Elasticsearch and Typesense engines (each optional), the backend
// controller, the mutation syncer and the reindexer.
func New(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) (*Server, error) {
	cipher, err := crypto.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		return nil, err
	}
	store := database.NewItemStore(db, cipher)

	var primary, secondary search.Engine
	if cfg.ElasticsearchURL != "" {
		engine, err := search.NewElasticEngine(cfg.ElasticsearchURL, cfg.IndexName, logger)
		if err != nil {
			return nil, err
		}
		primary = engine
	} else {
		logger.Warn().Msg("Elasticsearch not configured")
	}
	if cfg.TypesenseURL != "" {
		secondary = search.NewTypesenseEngine(cfg.TypesenseURL, cfg.TypesenseAPIKey, cfg.IndexName, logger)
	} else {
		logger.Warn().Msg("Typesense not configured")
	}

	timeout := time.Duration(cfg.SearchTimeout) * time.Second
	controller := search.NewController(primary, secondary, store,
		search.NewPlanner(search.DefaultGating()),
		search.NewReconciler(store, logger),
		cfg.ConnectRetries, timeout, cfg.SearchPageCap, logger)

	syncer := search.NewSyncer(store, controller.Engines(), cfg.SyncQueueSize, timeout, logger)

	var sender search.ReportSender
	if cfg.SendGridAPIKey != "" {
		sender = email.NewService(cfg.SendGridAPIKey, cfg.OperatorEmail)
	}
	reindexer := search.NewReindexer(store, controller.Engines(),
		cfg.ReindexBatchSize, cfg.ReindexBulkSize, cfg.ReindexDelayMS, sender, logger)

	var k8sClient *k8s.Client
	if cfg.ReindexImage != "" {
		k8sClient, err = k8s.NewClient(cfg.ReindexNamespace)
		if err != nil {
			logger.Warn().Err(err).Msg("Kubernetes unavailable, reindex runs in-process")
			k8sClient = nil
		}
	}

	return &Server{
		config:     cfg,
		db:         db,
		logger:     logger,
		store:      store,
		controller: controller,
		syncer:     syncer,
		reindexer:  reindexer,
		cache:      cache.New(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		analytics:  analytics.NewService(db, logger),
		auth:       auth.NewManager(cfg),
		extractor:  ai.NewExtractor(cfg, logger),
		k8sClient:  k8sClient,
	}, nil
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes, and
// starts the background sync worker.
func (s *Server) Initialize() {
	s.echo = echo.New()

	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.HideBanner = true

	s.syncer.Start()
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))
	s.echo.GET("/healthz/search", handlers.SearchHealthHandler(s.controller))

	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/search", handlers.SearchHandler(s.controller, s.cache, s.analytics))
	api.POST("/search/ai", handlers.AISearchHandler(s.extractor, s.controller, s.logger))
	api.GET("/items/:id", handlers.GetItemHandler(s.store))

	api.POST("/admin/login", handlers.LoginHandler(s.auth))

	// Mutations and operational endpoints require an admin session
	admin := api.Group("", auth.Middleware(s.auth))
	admin.POST("/items", handlers.CreateItemHandler(s.store, s.syncer, s.cache))
	admin.PUT("/items/:id", handlers.UpdateItemHandler(s.store, s.syncer, s.cache))
	admin.DELETE("/items/:id", handlers.DeleteItemHandler(s.store, s.syncer, s.cache))
	admin.POST("/admin/reindex", handlers.ReindexHandler(s.reindexer, s.k8sClient, s.config.ReindexImage, s.cache, s.logger))
	admin.GET("/admin/reindex/:name", handlers.ReindexStatusHandler(s.k8sClient))
	admin.GET("/admin/analytics", handlers.AnalyticsSummaryHandler(s.analytics))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown drains the sync queue. Called on process exit.
func (s *Server) Shutdown() {
	s.syncer.Stop()
}

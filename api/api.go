package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
)

// Server is the API server for managing and querying brains.
type Server struct {
	config   Config
	ingestor *ingest.Service
	asker    *retrieval.Orchestrator
	cache    *brain.Cache
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server. The cache is injected separately from
// the services so the runtime-management endpoints can evict and inspect it
// directly.
func NewServer(config Config, ingestor *ingest.Service, asker *retrieval.Orchestrator, cache *brain.Cache, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		ingestor: ingestor,
		asker:    asker,
		cache:    cache,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/createbrains", s.handleCreateBrain)
	app.Post("/upload", s.handleUpload)
	app.Post("/chatbot", s.handleChatbot)
	app.Post("/deletefile", s.handleDeleteFile)
	app.Post("/deletebrain", s.handleDeleteBrain)
	app.Post("/renamebrain", s.handleRenameBrain)
	app.Post("/deleteram", s.handleDeleteRAM)
	app.Get("/membrains", s.handleMemBrains)
	app.Post("/testurl", s.handleTestURL)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

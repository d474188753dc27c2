package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/brainstream/pkg/dashboard"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/manifest"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

// Server is the API server for a dashboard session.
type Server struct {
	config  Config
	session *dashboard.Session
	archive storage.Driver
	logger  *slog.Logger
	app     *fiber.App

	mu       sync.RWMutex
	manifest manifest.Result
}

// NewServer creates a new API server.
// The archive is optional; without it /frames serves the session's own frame
// log. A manifest file that exists but does not decode is an error.
func NewServer(config Config, session *dashboard.Session, archive storage.Driver, log *slog.Logger) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("api server requires a dashboard session")
	}
	if log == nil {
		log = logger.Nop()
	}

	res, err := manifest.LoadOrDefault(config.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		session:  session,
		archive:  archive,
		logger:   log,
		app:      app,
		manifest: res,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/state", s.handleState)
	app.Post("/state/reset", s.handleReset)
	app.Get("/frames", s.handleFrames)
	app.Get("/frames/:id", s.handleGetFrame)
	app.Get("/manifest", s.handleManifest)
	app.Get("/brain/health", s.handleBrainHealth)

	return s, nil
}

// WatchManifest reloads the manifest whenever its file changes, until ctx is
// done. A reload that fails keeps the last good manifest. It returns
// immediately when no manifest path is configured.
func (s *Server) WatchManifest(ctx context.Context) error {
	if s.config.ManifestPath == "" {
		return nil
	}

	return manifest.Watch(ctx, s.config.ManifestPath, func(res manifest.Result, err error) {
		if err != nil {
			s.logger.Warn("manifest reload failed, keeping previous layout",
				"path", s.config.ManifestPath,
				"error", err,
			)
			return
		}

		s.mu.Lock()
		s.manifest = res
		s.mu.Unlock()

		s.logger.Info("manifest reloaded",
			"path", res.Path,
			"found", res.Found,
			"widgets", len(res.Manifest.Widgets),
		)
	})
}

// Manifest returns the current manifest.
func (s *Server) Manifest() manifest.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

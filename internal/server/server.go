// Package server runs the static site behind "md2doc serve": embedded pages
// with an offline response cache, analytics injection and JSON errors.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/logging"
	"github.com/alnah/go-md2doc/internal/web"
)

// shutdownTimeout bounds graceful shutdown once the context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server is the fiber application with its cache.
type Server struct {
	app    *fiber.App
	cache  *Cache
	store  fiber.Storage
	site   *web.Site
	addr   string
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New wires the middleware chain and routes for site.
func New(cfg config.ServerConfig, site *web.Site, logger zerolog.Logger) (*Server, error) {
	snippet, err := BuildSnippet(cfg.Analytics)
	if err != nil {
		return nil, err
	}

	store := NewStorage(cfg.Cache, logger)
	s := &Server{
		cache:  NewCache(store, cfg.Cache, logger),
		store:  store,
		site:   site,
		addr:   cfg.Addr,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(fiberrecover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: logging.NewID,
	}))
	app.Use(requestLogger(logger))
	app.Use(healthcheck.New())
	if cfg.Analytics.Enabled {
		app.Use(Analytics(snippet, logger))
	}
	app.Use(s.cache.Middleware())

	app.Get("/*", s.handleStatic)

	// Every unmatched request gets a JSON 404.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	s.app = app
	return s, nil
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Cache returns the response cache.
func (s *Server) Cache() *Cache {
	return s.cache
}

// Prepare precaches the static assets and drops caches left by older
// versions.
func (s *Server) Prepare(ctx context.Context) error {
	if _, err := s.cache.Install(ctx, s.site, web.PrecachePaths); err != nil {
		return err
	}
	if err := s.cache.Activate(); err != nil {
		s.logger.Warn().Err(err).Msg("removing old caches failed")
	}
	return nil
}

// Serve prepares the cache and listens until ctx is cancelled, then shuts
// down gracefully and closes the store.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing cache store")
		}
	}()

	if err := s.Prepare(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()
	s.logger.Info().Str("addr", s.addr).Msg("serving")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

// Close releases the cache store. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}

func (s *Server) handleStatic(c *fiber.Ctx) error {
	asset, err := s.site.Lookup(c.Path())
	if errors.Is(err, web.ErrNotFound) {
		return c.Next()
	}
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, asset.ContentType)
	return c.Send(asset.Body)
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}

		logger.Warn().Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    code,
				"message": msg,
			},
		})
	}
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Dur("duration", time.Since(start)).
			Msg("request")
		return err
	}
}

package server

import (
	"context"
	"log/slog"
	"time"

	"hangoutd/app/client/gmaps"
	"hangoutd/app/config"
	"hangoutd/app/service/orchestrator"
	"hangoutd/app/service/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

const shutdownTimeout = 5 * time.Second

// Service exposes the session API over HTTP.
type Service struct {
	cfg      *config.Config
	app      *fiber.App
	orch     *orchestrator.Service
	repo     store.Repository
	maps     *gmaps.Client
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg:      do.MustInvoke[*config.Config](di),
		orch:     do.MustInvoke[*orchestrator.Service](di),
		repo:     do.MustInvoke[*store.Service](di),
		maps:     do.MustInvoke[*gmaps.Client](di),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	api := s.app.Group("/api")
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Post("/sessions/:id/messages", s.postMessage)
	api.Get("/sessions/:id/map", s.getMap)

	return s, nil
}

func (s *Service) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Server.Listen)

	if err := s.app.Listen(s.cfg.Server.Listen); err != nil {
		slog.Error("HTTP server stopped", "error", err)
	}
}

package events

import (
	"log/slog"

	"hangoutd/app/service/session"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Update announces a plan revision or finalization for a session.
type Update struct {
	SessionID string
	Plan      session.Plan
	Finalized bool
}

// Service broadcasts plan changes on a bounded channel. Publishing
// never blocks message processing, overflow drops the update.
type Service struct {
	updates chan Update
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		updates: make(chan Update, bufferSize),
	}, nil
}

func (s *Service) Publish(update Update) {
	defer func() {
		// Publishing races against Shutdown closing the channel.
		if r := recover(); r != nil {
			slog.Warn("publish on closed plan update channel", "recovered", r)
		}
	}()

	select {
	case s.updates <- update:
	default:
		slog.Warn("plan update channel is full")
	}
}

func (s *Service) Channel() <-chan Update {
	return s.updates
}

func (s *Service) Shutdown() error {
	close(s.updates)

	return nil
}

package server

import (
	"log/slog"

	"hangoutd/app/client/gmaps"
	"hangoutd/app/client/oracle"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// sessionIDLength matches the short shareable ids users exchange.
const sessionIDLength = 8

func (s *Service) createSession(c *fiber.Ctx) error {
	id := uuid.NewString()[:sessionIDLength]
	s.repo.GetOrCreate(id)

	slog.Info("Session created", "session_id", id)

	return c.Status(fiber.StatusCreated).JSON(createSessionResponse{SessionID: id})
}

func (s *Service) getSession(c *fiber.Ctx) error {
	snapshot, ok := s.orch.GetState(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	return c.JSON(snapshot)
}

func (s *Service) postMessage(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	reply, planUpdate, err := s.orch.ProcessMessage(c.UserContext(), c.Params("id"), req.Message, req.UserName, req.UserID)
	if err != nil {
		slog.Error("Failed to process message", "session_id", c.Params("id"), "error", err)

		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == oracle.ErrCodeUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: retryableErrorMessage})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: retryableErrorMessage})
	}

	return c.JSON(postMessageResponse{Reply: reply, PlanUpdate: planUpdate})
}

func (s *Service) getMap(c *fiber.Ctx) error {
	snapshot, ok := s.orch.GetState(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	var addresses []string
	for _, p := range snapshot.Participants {
		if p.Address != "" {
			addresses = append(addresses, p.Address)
		}
	}

	result := mapResponse{Venues: []gmaps.Venue{}}

	center, found := s.maps.GeographicCenter(c.UserContext(), addresses)
	if found {
		result.Center = &center

		category := c.Query("category", defaultVenueCategory)
		radius := c.QueryInt("radius", defaultVenueRadius)
		if radius <= 0 {
			radius = defaultVenueRadius
		}

		if venues := s.maps.Nearby(c.UserContext(), center, category, uint(radius)); venues != nil {
			result.Venues = venues
		}
	}

	return c.JSON(result)
}

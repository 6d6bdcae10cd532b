package server

import (
	"hangoutd/app/client/gmaps"
	"hangoutd/app/service/session"
)

const retryableErrorMessage = "The assistant is temporarily unavailable. Please try again."

const (
	defaultVenueCategory = "restaurant"
	defaultVenueRadius   = 2000
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type postMessageRequest struct {
	Message  string `json:"message" validate:"required"`
	UserName string `json:"user_name" validate:"required"`
	UserID   string `json:"user_id"`
}

type postMessageResponse struct {
	Reply      string        `json:"reply"`
	PlanUpdate *session.Plan `json:"plan_update"`
}

type mapResponse struct {
	Center *gmaps.Coordinate `json:"center"`
	Venues []gmaps.Venue     `json:"venues"`
}

type errorResponse struct {
	Error string `json:"error"`
}

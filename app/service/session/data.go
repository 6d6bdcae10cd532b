package session

import (
	"fmt"
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeUserInput     MessageType = "user_input"
	MessageTypeAgentResponse MessageType = "agent_response"
	MessageTypeSystemUpdate  MessageType = "system_update"
)

type State string

const (
	StateCollectingInfo State = "collecting_info"
	StatePlanReady      State = "plan_ready"
	StateFinalized      State = "finalized"
)

const (
	ConfidenceLow    = "Low"
	ConfidenceMedium = "Medium"
	ConfidenceHigh   = "High"
)

// Message is one turn in the conversation. History is append-only and
// strictly chronological by insertion order.
type Message struct {
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	UserName       string      `json:"user_name"`
	Type           MessageType `json:"message_type"`
	UserIdentifier string      `json:"user_identifier"`
}

// Participant is one person in the session roster, unique per
// case-insensitive name. A later extraction for the same name replaces
// the whole record, fields are never merged.
type Participant struct {
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	FoodPreferences []string  `json:"food_preferences"`
	Constraints     []string  `json:"constraints"`
	Timestamp       time.Time `json:"timestamp"`
	UserIdentifier  string    `json:"user_identifier"`
}

// Summary renders the participant as a one-line human-readable context
// string for the extraction oracle.
func (p Participant) Summary() string {
	prefs := "no specific preferences"
	if len(p.FoodPreferences) > 0 {
		prefs = strings.Join(p.FoodPreferences, ", ")
	}

	var constraints string
	if len(p.Constraints) > 0 {
		constraints = fmt.Sprintf(" (%s)", strings.Join(p.Constraints, ", "))
	}

	return fmt.Sprintf("%s from %s - likes %s%s", p.Name, p.Address, prefs, constraints)
}

// Plan is one venue recommendation snapshot. Version starts at 1 and
// increases by one on every successful regeneration.
type Plan struct {
	VenueRecommendation string    `json:"venue_recommendation"`
	ReasoningChain      string    `json:"reasoning_chain"`
	Alternatives        []string  `json:"alternatives"`
	ParticipantAnalysis string    `json:"participant_analysis"`
	ContributorSummary  string    `json:"contributor_summary"`
	ConfidenceLevel     string    `json:"confidence_level"`
	Version             int       `json:"version"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Clone returns an independent deep copy, nil-safe.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}

	cp := *p
	cp.Alternatives = append([]string(nil), p.Alternatives...)

	return &cp
}

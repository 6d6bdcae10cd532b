package orchestrator

import (
	"context"

	"hangoutd/app/client/gmaps"
	"hangoutd/app/client/oracle"
	"hangoutd/app/service/session"
)

const minParticipants = 2

const (
	agentName       = "Hangout AI"
	agentIdentifier = "system"
)

const needMoreParticipantsReply = "We need at least 2 participants before I can create a plan. Who else is joining?"

// finalizationTriggers are matched as lowercase substrings, not whole
// words. "decide" also fires inside "undecided", that false positive
// is part of the contract.
var finalizationTriggers = []string{
	"finalize", "make a plan", "make plan", "let's decide",
	"create plan", "generate plan", "what's the plan", "decide",
}

// LanguageOracle is the boundary to the natural-language capability.
// Extraction and plan generation yield (nil, nil) when no usable
// structure was found, transport failures come back as errors tagged
// with oracle.ErrCodeUnavailable.
type LanguageOracle interface {
	ExtractParticipant(ctx context.Context, message, existingContext string) (*oracle.ParticipantFields, error)
	GeneratePlan(ctx context.Context, participants []session.Participant, previous *session.Plan) (*oracle.PlanFields, error)
	Reply(ctx context.Context, message string, history []session.Message) (string, error)
}

// Geocoder is the address-normalization boundary, a total function.
type Geocoder interface {
	Normalize(ctx context.Context, address string) string
}

var (
	_ LanguageOracle = (*oracle.Client)(nil)
	_ Geocoder       = (*gmaps.Client)(nil)
)

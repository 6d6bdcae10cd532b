package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hangoutd/app/client/gmaps"
	"hangoutd/app/client/oracle"
	"hangoutd/app/service/events"
	"hangoutd/app/service/session"
	"hangoutd/app/service/store"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Service is the session state machine. ProcessMessage is the sole
// mutation entry point and runs to completion under a per-session
// lock, so no caller can observe a half-applied transition.
type Service struct {
	repo     store.Repository
	oracle   LanguageOracle
	geo      Geocoder
	eventSvc *events.Service

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*store.Service](di),
		do.MustInvoke[*oracle.Client](di),
		do.MustInvoke[*gmaps.Client](di),
		do.MustInvoke[*events.Service](di),
	), nil
}

func NewService(repo store.Repository, o LanguageOracle, geo Geocoder, eventSvc *events.Service) *Service {
	return &Service{
		repo:     repo,
		oracle:   o,
		geo:      geo,
		eventSvc: eventSvc,
		locks:    map[string]*sync.Mutex{},
	}
}

func (s *Service) sessionLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}

	return lock
}

func shouldFinalize(text string) bool {
	lower := strings.ToLower(text)

	return pie.Any(finalizationTriggers, func(trigger string) bool {
		return strings.Contains(lower, trigger)
	})
}

// ProcessMessage runs one full state transition for an incoming user
// message and returns the reply plus the new plan projection when a
// revision happened.
//
// The user message is committed to history before anything else, so
// the transcript stays complete even when an oracle call fails. All
// further mutations are staged on a clone and committed together, a
// propagated failure leaves the session otherwise untouched.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, text, userName, userID string) (string, *session.Plan, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.repo.GetOrCreate(sessionID)

	sess.AddMessage(session.Message{
		Content:        text,
		Timestamp:      time.Now(),
		UserName:       userName,
		Type:           session.MessageTypeUserInput,
		UserIdentifier: userID,
	})
	s.repo.Save(sess)

	work := sess.Clone()
	finalizeRequested := shouldFinalize(text)

	participant, isNew, err := s.extractParticipant(ctx, work, text, userName, userID)
	if err != nil {
		return "", nil, fmt.Errorf("oracle.ExtractParticipant: %w", err)
	}

	reply, err := s.oracle.Reply(ctx, text, work.RecentHistory())
	if err != nil {
		return "", nil, fmt.Errorf("oracle.Reply: %w", err)
	}

	if participant != nil {
		reply += confirmationClause(*participant, isNew)
	}

	var planChange *session.Plan
	if participant != nil && work.ParticipantCount() >= minParticipants {
		plan, err := s.regeneratePlan(ctx, work)
		if err != nil {
			return "", nil, fmt.Errorf("oracle.GeneratePlan: %w", err)
		}

		if plan != nil {
			work.CurrentPlan = plan
			planChange = plan.Clone()
			reply += planAnnouncement(work.Participants, plan)
		}
	}

	finalized := false
	if finalizeRequested {
		switch {
		case work.CurrentPlan == nil:
			// Full reply replacement, the conversational answer is
			// discarded in this branch.
			reply = needMoreParticipantsReply
		case work.FinalizedPlan == nil:
			work.FinalizedPlan = work.CurrentPlan.Clone()
			finalized = true
			reply += finalizedNotice
		}
	}

	work.RecomputeState()

	work.AddMessage(session.Message{
		Content:        reply,
		Timestamp:      time.Now(),
		UserName:       agentName,
		Type:           session.MessageTypeAgentResponse,
		UserIdentifier: agentIdentifier,
	})

	s.repo.Save(work)

	if planChange != nil {
		s.eventSvc.Publish(events.Update{SessionID: sessionID, Plan: *planChange})
	}
	if finalized {
		s.eventSvc.Publish(events.Update{SessionID: sessionID, Plan: *work.FinalizedPlan, Finalized: true})
	}

	return reply, planChange, nil
}

// extractParticipant drives extraction and the roster upsert. The
// existing record for the sender, when present, is summarized as
// disambiguating context, the upsert itself is still a full replace.
func (s *Service) extractParticipant(ctx context.Context, work *session.Session, text, userName, userID string) (*session.Participant, bool, error) {
	var existingContext string
	if existing, ok := work.FindParticipant(userName); ok {
		existingContext = "Existing info: " + existing.Summary()
	}

	fields, err := s.oracle.ExtractParticipant(ctx, text, existingContext)
	if err != nil {
		return nil, false, err
	}

	if fields == nil {
		return nil, false, nil
	}

	participant := session.Participant{
		Name:            fields.Name,
		Address:         fields.Address,
		FoodPreferences: fields.FoodPreferences,
		Constraints:     fields.Constraints,
		Timestamp:       time.Now(),
		UserIdentifier:  userID,
	}

	if participant.Address != "" {
		participant.Address = s.geo.Normalize(ctx, participant.Address)
	}

	isNew := work.AddParticipant(participant)

	if isNew {
		slog.Info("New participant added", "session_id", work.ID, "name", participant.Name)
	} else {
		slog.Info("Updated participant info", "session_id", work.ID, "name", participant.Name)
	}

	return &participant, isNew, nil
}

// regeneratePlan requests a fresh plan for the full roster. A nil
// result leaves the current plan and its version untouched.
func (s *Service) regeneratePlan(ctx context.Context, work *session.Session) (*session.Plan, error) {
	fields, err := s.oracle.GeneratePlan(ctx, work.Participants, work.CurrentPlan)
	if err != nil || fields == nil {
		return nil, err
	}

	version := 1
	if work.CurrentPlan != nil {
		version = work.CurrentPlan.Version + 1
	}

	confidence := fields.ConfidenceLevel
	if confidence == "" {
		confidence = session.ConfidenceLow
	}

	return &session.Plan{
		VenueRecommendation: fields.VenueRecommendation,
		ReasoningChain:      fields.ReasoningChain,
		Alternatives:        fields.Alternatives,
		ParticipantAnalysis: fields.ParticipantAnalysis,
		ContributorSummary:  fields.ContributorSummary,
		ConfidenceLevel:     confidence,
		Version:             version,
		GeneratedAt:         time.Now(),
	}, nil
}

// GetState returns the read-only session projection.
func (s *Service) GetState(sessionID string) (session.Snapshot, bool) {
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		return session.Snapshot{}, false
	}

	return sess.Snapshot(), true
}

// SessionIDs lists the ids of all known sessions.
func (s *Service) SessionIDs() []string {
	return s.repo.IDs()
}

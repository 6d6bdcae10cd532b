package orchestrator

import (
	"context"
	"errors"
	"testing"

	"hangoutd/app/client/oracle"
	"hangoutd/app/service/events"
	"hangoutd/app/service/session"
	"hangoutd/app/service/store"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	extractFn func(message, existingContext string) (*oracle.ParticipantFields, error)
	planFn    func(participants []session.Participant, previous *session.Plan) (*oracle.PlanFields, error)
	replyFn   func(message string, history []session.Message) (string, error)

	extractCalls int
	planCalls    int
	lastContext  string
}

func (s *stubOracle) ExtractParticipant(_ context.Context, message, existingContext string) (*oracle.ParticipantFields, error) {
	s.extractCalls++
	s.lastContext = existingContext

	if s.extractFn == nil {
		return nil, nil
	}

	return s.extractFn(message, existingContext)
}

func (s *stubOracle) GeneratePlan(_ context.Context, participants []session.Participant, previous *session.Plan) (*oracle.PlanFields, error) {
	s.planCalls++

	if s.planFn == nil {
		return nil, nil
	}

	return s.planFn(participants, previous)
}

func (s *stubOracle) Reply(_ context.Context, message string, history []session.Message) (string, error) {
	if s.replyFn == nil {
		return "Sounds good!", nil
	}

	return s.replyFn(message, history)
}

type passthroughGeo struct{}

func (passthroughGeo) Normalize(_ context.Context, address string) string {
	return address
}

type testEnv struct {
	svc      *Service
	repo     *store.Service
	oracle   *stubOracle
	eventSvc *events.Service
}

func newTestEnv(t *testing.T, o *stubOracle) *testEnv {
	t.Helper()

	repo := store.NewInMemory()

	eventSvc, err := events.New(nil)
	require.NoError(t, err)

	return &testEnv{
		svc:      NewService(repo, o, passthroughGeo{}, eventSvc),
		repo:     repo,
		oracle:   o,
		eventSvc: eventSvc,
	}
}

func extractionOf(name, address string, prefs, constraints []string) func(string, string) (*oracle.ParticipantFields, error) {
	return func(string, string) (*oracle.ParticipantFields, error) {
		return &oracle.ParticipantFields{
			Name:            name,
			Address:         address,
			FoodPreferences: prefs,
			Constraints:     constraints,
		}, nil
	}
}

func planOf(venue, confidence string) func([]session.Participant, *session.Plan) (*oracle.PlanFields, error) {
	return func([]session.Participant, *session.Plan) (*oracle.PlanFields, error) {
		return &oracle.PlanFields{
			VenueRecommendation: venue,
			ReasoningChain:      "central and accommodates everyone",
			Alternatives:        []string{"Alt 1", "Alt 2"},
			ConfidenceLevel:     confidence,
		}, nil
	}
}

func TestFirstContact(t *testing.T) {
	env := newTestEnv(t, &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", []string{"sushi"}, nil),
	})

	reply, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345",
		"Hi I'm Sam from Brooklyn, I like sushi", "Sam", "user-1")
	require.NoError(t, err)

	assert.Contains(t, reply, "Got it! Added **Sam** ")
	assert.Contains(t, reply, "from Brooklyn")
	assert.Contains(t, reply, "who likes sushi")
	assert.Nil(t, planChange)
	assert.Zero(t, env.oracle.planCalls)

	snapshot, ok := env.svc.GetState("abc12345")
	require.True(t, ok)
	assert.Equal(t, 1, snapshot.ParticipantCount)
	assert.Equal(t, "Sam", snapshot.Participants[0].Name)
	assert.Equal(t, session.StateCollectingInfo, snapshot.State)
	assert.Nil(t, snapshot.CurrentPlan)

	// User turn plus agent turn, the agent registers as an active user too.
	require.Len(t, snapshot.ConversationHistory, 2)
	assert.Equal(t, session.MessageTypeUserInput, snapshot.ConversationHistory[0].Type)
	assert.Equal(t, session.MessageTypeAgentResponse, snapshot.ConversationHistory[1].Type)
	assert.Equal(t, []string{"system", "user-1"}, snapshot.ActiveUsers)
}

func TestSecondParticipantTriggersPlan(t *testing.T) {
	o := &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", []string{"sushi"}, nil),
	}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Hi I'm Sam from Brooklyn", "Sam", "user-1")
	require.NoError(t, err)

	o.extractFn = extractionOf("Alex", "Queens", []string{"thai"}, nil)
	o.planFn = planOf("Sushi Place - Midtown", session.ConfidenceMedium)

	reply, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Alex here, from Queens, thai fan", "Alex", "user-2")
	require.NoError(t, err)

	require.NotNil(t, planChange)
	assert.Equal(t, 1, planChange.Version)
	assert.Equal(t, "Sushi Place - Midtown", planChange.VenueRecommendation)
	assert.Contains(t, reply, "🎯 **Plan Updated (v1)**: Now optimizing for 2 people (Sam, Alex)!")
	assert.Contains(t, reply, "Good options available.")

	snapshot, _ := env.svc.GetState("abc12345")
	assert.Equal(t, session.StatePlanReady, snapshot.State)
	require.NotNil(t, snapshot.CurrentPlan)
	assert.Equal(t, 1, snapshot.CurrentPlan.Version)

	update := <-env.eventSvc.Channel()
	assert.Equal(t, "abc12345", update.SessionID)
	assert.Equal(t, 1, update.Plan.Version)
	assert.False(t, update.Finalized)
}

func TestPlanVersionsAreMonotonic(t *testing.T) {
	o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
	require.NoError(t, err)

	o.extractFn = extractionOf("Alex", "Queens", nil, nil)
	o.planFn = planOf("Venue A", session.ConfidenceLow)
	_, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Alex joining", "Alex", "user-2")
	require.NoError(t, err)
	require.NotNil(t, planChange)
	assert.Equal(t, 1, planChange.Version)

	o.extractFn = extractionOf("Sam", "Williamsburg", nil, nil)
	o.planFn = planOf("Venue B", session.ConfidenceHigh)
	_, planChange, err = env.svc.ProcessMessage(t.Context(), "abc12345", "Actually I'm in Williamsburg", "Sam", "user-1")
	require.NoError(t, err)
	require.NotNil(t, planChange)
	assert.Equal(t, 2, planChange.Version)

	// A failed regeneration leaves version and plan untouched.
	o.planFn = func([]session.Participant, *session.Plan) (*oracle.PlanFields, error) {
		return nil, nil
	}
	_, planChange, err = env.svc.ProcessMessage(t.Context(), "abc12345", "Sam again", "Sam", "user-1")
	require.NoError(t, err)
	assert.Nil(t, planChange)

	snapshot, _ := env.svc.GetState("abc12345")
	require.NotNil(t, snapshot.CurrentPlan)
	assert.Equal(t, 2, snapshot.CurrentPlan.Version)
	assert.Equal(t, "Venue B", snapshot.CurrentPlan.VenueRecommendation)
}

func TestNoPlanBelowThreshold(t *testing.T) {
	o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
	env := newTestEnv(t, o)

	for i := 0; i < 3; i++ {
		_, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345", "still just me", "Sam", "user-1")
		require.NoError(t, err)
		assert.Nil(t, planChange)
	}

	assert.Zero(t, o.planCalls)

	snapshot, _ := env.svc.GetState("abc12345")
	assert.Nil(t, snapshot.CurrentPlan)
}

func TestRosterReplaceNotMerge(t *testing.T) {
	o := &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", []string{"sushi", "thai"}, []string{"vegetarian"}),
	}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam, Brooklyn, sushi and thai, vegetarian", "Sam", "user-1")
	require.NoError(t, err)

	// Second extraction carries only an address, earlier preferences
	// are dropped, not merged.
	o.extractFn = extractionOf("sam", "Queens", nil, nil)
	_, _, err = env.svc.ProcessMessage(t.Context(), "abc12345", "moved to Queens btw", "Sam", "user-1")
	require.NoError(t, err)

	snapshot, _ := env.svc.GetState("abc12345")
	require.Equal(t, 1, snapshot.ParticipantCount)
	assert.Equal(t, "sam", snapshot.Participants[0].Name)
	assert.Equal(t, "Queens", snapshot.Participants[0].Address)
	assert.Empty(t, snapshot.Participants[0].FoodPreferences)
	assert.Empty(t, snapshot.Participants[0].Constraints)
}

func TestExistingParticipantContextPassedToExtraction(t *testing.T) {
	o := &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", []string{"sushi"}, nil),
	}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam from Brooklyn", "Sam", "user-1")
	require.NoError(t, err)
	assert.Empty(t, o.lastContext)

	_, _, err = env.svc.ProcessMessage(t.Context(), "abc12345", "also love ramen", "Sam", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Existing info: Sam from Brooklyn - likes sushi", o.lastContext)
}

func TestFinalizeWithoutPlan(t *testing.T) {
	env := newTestEnv(t, &stubOracle{})

	reply, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345", "let's finalize the plan", "Sam", "user-1")
	require.NoError(t, err)

	assert.Equal(t, needMoreParticipantsReply, reply)
	assert.Nil(t, planChange)

	snapshot, _ := env.svc.GetState("abc12345")
	assert.Nil(t, snapshot.FinalizedPlan)
	assert.Equal(t, session.StateCollectingInfo, snapshot.State)
}

func TestFinalizeWithPlan(t *testing.T) {
	o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
	require.NoError(t, err)

	o.extractFn = extractionOf("Alex", "Queens", nil, nil)
	o.planFn = planOf("Venue A", session.ConfidenceHigh)
	_, _, err = env.svc.ProcessMessage(t.Context(), "abc12345", "Alex joining", "Alex", "user-2")
	require.NoError(t, err)

	o.extractFn = nil
	reply, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "ok let's decide", "Sam", "user-1")
	require.NoError(t, err)
	assert.Contains(t, reply, "✅ **Plan Finalized!** The current recommendation has been locked in.")

	snapshot, _ := env.svc.GetState("abc12345")
	require.NotNil(t, snapshot.FinalizedPlan)
	assert.Equal(t, 1, snapshot.FinalizedPlan.Version)
	assert.Equal(t, session.StateFinalized, snapshot.State)
}

func TestFinalizedPlanImmutable(t *testing.T) {
	o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
	require.NoError(t, err)

	o.extractFn = extractionOf("Alex", "Queens", nil, nil)
	o.planFn = planOf("Venue A", session.ConfidenceHigh)
	_, _, err = env.svc.ProcessMessage(t.Context(), "abc12345", "Alex joining, let's decide already", "Alex", "user-2")
	require.NoError(t, err)

	// The same message added the second participant and finalized, so
	// the finalize snapshot covers the freshly generated plan.
	snapshot, _ := env.svc.GetState("abc12345")
	require.NotNil(t, snapshot.FinalizedPlan)
	assert.Equal(t, 1, snapshot.FinalizedPlan.Version)
	assert.Equal(t, "Venue A", snapshot.FinalizedPlan.VenueRecommendation)

	// A later revision moves the current plan but never the finalized one.
	o.extractFn = extractionOf("Kim", "Harlem", nil, nil)
	o.planFn = planOf("Venue B", session.ConfidenceHigh)
	_, planChange, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Kim joining, finalize please", "Kim", "user-3")
	require.NoError(t, err)
	require.NotNil(t, planChange)
	assert.Equal(t, 2, planChange.Version)

	snapshot, _ = env.svc.GetState("abc12345")
	assert.Equal(t, 1, snapshot.FinalizedPlan.Version)
	assert.Equal(t, "Venue A", snapshot.FinalizedPlan.VenueRecommendation)
	assert.Equal(t, 2, snapshot.CurrentPlan.Version)
	assert.Equal(t, session.StateFinalized, snapshot.State)
}

func TestSubstringTriggerFalsePositive(t *testing.T) {
	// "decide" matches inside "undecided", substring matching is the
	// documented contract.
	env := newTestEnv(t, &stubOracle{})

	reply, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "I'm still undecided about food", "Sam", "user-1")
	require.NoError(t, err)

	assert.Equal(t, needMoreParticipantsReply, reply)
}

func TestShouldFinalizeTriggers(t *testing.T) {
	assert.True(t, shouldFinalize("LET'S DECIDE"))
	assert.True(t, shouldFinalize("can you make a plan?"))
	assert.True(t, shouldFinalize("what's the plan"))
	assert.True(t, shouldFinalize("time to finalize"))
	assert.False(t, shouldFinalize("I like sushi"))
	assert.False(t, shouldFinalize("planning is hard"))
}

func TestExtractionTransportErrorLeavesSessionIntact(t *testing.T) {
	env := newTestEnv(t, &stubOracle{
		extractFn: func(string, string) (*oracle.ParticipantFields, error) {
			return nil, oops.Code(oracle.ErrCodeUnavailable).Errorf("connection refused")
		},
	})

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam from Brooklyn", "Sam", "user-1")
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, oracle.ErrCodeUnavailable, oopsErr.Code())

	// Only the user's own message survives a mid-flight failure.
	stored, ok := env.repo.Get("abc12345")
	require.True(t, ok)
	assert.Len(t, stored.History, 1)
	assert.Equal(t, session.MessageTypeUserInput, stored.History[0].Type)
	assert.Equal(t, 0, stored.ParticipantCount())
	assert.Equal(t, session.StateCollectingInfo, stored.State)
}

func TestReplyTransportErrorDiscardsStagedUpsert(t *testing.T) {
	env := newTestEnv(t, &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", nil, nil),
		replyFn: func(string, []session.Message) (string, error) {
			return "", errors.New("reply backend down")
		},
	})

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam from Brooklyn", "Sam", "user-1")
	require.Error(t, err)

	// The extraction had already upserted into the staged copy, none
	// of it may be visible after the failure.
	stored, ok := env.repo.Get("abc12345")
	require.True(t, ok)
	assert.Len(t, stored.History, 1)
	assert.Equal(t, 0, stored.ParticipantCount())
}

func TestConfidenceWording(t *testing.T) {
	tests := []struct {
		confidence string
		want       string
	}{
		{session.ConfidenceHigh, "We have a great recommendation ready!"},
		{session.ConfidenceMedium, "Good options available."},
		{session.ConfidenceLow, "Still gathering info for best recommendations."},
		{"Excellent", "Still gathering info for best recommendations."},
	}

	for _, tc := range tests {
		t.Run(tc.confidence, func(t *testing.T) {
			o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
			env := newTestEnv(t, o)

			_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
			require.NoError(t, err)

			o.extractFn = extractionOf("Alex", "Queens", nil, nil)
			o.planFn = planOf("Venue A", tc.confidence)

			reply, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Alex joining", "Alex", "user-2")
			require.NoError(t, err)
			assert.Contains(t, reply, tc.want)
		})
	}
}

func TestAddressNormalizationApplied(t *testing.T) {
	repo := store.NewInMemory()
	eventSvc, err := events.New(nil)
	require.NoError(t, err)

	geo := geoFunc(func(address string) string {
		return address + ", NY, USA"
	})
	svc := NewService(repo, &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", nil, nil),
	}, geo, eventSvc)

	reply, _, err := svc.ProcessMessage(t.Context(), "abc12345", "Sam from Brooklyn", "Sam", "user-1")
	require.NoError(t, err)
	assert.Contains(t, reply, "from Brooklyn, NY, USA")

	snapshot, _ := svc.GetState("abc12345")
	assert.Equal(t, "Brooklyn, NY, USA", snapshot.Participants[0].Address)
}

type geoFunc func(address string) string

func (f geoFunc) Normalize(_ context.Context, address string) string {
	return f(address)
}

func TestUpdatedParticipantConfirmation(t *testing.T) {
	o := &stubOracle{
		extractFn: extractionOf("Sam", "Brooklyn", []string{"sushi"}, []string{"vegetarian"}),
	}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
	require.NoError(t, err)

	reply, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "update: still Sam", "Sam", "user-1")
	require.NoError(t, err)
	assert.Contains(t, reply, "Updated info for **Sam** from Brooklyn who likes sushi (vegetarian).")
}

func TestFinalizedEventPublished(t *testing.T) {
	o := &stubOracle{extractFn: extractionOf("Sam", "Brooklyn", nil, nil)}
	env := newTestEnv(t, o)

	_, _, err := env.svc.ProcessMessage(t.Context(), "abc12345", "Sam here", "Sam", "user-1")
	require.NoError(t, err)

	o.extractFn = extractionOf("Alex", "Queens", nil, nil)
	o.planFn = planOf("Venue A", session.ConfidenceHigh)
	_, _, err = env.svc.ProcessMessage(t.Context(), "abc12345", "Alex joining, let's decide", "Alex", "user-2")
	require.NoError(t, err)

	update := <-env.eventSvc.Channel()
	assert.False(t, update.Finalized)

	update = <-env.eventSvc.Channel()
	assert.True(t, update.Finalized)
	assert.Equal(t, "Venue A", update.Plan.VenueRecommendation)
}

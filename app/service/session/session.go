package session

import (
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
)

// HistoryWindow bounds every outward history projection. The full
// transcript is kept internally, consumers only ever see the most
// recent window.
const HistoryWindow = 20

// Session is the aggregate root. It exclusively owns its participants,
// messages and plans, nothing is shared across sessions.
type Session struct {
	ID            string          `json:"session_id"`
	Participants  []Participant   `json:"participants"`
	History       []Message       `json:"conversation_history"`
	CurrentPlan   *Plan           `json:"current_plan"`
	FinalizedPlan *Plan           `json:"finalized_plan"`
	CreatedAt     time.Time       `json:"created_at"`
	ActiveUsers   map[string]bool `json:"active_users"`
	State         State           `json:"state"`
}

func New(id string) *Session {
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		ActiveUsers: map[string]bool{},
		State:       StateCollectingInfo,
	}
}

// AddParticipant upserts by case-insensitive name, replacing the whole
// record when the name is already present. Returns true for a new
// participant, false for an update.
func (s *Session) AddParticipant(p Participant) bool {
	for i := range s.Participants {
		if strings.EqualFold(s.Participants[i].Name, p.Name) {
			s.Participants[i] = p
			return false
		}
	}

	s.Participants = append(s.Participants, p)

	return true
}

// FindParticipant looks up a roster entry by case-insensitive name.
func (s *Session) FindParticipant(name string) (Participant, bool) {
	for _, p := range s.Participants {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}

	return Participant{}, false
}

// AddMessage appends to the transcript and registers the sender as an
// active user when the identifier is non-empty.
func (s *Session) AddMessage(m Message) {
	s.History = append(s.History, m)

	if m.UserIdentifier != "" {
		s.ActiveUsers[m.UserIdentifier] = true
	}
}

func (s *Session) ParticipantCount() int {
	return len(s.Participants)
}

// RecentHistory returns the most recent HistoryWindow messages in
// original order.
func (s *Session) RecentHistory() []Message {
	if len(s.History) <= HistoryWindow {
		return s.History
	}

	return s.History[len(s.History)-HistoryWindow:]
}

// RecomputeState derives the state tag from plan presence. Transitions
// are monotone, a finalized session never leaves StateFinalized.
func (s *Session) RecomputeState() {
	switch {
	case s.FinalizedPlan != nil:
		s.State = StateFinalized
	case s.CurrentPlan != nil:
		s.State = StatePlanReady
	default:
		s.State = StateCollectingInfo
	}
}

// Clone deep-copies the session so callers can stage mutations and
// commit them atomically through the repository.
func (s *Session) Clone() *Session {
	cp := &Session{
		ID:            s.ID,
		Participants:  make([]Participant, len(s.Participants)),
		History:       append([]Message(nil), s.History...),
		CurrentPlan:   s.CurrentPlan.Clone(),
		FinalizedPlan: s.FinalizedPlan.Clone(),
		CreatedAt:     s.CreatedAt,
		ActiveUsers:   make(map[string]bool, len(s.ActiveUsers)),
		State:         s.State,
	}

	for i, p := range s.Participants {
		p.FoodPreferences = append([]string(nil), p.FoodPreferences...)
		p.Constraints = append([]string(nil), p.Constraints...)
		cp.Participants[i] = p
	}

	for id := range s.ActiveUsers {
		cp.ActiveUsers[id] = true
	}

	return cp
}

// Snapshot is the read-only serializable session view.
type Snapshot struct {
	SessionID           string        `json:"session_id"`
	Participants        []Participant `json:"participants"`
	ConversationHistory []Message     `json:"conversation_history"`
	CurrentPlan         *Plan         `json:"current_plan"`
	FinalizedPlan       *Plan         `json:"finalized_plan"`
	CreatedAt           time.Time     `json:"created_at"`
	ActiveUsers         []string      `json:"active_users"`
	State               State         `json:"state"`
	ParticipantCount    int           `json:"participant_count"`
}

// Snapshot projects the session for external consumption without
// mutating it. History is truncated to the most recent HistoryWindow
// entries to bound payload size.
func (s *Session) Snapshot() Snapshot {
	clone := s.Clone()

	return Snapshot{
		SessionID:           clone.ID,
		Participants:        clone.Participants,
		ConversationHistory: clone.RecentHistory(),
		CurrentPlan:         clone.CurrentPlan,
		FinalizedPlan:       clone.FinalizedPlan,
		CreatedAt:           clone.CreatedAt,
		ActiveUsers:         pie.Sort(pie.Keys(clone.ActiveUsers)),
		State:               clone.State,
		ParticipantCount:    clone.ParticipantCount(),
	}
}

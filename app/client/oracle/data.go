package oracle

// ErrCodeUnavailable tags transport-level oracle failures so callers
// can distinguish them from expected-empty results.
const ErrCodeUnavailable = "oracle_unavailable"

// ParticipantFields is the structured result of extracting participant
// information from one chat message. Name is required for a non-empty
// result, everything else may be absent.
type ParticipantFields struct {
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	FoodPreferences []string `json:"food_preferences"`
	Constraints     []string `json:"constraints"`
}

// PlanFields is the structured result of one plan generation call.
// ConfidenceLevel is accepted verbatim from the oracle and only the
// closed Low/Medium/High set gets special wording downstream.
type PlanFields struct {
	VenueRecommendation string   `json:"venue_recommendation"`
	ReasoningChain      string   `json:"reasoning_chain"`
	Alternatives        []string `json:"alternatives"`
	ParticipantAnalysis string   `json:"participant_analysis"`
	ContributorSummary  string   `json:"contributor_summary"`
	ConfidenceLevel     string   `json:"confidence_level"`
}

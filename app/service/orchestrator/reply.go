package orchestrator

import (
	"fmt"
	"strings"

	"hangoutd/app/service/session"

	"github.com/elliotchance/pie/v2"
)

const finalizedNotice = "\n\n✅ **Plan Finalized!** The current recommendation has been locked in."

// confirmationClause is templated by the core, not the oracle, so the
// echoed participant details are guaranteed accurate even when the
// conversational prose drifts.
func confirmationClause(p session.Participant, isNew bool) string {
	var b strings.Builder

	if isNew {
		fmt.Fprintf(&b, "\n\nGot it! Added **%s** ", p.Name)
	} else {
		fmt.Fprintf(&b, "\n\nUpdated info for **%s** ", p.Name)
	}

	if p.Address != "" {
		b.WriteString("from " + p.Address)
	}
	if len(p.FoodPreferences) > 0 {
		b.WriteString(" who likes " + strings.Join(p.FoodPreferences, ", "))
	}
	if len(p.Constraints) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(p.Constraints, ", "))
	}

	b.WriteString(".")

	return b.String()
}

func planAnnouncement(participants []session.Participant, plan *session.Plan) string {
	names := pie.Map(participants, func(p session.Participant) string {
		return p.Name
	})

	text := fmt.Sprintf("\n\n🎯 **Plan Updated (v%d)**: Now optimizing for %d people (%s)!",
		plan.Version, len(participants), strings.Join(names, ", "))

	switch plan.ConfidenceLevel {
	case session.ConfidenceHigh:
		text += " We have a great recommendation ready!"
	case session.ConfidenceMedium:
		text += " Good options available."
	default:
		text += " Still gathering info for best recommendations."
	}

	return text
}

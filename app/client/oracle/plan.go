package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hangoutd/app/service/session"
	"hangoutd/app/util/jsonx"

	_ "embed"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/prompts"
)

//go:embed plan_system_prompt.txt
var planSystemPrompt string

//go:embed plan_user_prompt.txt
var planUserPromptTemplate string

// GeneratePlan asks the oracle for a venue recommendation covering the
// full roster. A (nil, nil) result means no usable plan was produced
// and the caller must leave the current plan untouched.
func (c *Client) GeneratePlan(ctx context.Context, participants []session.Participant, previous *session.Plan) (*PlanFields, error) {
	lines := pie.Map(participants, func(p session.Participant) string {
		line := fmt.Sprintf("- %s from %s", p.Name, p.Address)
		if len(p.FoodPreferences) > 0 {
			line += ", likes " + strings.Join(p.FoodPreferences, ", ")
		}
		if len(p.Constraints) > 0 {
			line += ", constraints: " + strings.Join(p.Constraints, ", ")
		}

		return line
	})

	templateValues := map[string]any{
		"count":        len(participants),
		"participants": strings.Join(lines, "\n"),
		"previous":     "",
		"version":      0,
	}
	if previous != nil {
		templateValues["previous"] = previous.VenueRecommendation
		templateValues["version"] = previous.Version
	}

	userPrompt, err := prompts.NewPromptTemplate(planUserPromptTemplate,
		[]string{"count", "participants", "previous", "version"}).Format(templateValues)
	if err != nil {
		return nil, fmt.Errorf("failed to render plan prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	aiResponse, err := c.plan.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.planModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: planSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxCompletionTokens: 1500,
			Temperature:         0.5,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, oops.Code(ErrCodeUnavailable).Wrapf(err, "plan completion failed")
	}

	if len(aiResponse.Choices) == 0 {
		slog.Debug("Plan response contained no choices")
		return nil, nil
	}

	var fields PlanFields
	if !jsonx.Decode(aiResponse.Choices[0].Message.Content, &fields) {
		slog.Debug("No plan JSON found in plan response")
		return nil, nil
	}

	if fields.VenueRecommendation == "" {
		return nil, nil
	}

	return &fields, nil
}

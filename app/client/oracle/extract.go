package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"hangoutd/app/util/jsonx"

	_ "embed"

	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/prompts"
)

//go:embed extract_system_prompt.txt
var extractSystemPrompt string

//go:embed extract_user_prompt.txt
var extractUserPromptTemplate string

// ExtractParticipant asks the oracle to pull structured participant
// fields out of one chat message. A (nil, nil) result means no
// participant was found, which is the normal outcome for chit-chat.
// Transport failures are returned tagged with ErrCodeUnavailable.
func (c *Client) ExtractParticipant(ctx context.Context, message, existingContext string) (*ParticipantFields, error) {
	userPrompt, err := prompts.NewPromptTemplate(extractUserPromptTemplate, []string{"message", "context"}).
		Format(map[string]any{
			"message": message,
			"context": existingContext,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	aiResponse, err := c.extraction.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.extractionModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: extractSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxCompletionTokens: 1000,
			Temperature:         0.3,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, oops.Code(ErrCodeUnavailable).Wrapf(err, "extraction completion failed")
	}

	if len(aiResponse.Choices) == 0 {
		slog.Debug("Extraction response contained no choices")
		return nil, nil
	}

	var fields ParticipantFields
	if !jsonx.Decode(aiResponse.Choices[0].Message.Content, &fields) {
		slog.Debug("No participant JSON found in extraction response")
		return nil, nil
	}

	if fields.Name == "" {
		return nil, nil
	}

	return &fields, nil
}

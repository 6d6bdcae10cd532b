package oracle

import (
	"context"
	"strings"

	"hangoutd/app/service/session"

	_ "embed"

	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

//go:embed reply_system_prompt.txt
var replySystemPrompt string

// replyTurns bounds how many history entries become chat turns.
const replyTurns = 10

const replyFallback = "I'm here to help plan your hangout! Please tell me your name and where you're located."

// Reply generates the conversational answer for the current message,
// replaying recent history as chat turns. A malformed response falls
// back to a canned greeting instead of failing the turn.
func (c *Client) Reply(ctx context.Context, message string, history []session.Message) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: replySystemPrompt,
		},
	}

	turns := history
	if len(turns) > replyTurns {
		turns = turns[len(turns)-replyTurns:]
	}

	for _, m := range turns {
		role := openai.ChatMessageRoleAssistant
		if m.Type == session.MessageTypeUserInput {
			role = openai.ChatMessageRoleUser
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	aiResponse, err := c.reply.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:               c.replyModel,
			Messages:            messages,
			MaxCompletionTokens: 500,
			Temperature:         0.8,
		},
	)
	if err != nil {
		return "", oops.Code(ErrCodeUnavailable).Wrapf(err, "reply completion failed")
	}

	if len(aiResponse.Choices) == 0 || strings.TrimSpace(aiResponse.Choices[0].Message.Content) == "" {
		return replyFallback, nil
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}

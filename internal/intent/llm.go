package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPromptTemplate = `You are an AI assistant that helps users manage their email and calendar.
You have access to the following functions:
- list_emails(query?: string, maxResults?: number): List/search emails
- send_email(to: string, subject: string, body: string): Send an email
- list_events(timeMin?: string, timeMax?: string): List calendar events
- create_event(summary: string, start: string, end: string, attendees?: string[], description?: string): Create calendar event

Based on the user's message, determine what action to take and extract the parameters.
Respond with JSON in this format:
{
  "action": "list_emails" | "send_email" | "list_events" | "create_event" | "none",
  "params": { ... },
  "response": "Your friendly response to the user"
}

For dates, use ISO format. Current date: %s
If the user asks something you can't help with, set action to "none".`

type completionsSvc interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// NewLLM creates the LLM-assisted resolver on top of an OpenAI client.
// Empty model selects gpt-4o-mini.
func NewLLM(client openai.Client, model shared.ChatModel) *LLM {
	if model == "" {
		model = shared.ChatModelGPT4oMini
	}

	return &LLM{
		completions: &client.Chat.Completions,
		model:       model,
	}
}

// LLM resolves messages with a JSON-mode chat completion. Any transport or
// parse failure is returned as an error for the caller to fall back on;
// it must never reach the end user.
type LLM struct {
	completions completionsSvc
	model       shared.ChatModel
}

// Resolve implements Resolver.
func (l *LLM) Resolve(ctx context.Context, message string, now time.Time) (*Intent, error) {
	prompt := fmt.Sprintf(systemPromptTemplate, now.UTC().Format(time.RFC3339))

	completion, err := l.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(message),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("completions.New failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("completion has no choices")
	}

	resolved := &Intent{}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), resolved); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}
	if !resolved.Action.Known() {
		return nil, fmt.Errorf("unknown action %q", resolved.Action)
	}

	return resolved, nil
}

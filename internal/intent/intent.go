// Package intent turns free-text user messages into structured actions.
// Two interchangeable resolvers exist: an LLM-assisted one and a keyword
// one; Fallback chains them so LLM failures stay invisible to the user.
package intent

import (
	"context"
	"time"
)

// Action identifies one of the supported operations.
type Action string

const (
	// ActionListEmails lists or searches mailbox messages.
	ActionListEmails Action = "list_emails"
	// ActionSendEmail sends a plain-text email.
	ActionSendEmail Action = "send_email"
	// ActionListEvents lists upcoming calendar events.
	ActionListEvents Action = "list_events"
	// ActionCreateEvent creates a calendar event.
	ActionCreateEvent Action = "create_event"
	// ActionNone means no downstream call; the response stands alone.
	ActionNone Action = "none"
)

// Known reports whether a is one of the supported actions.
func (a Action) Known() bool {
	switch a {
	case ActionListEmails, ActionSendEmail, ActionListEvents, ActionCreateEvent, ActionNone:
		return true
	}

	return false
}

// Params carries every parameter any action can take; fields unused by the
// resolved action stay zero. One flat struct lets the LLM JSON payload
// decode in a single step.
type Params struct {
	Query      string `json:"query,omitempty"`
	MaxResults int64  `json:"maxResults,omitempty"`

	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`

	TimeMin string `json:"timeMin,omitempty"`
	TimeMax string `json:"timeMax,omitempty"`

	Summary     string   `json:"summary,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Intent is the structured result of resolving one message.
type Intent struct {
	Action   Action `json:"action"`
	Params   Params `json:"params"`
	Response string `json:"response"`
}

// Resolver maps a message to an Intent. now anchors relative dates such as
// "today" or "tomorrow".
type Resolver interface {
	Resolve(ctx context.Context, message string, now time.Time) (*Intent, error)
}

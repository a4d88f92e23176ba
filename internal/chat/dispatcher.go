// Package chat orchestrates one conversation turn: credential gate, intent
// resolution, the matching downstream action and response shaping.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hal9000y/chat-assistant/internal/auth"
	"github.com/hal9000y/chat-assistant/internal/gservice"
	"github.com/hal9000y/chat-assistant/internal/intent"
)

// actionTimeout bounds the downstream calls of a single turn; a timeout
// surfaces like any other action failure.
const actionTimeout = 12 * time.Second

// listEmailsMax caps the emails attached to one chat reply.
const listEmailsMax = 5

const (
	msgNotConnected   = "Please connect your Google account first"
	msgSessionExpired = "Session expired. Please reconnect."
	msgNoEmails       = "No emails found matching your query."
	msgNoEvents       = "No upcoming events found."
	msgSendMissing    = "Please specify who to send the email to and the subject."
	msgCreateMissing  = "Please specify the meeting title, start time, and end time."
)

type mailSvc interface {
	ListEmails(ctx context.Context, accessToken, query string, maxResults int64) ([]gservice.EmailSummary, error)
	SendEmail(ctx context.Context, accessToken, to, subject, body string) (string, error)
}

type calendarSvc interface {
	ListEvents(ctx context.Context, accessToken, timeMin, timeMax string, maxResults int64) ([]gservice.EventSummary, error)
	CreateEvent(ctx context.Context, accessToken string, input gservice.EventInput) (string, error)
}

type credentials interface {
	EnsureValid(ctx context.Context, cred *auth.Credential) (*auth.Credential, bool, error)
	EnsureSession(ctx context.Context, sessionID string) (*auth.Credential, bool, error)
}

// ResultData carries the structured payload rendered as cards by the
// client.
type ResultData struct {
	Emails []gservice.EmailSummary `json:"emails,omitempty"`
	Events []gservice.EventSummary `json:"events,omitempty"`
}

// Result is the unit returned for one turn. Tokens carries a refreshed
// credential back to a stateless client for storage.
type Result struct {
	Response string           `json:"response,omitempty"`
	Data     ResultData       `json:"data"`
	Error    string           `json:"error,omitempty"`
	Tokens   *auth.Credential `json:"newTokens,omitempty"`
}

// NewDispatcher wires the dispatcher. timeZone is applied to created
// events; empty selects the gservice default.
func NewDispatcher(creds credentials, res intent.Resolver, mail mailSvc, cal calendarSvc, timeZone string) *Dispatcher {
	return &Dispatcher{
		creds:    creds,
		res:      res,
		mail:     mail,
		cal:      cal,
		timeZone: timeZone,
		timeout:  actionTimeout,
		now:      time.Now,
	}
}

// Dispatcher executes one message against the downstream clients. Failures
// become Result values, never faults, so the conversation can continue.
type Dispatcher struct {
	creds    credentials
	res      intent.Resolver
	mail     mailSvc
	cal      calendarSvc
	timeZone string
	timeout  time.Duration
	now      func() time.Time
}

// Handle processes one turn with a caller-held credential (the stateless
// binding).
func (d *Dispatcher) Handle(ctx context.Context, message string, cred *auth.Credential) Result {
	valid, refreshed, err := d.creds.EnsureValid(ctx, cred)

	return d.dispatch(ctx, message, valid, refreshed, err)
}

// HandleSession processes one turn against a stored session (the keyed
// binding); a refreshed credential is persisted by the store itself.
func (d *Dispatcher) HandleSession(ctx context.Context, message, sessionID string) Result {
	valid, refreshed, err := d.creds.EnsureSession(ctx, sessionID)

	return d.dispatch(ctx, message, valid, refreshed, err)
}

func (d *Dispatcher) dispatch(ctx context.Context, message string, cred *auth.Credential, refreshed bool, err error) Result {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return Result{Error: msgNotConnected}
	case err != nil:
		// Any other gate failure means the refresh grant was rejected.
		return Result{Error: msgSessionExpired}
	}

	var newTokens *auth.Credential
	if refreshed {
		newTokens = cred
	}

	resolved, err := d.res.Resolve(ctx, message, d.now())
	if err != nil {
		// The resolver chain ends in the keyword path, which cannot fail;
		// this only triggers when the dispatcher is wired LLM-only.
		return Result{
			Error:  fmt.Sprintf("Failed to process: %v", err),
			Tokens: newTokens,
		}
	}

	result, err := d.execute(ctx, resolved, cred.AccessToken)
	if err != nil {
		log.Printf("action %s failed: %v", resolved.Action, err)

		return Result{
			Error:  fmt.Sprintf("Failed to process: %v", err),
			Tokens: newTokens,
		}
	}

	result.Tokens = newTokens

	return result
}

func (d *Dispatcher) execute(ctx context.Context, resolved *intent.Intent, accessToken string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result := Result{Response: resolved.Response}
	params := resolved.Params

	switch resolved.Action {
	case intent.ActionListEmails:
		maxResults := params.MaxResults
		if maxResults <= 0 {
			maxResults = listEmailsMax
		}

		emails, err := d.mail.ListEmails(ctx, accessToken, params.Query, maxResults)
		if err != nil {
			return Result{}, fmt.Errorf("mail.ListEmails failed: %w", err)
		}

		result.Data.Emails = emails
		if len(emails) == 0 {
			result.Response = msgNoEmails
		}

	case intent.ActionSendEmail:
		if params.To == "" || params.Subject == "" {
			result.Response = msgSendMissing

			return result, nil
		}

		if _, err := d.mail.SendEmail(ctx, accessToken, params.To, params.Subject, params.Body); err != nil {
			return Result{}, fmt.Errorf("mail.SendEmail failed: %w", err)
		}
		result.Response = fmt.Sprintf("Email sent to %s!", params.To)

	case intent.ActionListEvents:
		events, err := d.cal.ListEvents(ctx, accessToken, params.TimeMin, params.TimeMax, params.MaxResults)
		if err != nil {
			return Result{}, fmt.Errorf("cal.ListEvents failed: %w", err)
		}

		result.Data.Events = events
		if len(events) == 0 {
			result.Response = msgNoEvents
		}

	case intent.ActionCreateEvent:
		if params.Summary == "" || params.Start == "" || params.End == "" {
			result.Response = msgCreateMissing

			return result, nil
		}

		input := gservice.EventInput{
			Summary:     params.Summary,
			Start:       params.Start,
			End:         params.End,
			Attendees:   params.Attendees,
			Description: params.Description,
			TimeZone:    d.timeZone,
		}
		if _, err := d.cal.CreateEvent(ctx, accessToken, input); err != nil {
			return Result{}, fmt.Errorf("cal.CreateEvent failed: %w", err)
		}
		result.Response = fmt.Sprintf("Created event: %q", params.Summary)

	case intent.ActionNone:
		// The resolver's response stands alone.
	}

	return result, nil
}

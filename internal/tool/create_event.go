package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/chat-assistant/internal/gservice"
)

// CreateEventRequest is the create_event tool input.
type CreateEventRequest struct {
	Summary     string   `json:"summary" jsonschema:"event title"`
	Start       string   `json:"start" jsonschema:"local start date-time"`
	End         string   `json:"end" jsonschema:"local end date-time"`
	Attendees   []string `json:"attendees,omitempty" jsonschema:"attendee email addresses"`
	Description string   `json:"description,omitempty" jsonschema:"optional description"`
	TimeZone    string   `json:"time_zone,omitempty" jsonschema:"IANA time zone for start/end"`
}

// CreateEventResponse is the create_event tool output.
type CreateEventResponse struct {
	ID string `json:"id" jsonschema:"provider event ID"`
}

type createEventSvc interface {
	CreateEvent(ctx context.Context, accessToken string, input gservice.EventInput) (string, error)
}

// NewCreateEvent creates the create_event tool handler.
func NewCreateEvent(tokens accessTokenSource, svc createEventSvc) *CreateEvent {
	return &CreateEvent{tokens: tokens, svc: svc}
}

// CreateEvent handles the create_event tool.
type CreateEvent struct {
	tokens accessTokenSource
	svc    createEventSvc
}

// CreateEvent creates an event on the primary calendar.
func (t *CreateEvent) CreateEvent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateEventRequest,
) (*mcp.CallToolResult, CreateEventResponse, error) {
	if input.Summary == "" || input.Start == "" || input.End == "" {
		return nil, CreateEventResponse{}, errors.New("summary, start and end are required")
	}

	token, err := t.tokens.AccessToken(ctx)
	if err != nil {
		return nil, CreateEventResponse{}, fmt.Errorf("tokens.AccessToken failed: %w", err)
	}

	id, err := t.svc.CreateEvent(ctx, token, gservice.EventInput{
		Summary:     input.Summary,
		Start:       input.Start,
		End:         input.End,
		Attendees:   input.Attendees,
		Description: input.Description,
		TimeZone:    input.TimeZone,
	})
	if err != nil {
		return nil, CreateEventResponse{}, fmt.Errorf("svc.CreateEvent failed: %w", err)
	}

	return nil, CreateEventResponse{ID: id}, nil
}

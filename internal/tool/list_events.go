package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/chat-assistant/internal/gservice"
)

// ListEventsRequest is the list_events tool input.
type ListEventsRequest struct {
	TimeMin    string `json:"time_min,omitempty" jsonschema:"RFC 3339 window start, defaults to now"`
	TimeMax    string `json:"time_max,omitempty" jsonschema:"RFC 3339 window end, defaults to now+7d"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"max events to return"`
}

// ListEventsResponse is the list_events tool output.
type ListEventsResponse struct {
	Events       []gservice.EventSummary `json:"events" jsonschema:"event summaries ordered by start time"`
	TotalResults int                     `json:"total_results" jsonschema:"number of events returned"`
}

type listEventsSvc interface {
	ListEvents(ctx context.Context, accessToken, timeMin, timeMax string, maxResults int64) ([]gservice.EventSummary, error)
}

// NewListEvents creates the list_events tool handler.
func NewListEvents(tokens accessTokenSource, svc listEventsSvc) *ListEvents {
	return &ListEvents{tokens: tokens, svc: svc}
}

// ListEvents handles the list_events tool.
type ListEvents struct {
	tokens accessTokenSource
	svc    listEventsSvc
}

// ListEvents lists events in the requested window.
func (t *ListEvents) ListEvents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListEventsRequest,
) (*mcp.CallToolResult, ListEventsResponse, error) {
	token, err := t.tokens.AccessToken(ctx)
	if err != nil {
		return nil, ListEventsResponse{}, fmt.Errorf("tokens.AccessToken failed: %w", err)
	}

	events, err := t.svc.ListEvents(ctx, token, input.TimeMin, input.TimeMax, input.MaxResults)
	if err != nil {
		return nil, ListEventsResponse{}, fmt.Errorf("svc.ListEvents failed: %w", err)
	}

	return nil, ListEventsResponse{
		Events:       events,
		TotalResults: len(events),
	}, nil
}

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/chat-assistant/internal/gservice"
)

// ListEmailsRequest is the list_emails tool input.
type ListEmailsRequest struct {
	Query      string `json:"query,omitempty" jsonschema:"optional Gmail search query"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"max messages to return"`
}

// ListEmailsResponse is the list_emails tool output.
type ListEmailsResponse struct {
	Emails       []gservice.EmailSummary `json:"emails" jsonschema:"message summaries in listing order"`
	TotalResults int                     `json:"total_results" jsonschema:"number of messages returned"`
}

type listEmailsSvc interface {
	ListEmails(ctx context.Context, accessToken, query string, maxResults int64) ([]gservice.EmailSummary, error)
}

// NewListEmails creates the list_emails tool handler.
func NewListEmails(tokens accessTokenSource, svc listEmailsSvc) *ListEmails {
	return &ListEmails{tokens: tokens, svc: svc}
}

// ListEmails handles the list_emails tool.
type ListEmails struct {
	tokens accessTokenSource
	svc    listEmailsSvc
}

// ListEmails lists message summaries matching the optional query.
func (t *ListEmails) ListEmails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListEmailsRequest,
) (*mcp.CallToolResult, ListEmailsResponse, error) {
	token, err := t.tokens.AccessToken(ctx)
	if err != nil {
		return nil, ListEmailsResponse{}, fmt.Errorf("tokens.AccessToken failed: %w", err)
	}

	emails, err := t.svc.ListEmails(ctx, token, input.Query, input.MaxResults)
	if err != nil {
		return nil, ListEmailsResponse{}, fmt.Errorf("svc.ListEmails failed: %w", err)
	}

	return nil, ListEmailsResponse{
		Emails:       emails,
		TotalResults: len(emails),
	}, nil
}

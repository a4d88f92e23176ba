// Package tool exposes the assistant's four actions as MCP tools, a second
// transport binding over the same downstream clients the chat dispatcher
// uses.
package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// accessTokenSource yields a valid bearer token for the tool session,
// refreshing the stored credential when needed.
type accessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type mailSvc interface {
	listEmailsSvc
	sendEmailSvc
}

type calendarSvc interface {
	listEventsSvc
	createEventSvc
}

// NewServer creates an MCP server with the mail and calendar tools.
func NewServer(tokens accessTokenSource, mail mailSvc, cal calendarSvc) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "chat-assistant", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_emails",
		Description: "List or search recent emails",
	}, NewListEmails(tokens, mail).ListEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send a plain-text email",
	}, NewSendEmail(tokens, mail).SendEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "List upcoming calendar events",
	}, NewListEvents(tokens, cal).ListEvents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_event",
		Description: "Create a calendar event and notify attendees",
	}, NewCreateEvent(tokens, cal).CreateEvent)

	return server
}

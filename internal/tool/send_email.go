package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SendEmailRequest is the send_email tool input.
type SendEmailRequest struct {
	To      string `json:"to" jsonschema:"recipient email address"`
	Subject string `json:"subject" jsonschema:"email subject"`
	Body    string `json:"body,omitempty" jsonschema:"plain-text body"`
}

// SendEmailResponse is the send_email tool output.
type SendEmailResponse struct {
	ID string `json:"id" jsonschema:"provider message ID"`
}

type sendEmailSvc interface {
	SendEmail(ctx context.Context, accessToken, to, subject, body string) (string, error)
}

// NewSendEmail creates the send_email tool handler.
func NewSendEmail(tokens accessTokenSource, svc sendEmailSvc) *SendEmail {
	return &SendEmail{tokens: tokens, svc: svc}
}

// SendEmail handles the send_email tool.
type SendEmail struct {
	tokens accessTokenSource
	svc    sendEmailSvc
}

// SendEmail sends a plain-text message.
func (t *SendEmail) SendEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SendEmailRequest,
) (*mcp.CallToolResult, SendEmailResponse, error) {
	if input.To == "" || input.Subject == "" {
		return nil, SendEmailResponse{}, errors.New("to and subject are required")
	}

	token, err := t.tokens.AccessToken(ctx)
	if err != nil {
		return nil, SendEmailResponse{}, fmt.Errorf("tokens.AccessToken failed: %w", err)
	}

	id, err := t.svc.SendEmail(ctx, token, input.To, input.Subject, input.Body)
	if err != nil {
		return nil, SendEmailResponse{}, fmt.Errorf("svc.SendEmail failed: %w", err)
	}

	return nil, SendEmailResponse{ID: id}, nil
}

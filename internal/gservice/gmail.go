package gservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUserID = "me"

const dateDisplayFormat = "Jan 2, 2006"

// NewGMail creates a Gmail client. Extra options are forwarded to the
// underlying service, tests inject option.WithEndpoint here.
func NewGMail(opts ...option.ClientOption) *GMail {
	return &GMail{opts: opts}
}

// GMail provides the two mail operations the assistant supports: listing
// message summaries and sending a plain-text message.
type GMail struct {
	opts []option.ClientOption
}

// ListEmails lists up to maxResults messages matching the optional search
// query and fetches their metadata concurrently. The returned order matches
// the listing order, not fetch completion order. An empty listing yields an
// empty slice, not an error.
func (m *GMail) ListEmails(ctx context.Context, accessToken, query string, maxResults int64) ([]EmailSummary, error) {
	maxResults = normalizeMaxResults(maxResults)

	svc, err := m.newSvc(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	call := svc.Users.Messages.List(gmailUserID).
		MaxResults(maxResults).
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	ids := result.Messages
	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	if len(ids) == 0 {
		return []EmailSummary{}, nil
	}

	summaries := make([]EmailSummary, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			msg, err := svc.Users.Messages.Get(gmailUserID, id.Id).
				Format("METADATA").
				MetadataHeaders("From", "Subject", "Date").
				Context(gctx).
				Do()
			if err != nil {
				return fmt.Errorf("messages.Get %s failed: %w", id.Id, err)
			}

			summaries[i] = summarizeMessage(msg)

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// SendEmail builds an RFC-2822 plain-text message, base64url-encodes it and
// submits it as a raw outbound message. Returns the provider message ID.
func (m *GMail) SendEmail(ctx context.Context, accessToken, to, subject, body string) (string, error) {
	svc, err := m.newSvc(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	raw := strings.Join([]string{
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	msg := &gmail.Message{
		Raw: base64.RawURLEncoding.EncodeToString([]byte(raw)),
	}

	sent, err := svc.Users.Messages.Send(gmailUserID, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent.Id, nil
}

func (m *GMail) newSvc(ctx context.Context, accessToken string) (*gmail.Service, error) {
	svc, err := gmail.NewService(ctx, tokenOpts(accessToken, m.opts)...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

func summarizeMessage(msg *gmail.Message) EmailSummary {
	summary := EmailSummary{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Unread:  slices.Contains(msg.LabelIds, "UNREAD"),
	}

	if msg.InternalDate > 0 {
		summary.Date = time.UnixMilli(msg.InternalDate).Format(dateDisplayFormat)
	}

	if msg.Payload == nil {
		return summary
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			summary.From = header.Value
		case "Subject":
			summary.Subject = header.Value
		case "Date":
			if summary.Date == "" {
				summary.Date = header.Value
			}
		}
	}

	return summary
}

package gservice_test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/hal9000y/chat-assistant/internal/gservice"
)

const testToken = "access-token-1"

type gmailFake struct {
	t *testing.T

	listResponse string
	listQuery    string
	metadata     map[string]string
	metaDelay    map[string]time.Duration

	sentRaw string
}

func (f *gmailFake) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer "+testToken, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/gmail/v1/users/me/messages/send":
			body := map[string]string{}
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			f.sentRaw = body["raw"]
			_, _ = fmt.Fprint(w, `{"id":"sent-1"}`)

		case r.URL.Path == "/gmail/v1/users/me/messages":
			f.listQuery = r.URL.Query().Get("q")
			_, _ = fmt.Fprint(w, f.listResponse)

		case strings.HasPrefix(r.URL.Path, "/gmail/v1/users/me/messages/"):
			id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
			time.Sleep(f.metaDelay[id])

			meta, ok := f.metadata[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = fmt.Fprint(w, `{"error":{"code":404,"message":"not found"}}`)
				return
			}
			_, _ = fmt.Fprint(w, meta)

		default:
			f.t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newGMailFake(t *testing.T, fake *gmailFake) *gservice.GMail {
	t.Helper()
	fake.t = t

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return gservice.NewGMail(option.WithEndpoint(srv.URL))
}

func metadataJSON(id, from, subject string, internalDate int64, unread bool) string {
	labels := `["INBOX"]`
	if unread {
		labels = `["INBOX","UNREAD"]`
	}

	return fmt.Sprintf(`{
		"id": %q,
		"snippet": "snippet %s",
		"internalDate": "%d",
		"labelIds": %s,
		"payload": {"headers": [
			{"name": "From", "value": %q},
			{"name": "Subject", "value": %q},
			{"name": "Date", "value": "Mon, 1 Jan 2024 12:00:00 +0000"}
		]}
	}`, id, id, internalDate, labels, from, subject)
}

func TestListEmails(t *testing.T) {
	internalDate := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	displayDate := time.UnixMilli(internalDate).Format("Jan 2, 2006")

	fake := &gmailFake{
		listResponse: `{"messages":[{"id":"m-001"},{"id":"m-002"},{"id":"m-003"}],"resultSizeEstimate":3}`,
		metadata: map[string]string{
			"m-001": metadataJSON("m-001", "Alice <alice@x.com>", "First", internalDate, true),
			"m-002": metadataJSON("m-002", "Bob <bob@x.com>", "Second", internalDate, false),
			"m-003": metadataJSON("m-003", "Carol <carol@x.com>", "Third", internalDate, false),
		},
		// The first fetch finishes last; output order must not change.
		metaDelay: map[string]time.Duration{"m-001": 50 * time.Millisecond},
	}
	svc := newGMailFake(t, fake)

	emails, err := svc.ListEmails(t.Context(), testToken, "from:alice@x.com", 10)
	require.NoError(t, err)

	assert.Equal(t, "from:alice@x.com", fake.listQuery)
	assert.Equal(t, []gservice.EmailSummary{
		{ID: "m-001", From: "Alice <alice@x.com>", Subject: "First", Snippet: "snippet m-001", Date: displayDate, Unread: true},
		{ID: "m-002", From: "Bob <bob@x.com>", Subject: "Second", Snippet: "snippet m-002", Date: displayDate, Unread: false},
		{ID: "m-003", From: "Carol <carol@x.com>", Subject: "Third", Snippet: "snippet m-003", Date: displayDate, Unread: false},
	}, emails)
}

func TestListEmailsEmptyListing(t *testing.T) {
	fake := &gmailFake{listResponse: `{"resultSizeEstimate":0}`}
	svc := newGMailFake(t, fake)

	emails, err := svc.ListEmails(t.Context(), testToken, "", 0)
	require.NoError(t, err)
	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestListEmailsMetadataFailure(t *testing.T) {
	fake := &gmailFake{
		listResponse: `{"messages":[{"id":"m-001"},{"id":"missing"}],"resultSizeEstimate":2}`,
		metadata: map[string]string{
			"m-001": metadataJSON("m-001", "Alice <alice@x.com>", "First", 0, false),
		},
	}
	svc := newGMailFake(t, fake)

	_, err := svc.ListEmails(t.Context(), testToken, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestSendEmail(t *testing.T) {
	fake := &gmailFake{}
	svc := newGMailFake(t, fake)

	// The ">>>" run produces '+' and '/' in standard base64; the raw
	// payload must use the URL-safe alphabet without padding instead.
	body := "Quoting you:\r\n>>>>>> see you there?"

	id, err := svc.SendEmail(t.Context(), testToken, "bob@x.com", "Lunch", body)
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)

	require.NotEmpty(t, fake.sentRaw)
	assert.NotContains(t, fake.sentRaw, "+")
	assert.NotContains(t, fake.sentRaw, "/")
	assert.NotContains(t, fake.sentRaw, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(fake.sentRaw)
	require.NoError(t, err)
	assert.Equal(t,
		"To: bob@x.com\r\n"+
			"Subject: Lunch\r\n"+
			"Content-Type: text/plain; charset=utf-8\r\n"+
			"\r\n"+
			body,
		string(decoded))
}

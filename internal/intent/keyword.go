package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// timeFormat keeps millisecond precision so day boundaries land on
// 23:59:59.999 exactly.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var fromPattern = regexp.MustCompile(`(?i)from\s+(\S+)`)

const helpResponse = `I can help you with:
• **View emails**: "Show my latest emails" or "Search emails from John"
• **View calendar**: "What's on my calendar today?" or "Show my schedule this week"
• **Send email**: "Send an email to [email] about [topic]"
• **Create event**: "Schedule a meeting tomorrow at 2pm"

What would you like to do?`

// NewKeyword creates the deterministic resolver. Day boundaries for
// "today"/"tomorrow" are computed in loc (UTC when nil).
func NewKeyword(loc *time.Location) *Keyword {
	if loc == nil {
		loc = time.UTC
	}

	return &Keyword{loc: loc}
}

// Keyword resolves messages with ordered substring rules. It is total:
// every message maps to exactly one action and Resolve never fails. Email
// keywords are checked before calendar keywords, so a message mentioning
// both resolves as an email request. Mutating actions (send_email,
// create_event) are never produced here: the keyword rules cannot safely
// infer their parameters.
type Keyword struct {
	loc *time.Location
}

// Resolve implements Resolver.
func (k *Keyword) Resolve(_ context.Context, message string, now time.Time) (*Intent, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "email", "inbox", "mail") {
		return k.resolveEmails(message), nil
	}

	if containsAny(lower, "calendar", "schedule", "event", "meeting") {
		return k.resolveEvents(lower, now), nil
	}

	return &Intent{Action: ActionNone, Response: helpResponse}, nil
}

func (k *Keyword) resolveEmails(message string) *Intent {
	resolved := &Intent{
		Action:   ActionListEmails,
		Response: "Here are your latest emails:",
	}

	if m := fromPattern.FindStringSubmatch(message); m != nil {
		resolved.Params.Query = "from:" + m[1]
		resolved.Response = fmt.Sprintf("Searching for emails from %s...", m[1])
	}

	return resolved
}

func (k *Keyword) resolveEvents(lower string, now time.Time) *Intent {
	resolved := &Intent{
		Action:   ActionListEvents,
		Response: "Here are your upcoming events:",
	}
	resolved.Params.TimeMin = now.In(k.loc).Format(timeFormat)

	local := now.In(k.loc)

	// "today" and "week" win over "tomorrow" when several keywords appear.
	switch {
	case strings.Contains(lower, "today"):
		resolved.Params.TimeMax = endOfDay(local).Format(timeFormat)
		resolved.Response = "Here's your schedule for today:"
	case strings.Contains(lower, "week"):
		resolved.Params.TimeMax = local.Add(7 * 24 * time.Hour).Format(timeFormat)
	case strings.Contains(lower, "tomorrow"):
		start := startOfDay(local.AddDate(0, 0, 1))
		resolved.Params.TimeMin = start.Format(timeFormat)
		resolved.Params.TimeMax = endOfDay(start).Format(timeFormat)
		resolved.Response = "Here's your schedule for tomorrow:"
	}

	return resolved
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999e6, t.Location())
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

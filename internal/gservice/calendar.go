package gservice

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const calendarID = "primary"

// DefaultTimeZone is applied to created events when the caller does not
// supply one.
const DefaultTimeZone = "America/Los_Angeles"

const (
	defaultListWindow  = 7 * 24 * time.Hour
	eventTimeFormat    = "Jan 2, 2006 3:04 PM"
	noTitlePlaceholder = "(No title)"
)

// NewCalendar creates a Calendar client. Extra options are forwarded to the
// underlying service, tests inject option.WithEndpoint here.
func NewCalendar(opts ...option.ClientOption) *Calendar {
	return &Calendar{opts: opts, now: time.Now}
}

// Calendar provides the two calendar operations the assistant supports:
// listing upcoming events and creating one.
type Calendar struct {
	opts []option.ClientOption
	now  func() time.Time
}

// ListEvents lists up to maxResults events in [timeMin, timeMax], both
// RFC 3339. timeMin defaults to now, timeMax to now+7d. Recurring events
// are expanded into instances and ordered by start time.
func (c *Calendar) ListEvents(ctx context.Context, accessToken, timeMin, timeMax string, maxResults int64) ([]EventSummary, error) {
	maxResults = normalizeMaxResults(maxResults)

	now := c.now()
	if timeMin == "" {
		timeMin = now.Format(time.RFC3339)
	}
	if timeMax == "" {
		timeMax = now.Add(defaultListWindow).Format(time.RFC3339)
	}

	svc, err := c.newSvc(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	result, err := svc.Events.List(calendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("events.List failed: %w", err)
	}

	summaries := make([]EventSummary, 0, len(result.Items))
	for _, item := range result.Items {
		summaries = append(summaries, summarizeEvent(item))
	}

	return summaries, nil
}

// CreateEvent creates an event on the primary calendar and asks the
// provider to notify attendees. Returns the provider event ID.
func (c *Calendar) CreateEvent(ctx context.Context, accessToken string, input EventInput) (string, error) {
	svc, err := c.newSvc(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	tz := input.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}

	event := &calendar.Event{
		Summary: input.Summary,
		Start:   &calendar.EventDateTime{DateTime: input.Start, TimeZone: tz},
		End:     &calendar.EventDateTime{DateTime: input.End, TimeZone: tz},
	}
	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	if input.Description != "" {
		event.Description = input.Description
	}

	created, err := svc.Events.Insert(calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("events.Insert failed: %w", err)
	}

	return created.Id, nil
}

func (c *Calendar) newSvc(ctx context.Context, accessToken string) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, tokenOpts(accessToken, c.opts)...)
	if err != nil {
		return nil, fmt.Errorf("calendar.NewService failed: %w", err)
	}

	return svc, nil
}

func summarizeEvent(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:        event.Id,
		Summary:   event.Summary,
		Location:  event.Location,
		Start:     eventTime(event.Start),
		End:       eventTime(event.End),
		Attendees: make([]string, 0, len(event.Attendees)),
	}
	if summary.Summary == "" {
		summary.Summary = noTitlePlaceholder
	}
	for _, attendee := range event.Attendees {
		summary.Attendees = append(summary.Attendees, attendee.Email)
	}

	return summary
}

// eventTime renders a date-time for display, falling back to the date-only
// field for all-day events.
func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime == "" {
		return t.Date
	}

	parsed, err := time.Parse(time.RFC3339, t.DateTime)
	if err != nil {
		return t.DateTime
	}

	return parsed.Format(eventTimeFormat)
}

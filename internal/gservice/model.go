package gservice

// EmailSummary is the read-only projection of a mailbox message rendered as
// a card by the chat client. Date is a display string, not a timestamp.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Unread  bool   `json:"unread"`
}

// EventSummary is the read-only projection of a calendar event. Attendees
// keeps the provider's order.
type EventSummary struct {
	ID        string   `json:"id"`
	Summary   string   `json:"summary"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees"`
}

// EventInput describes a calendar event to create. Start and End are local
// date-times interpreted in TimeZone.
type EventInput struct {
	Summary     string
	Start       string
	End         string
	Attendees   []string
	Description string
	TimeZone    string
}

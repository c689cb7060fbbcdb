// Package events publishes booking lifecycle events to the message bus.
// Publishing is best-effort: the bus is a side channel and its failures
// never affect the booking operation that emitted the event.
package events

import (
	"time"
)

// Booking event types carried on the booking.events topic.
const (
	TypeQuoteSubmitted = "quote.submitted"
	TypeQuoteSent      = "quote.sent"
	TypeQuoteAccepted  = "quote.accepted"
	TypeRentCreated    = "rent.created"
	TypeRentModified   = "rent.modified"
	TypeRentCancelled  = "rent.cancelled"
	TypeRentReminder   = "rent.reminder"
)

// BookingEvent is the wire payload for one lifecycle event.
type BookingEvent struct {
	Type       string         `json:"type"`
	RecordID   string         `json:"record_id"`
	HumanID    string         `json:"human_id,omitempty"`
	Table      string         `json:"table"`
	Locale     string         `json:"locale,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Fields     map[string]any `json:"fields,omitempty"`
}

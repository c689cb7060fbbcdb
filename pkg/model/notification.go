package model

import (
	"time"
)

// Notification tones rendered by the admin dashboard.
const (
	ToneInfo    = "info"
	ToneSuccess = "success"
	ToneWarning = "warning"
	ToneError   = "error"
)

// Notification is an independently persisted record of a business event.
// It has no enforced lifetime coupling to the booking record it describes
// and is never mutated after creation.
type Notification struct {
	ID          string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	EventKey    string         `json:"event_key" bson:"event_key" validate:"required"`
	Type        string         `json:"type" bson:"type" validate:"required"`
	Title       string         `json:"title" bson:"title" validate:"required,max=200"`
	Description string         `json:"description" bson:"description" validate:"required,max=2000"`
	Href        string         `json:"href" bson:"href"`
	Tone        string         `json:"tone" bson:"tone" validate:"required,oneof=info success warning error"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	NotifyAt    *time.Time     `json:"notify_at,omitempty" bson:"notify_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

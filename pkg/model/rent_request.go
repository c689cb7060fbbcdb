package model

import (
	"time"
)

// RentRequest is a durable booking record. Payload, PriceSnapshot and
// UpdatesLog hold JSON text so historical rows decode byte-for-byte
// regardless of which application version wrote them.
type RentRequest struct {
	ID            string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	HumanID       *string          `json:"human_id" bson:"human_id" validate:"omitempty,booking_reference"`
	CarID         string           `json:"car_id,omitempty" bson:"car_id,omitempty"`
	QuoteID       string           `json:"quote_id,omitempty" bson:"quote_id,omitempty" validate:"omitempty,uuid4"`
	Status        string           `json:"status" bson:"status" validate:"required,oneof=new form_submitted accepted registered cancelled"`
	Locale        string           `json:"locale" bson:"locale" validate:"required,min=2,max=5"`
	ContactName   string           `json:"contact_name" bson:"contact_name" validate:"required,min=1,max=200"`
	ContactEmail  string           `json:"contact_email" bson:"contact_email" validate:"required,email"`
	ContactPhone  string           `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	RentalStart   time.Time        `json:"rental_start" bson:"rental_start" validate:"required"`
	RentalEnd     time.Time        `json:"rental_end" bson:"rental_end" validate:"required,gtfield=RentalStart"`
	RentalDays    *int             `json:"rental_days,omitempty" bson:"rental_days,omitempty" validate:"omitempty,gt=0"`
	Delivery      *DeliveryDetails `json:"delivery,omitempty" bson:"delivery,omitempty"`
	Payload       string           `json:"payload,omitempty" bson:"payload,omitempty"`
	PriceSnapshot string           `json:"price_snapshot,omitempty" bson:"price_snapshot,omitempty"`
	UpdatesLog    string           `json:"updates_log,omitempty" bson:"updates_log,omitempty"`
	CancelReason  string           `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty" validate:"omitempty,max=1000"`
	ReminderAt    *time.Time       `json:"reminder_at,omitempty" bson:"reminder_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt     time.Time        `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

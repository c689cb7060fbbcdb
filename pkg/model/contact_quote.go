package model

import (
	"time"
)

// ContactQuote is a quote inquiry submitted before a full rental form.
// BookingRequestData snapshots the inquiry plus the offers sent back,
// stored as JSON text the same way RentRequest payloads are.
type ContactQuote struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	HumanID            *string   `json:"human_id" bson:"human_id" validate:"omitempty,booking_reference"`
	Status             string    `json:"status" bson:"status" validate:"required,oneof=new quote_sent quote_accepted"`
	Locale             string    `json:"locale" bson:"locale" validate:"required,min=2,max=5"`
	Name               string    `json:"name" bson:"name" validate:"required,min=1,max=200"`
	Email              string    `json:"email" bson:"email" validate:"required,email"`
	Phone              string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	CarID              string    `json:"car_id,omitempty" bson:"car_id,omitempty"`
	RentalStart        time.Time `json:"rental_start" bson:"rental_start" validate:"required"`
	RentalEnd          time.Time `json:"rental_end" bson:"rental_end" validate:"required,gtfield=RentalStart"`
	Extras             []string  `json:"extras,omitempty" bson:"extras,omitempty"`
	Message            string    `json:"message,omitempty" bson:"message,omitempty" validate:"omitempty,max=2000"`
	BookingRequestData string    `json:"booking_request_data,omitempty" bson:"booking_request_data,omitempty"`
	UpdatesLog         string    `json:"updates_log,omitempty" bson:"updates_log,omitempty"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

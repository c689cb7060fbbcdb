package model

// Rent request lifecycle statuses.
const (
	RentStatusNew           = "new"
	RentStatusFormSubmitted = "form_submitted"
	RentStatusAccepted      = "accepted"
	RentStatusRegistered    = "registered"
	RentStatusCancelled     = "cancelled"
)

// Contact quote lifecycle statuses.
const (
	QuoteStatusNew      = "new"
	QuoteStatusSent     = "quote_sent"
	QuoteStatusAccepted = "quote_accepted"
)

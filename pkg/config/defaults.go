package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "rentdesk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultDefaultLocale    = "hu"
	DefaultSupportedLocales = "hu,en,de"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingEventsTopic = "booking.events"
	DefaultBookingEventsDLQ   = "dlq-booking-events"

	// Reminder notifications fire this long before the rental start.
	DefaultReminderLeadTime = 48 * time.Hour

	DefaultMaxCancelReasonSize = 1000

	DefaultPaginationLimit = 100
)

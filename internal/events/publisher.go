package events

import (
	"context"
	"time"

	"rentdesk/pkg/kafka"
	"rentdesk/pkg/logger"
)

// Publisher emits booking events. Implementations must swallow transport
// failures after logging them.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent)
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event BookingEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	msg := kafka.NewMessage().
		WithKey(event.RecordID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion("1").
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"type", event.Type,
			"record_id", event.RecordID,
			"error", err,
		)
		return
	}

	p.log.Debug("Booking event published",
		"type", event.Type,
		"record_id", event.RecordID,
		"human_id", event.HumanID,
	)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// noopPublisher drops events, used when the message bus is not deployed.
type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, BookingEvent) {}

func (noopPublisher) Close() error { return nil }

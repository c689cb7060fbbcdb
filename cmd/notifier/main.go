package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentdesk/internal/events"
	notificationsrepository "rentdesk/internal/notifications/repository"
	notificationsservice "rentdesk/internal/notifications/service"
	"rentdesk/pkg/config"
	"rentdesk/pkg/kafka"
	kafka_config "rentdesk/pkg/kafka/config"
	kafkamiddleware "rentdesk/pkg/kafka/middleware"
)

const (
	ServiceName   = "notifier"
	consumerGroup = "rentdesk-notifier"

	rentalDateLayout = "2006-01-02"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting notifier service")

	notificationRepo := notificationsrepository.NewMongoNotificationRepository(cfg)
	if err := notificationRepo.EnsureIndexes(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to ensure notification indexes", "error", err)
	}
	recorder := notificationsservice.NewNotificationService(notificationRepo, cfg)

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		consumerGroup,
		cfg.BookingEventsDLQ,
		handleBookingEvent(recorder, cfg),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start blocks until the context is cancelled, so it runs in its
	// own goroutine and the signal handler is installed before waiting.
	consumerErrors := make(chan error, 1)
	go func() {
		consumerErrors <- consumer.Start(ctx)
	}()
	cfg.Log.Info("Consuming booking events", "topic", cfg.BookingEventsTopic, "group", consumerGroup)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-consumerErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Kafka consumer stopped unexpectedly", "error", err)
		}
	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
	}

	cancel()
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.GracefulShutdown()
	cfg.Log.Info("Notifier stopped gracefully")
}

// handleBookingEvent turns rent creation events into reminder
// notifications. The event key is derived from the event itself so a
// redelivered message dedups against the unique index instead of
// producing a second reminder.
func handleBookingEvent(recorder notificationsservice.NotificationService, cfg *config.Config) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event events.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			cfg.Log.Error("Failed to decode booking event",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			return err
		}

		if event.Type != events.TypeRentCreated {
			return nil
		}

		startRaw, _ := event.Fields["rentalStart"].(string)
		start, err := time.Parse(rentalDateLayout, startRaw)
		if err != nil {
			cfg.Log.Warn("Skipping reminder for event without a parsable rental start",
				"record_id", event.RecordID,
				"rental_start", startRaw,
			)
			return nil
		}

		reference := event.HumanID
		if reference == "" {
			reference = event.RecordID
		}
		notifyAt := start.Add(-cfg.ReminderLeadTime)

		recorder.Record(ctx, notificationsservice.NotificationPayload{
			Type:        events.TypeRentReminder,
			Title:       "Bérlés hamarosan kezdődik",
			Description: fmt.Sprintf("A(z) %s foglalás bérlése %s napon kezdődik.", reference, startRaw),
			Href:        "/" + event.RecordID,
			EventKey:    fmt.Sprintf("db-event:%s:%s:%d:0", events.TypeRentReminder, event.RecordID, event.OccurredAt.UnixMilli()),
			ReferenceID: event.RecordID,
			NotifyAt:    &notifyAt,
			Metadata: map[string]any{
				"rentId":      event.RecordID,
				"humanId":     event.HumanID,
				"rentalStart": startRaw,
			},
		})
		return nil
	}
}

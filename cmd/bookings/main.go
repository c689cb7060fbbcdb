package main

import (
	"context"

	"rentdesk/internal/events"
	"rentdesk/internal/humanid"
	notificationshandler "rentdesk/internal/notifications/handler"
	notificationsrepository "rentdesk/internal/notifications/repository"
	notificationsservice "rentdesk/internal/notifications/service"
	quoteshandler "rentdesk/internal/quotes/handler"
	quotesrepository "rentdesk/internal/quotes/repository"
	quotesservice "rentdesk/internal/quotes/service"
	quotesvalidator "rentdesk/internal/quotes/validator"
	rentalshandler "rentdesk/internal/rentals/handler"
	rentalsrepository "rentdesk/internal/rentals/repository"
	rentalsservice "rentdesk/internal/rentals/service"
	rentalsvalidator "rentdesk/internal/rentals/validator"
	"rentdesk/pkg/app"
	"rentdesk/pkg/config"
	"rentdesk/pkg/kafka"
	kafka_config "rentdesk/pkg/kafka/config"
	kafkamiddleware "rentdesk/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting bookings service")

	publisher := initPublisher(cfg)
	handlers := initHandlers(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers.rentals, handlers.quotes, handlers.notifications)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
		cfg.GracefulShutdown()
	})
	serverApp.Run()
}

type httpHandlers struct {
	rentals       *rentalshandler.RentRequestHandler
	quotes        *quoteshandler.ContactQuoteHandler
	notifications *notificationshandler.NotificationHandler
}

func initHandlers(cfg *config.Config, publisher events.Publisher) httpHandlers {
	notificationRepo := notificationsrepository.NewMongoNotificationRepository(cfg)
	if err := notificationRepo.EnsureIndexes(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to ensure notification indexes", "error", err)
	}
	notifier := notificationsservice.NewNotificationService(notificationRepo, cfg)

	counterStore := humanid.NewMongoCounterStore(cfg)
	generator := humanid.NewGenerator(counterStore, cfg.Log)

	quoteService := quotesservice.NewContactQuoteService(
		quotesrepository.NewMongoContactQuoteRepository(cfg),
		quotesvalidator.NewContactQuoteValidator(cfg.Log),
		generator,
		notifier,
		publisher,
		cfg,
	)

	rentService := rentalsservice.NewRentRequestService(
		rentalsrepository.NewMongoRentRequestRepository(cfg),
		rentalsvalidator.NewRentRequestValidator(cfg.Log),
		generator,
		quoteService,
		notifier,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)

	return httpHandlers{
		rentals:       rentalshandler.NewRentRequestHandler(rentService, cfg.Log),
		quotes:        quoteshandler.NewContactQuoteHandler(quoteService, cfg.Log),
		notifications: notificationshandler.NewNotificationHandler(notifier, cfg.Log),
	}
}

// initPublisher connects the booking event producer. The broker being
// unreachable is not fatal: events are a side channel, so the service
// falls back to a no-op publisher and keeps accepting bookings.
func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Warn("Invalid Kafka configuration, booking events disabled", "error", err)
		return events.NewNoopPublisher()
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQ)
	if err != nil {
		cfg.Log.Warn("Failed to create Kafka producer, booking events disabled", "error", err)
		return events.NewNoopPublisher()
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}

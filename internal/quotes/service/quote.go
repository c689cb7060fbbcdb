package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentdesk/internal/events"
	"rentdesk/internal/humanid"
	notificationsservice "rentdesk/internal/notifications/service"
	quoteserrors "rentdesk/internal/quotes/errors"
	"rentdesk/internal/quotes/repository"
	"rentdesk/internal/quotes/validator"
	"rentdesk/pkg/config"
	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/locale"
	"rentdesk/pkg/model"
	"rentdesk/pkg/sanitizer"
	"rentdesk/pkg/updatelog"

	"github.com/google/uuid"
)

type ContactQuoteService interface {
	Submit(ctx context.Context, q *model.ContactQuote) error
	GetByID(ctx context.Context, id string) (*model.ContactQuote, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, int64, error)
	// SendOffer stores the offer data on the quote and moves it to
	// quote_sent.
	SendOffer(ctx context.Context, id string, bookingRequestData string) error
	// MarkAccepted moves the quote to quote_accepted. Called from the
	// rent creation path when a request references a quote; failures
	// there are swallowed by the caller.
	MarkAccepted(ctx context.Context, id string, offerIndex *int) error
	// PricingSnapshot extracts the accepted offer's price breakdown
	// from the quote's stored offer data, or nil when there is none.
	PricingSnapshot(ctx context.Context, quoteID string, offerIndex *int) (*model.PricingSnapshot, error)
}

type contactQuoteService struct {
	repo      repository.ContactQuoteRepository
	validator *validator.ContactQuoteValidator
	generator *humanid.Generator
	notifier  notificationsservice.NotificationService
	publisher events.Publisher
	cfg       *config.Config
}

func NewContactQuoteService(
	repo repository.ContactQuoteRepository,
	validator *validator.ContactQuoteValidator,
	generator *humanid.Generator,
	notifier notificationsservice.NotificationService,
	publisher events.Publisher,
	cfg *config.Config,
) ContactQuoteService {
	return &contactQuoteService{
		repo:      repo,
		validator: validator,
		generator: generator,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *contactQuoteService) Submit(ctx context.Context, q *model.ContactQuote) error {
	s.sanitize(q)
	s.applyDefaults(q)

	if err := s.validator.Validate(q); err != nil {
		s.cfg.Log.Warn("Contact quote validation failed",
			"email", q.Email,
			"error", err,
		)
		return apperrors.Validation("Contact quote validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	// A failed reference generation never blocks the submission: the
	// record is stored without one rather than with a guessed value.
	ref, err := s.generator.Next(ctx, humanid.TableContactQuotes, time.Now().UTC())
	if err != nil {
		s.cfg.Log.Warn("Proceeding without booking reference",
			"quote_id", q.ID,
			"error", err,
		)
	} else {
		q.HumanID = &ref
	}

	if err := s.repo.Insert(ctx, q); err != nil {
		s.cfg.Log.Error("Failed to store contact quote",
			"quote_id", q.ID,
			"email", q.Email,
			"error", err,
		)
		return apperrors.Internal("Failed to store contact quote", err)
	}

	s.cfg.Log.Info("Contact quote submitted",
		"quote_id", q.ID,
		"human_id", q.HumanID,
		"locale", q.Locale,
	)

	s.notifier.Record(ctx, notificationsservice.NotificationPayload{
		Type:        "contact_quote",
		Title:       "Új ajánlatkérés érkezett",
		Description: fmt.Sprintf("%s (%s) ajánlatot kért.", q.Name, q.Email),
		Href:        "/" + q.ID,
		Tone:        model.ToneSuccess,
		ReferenceID: q.ID,
		Metadata: map[string]any{
			"quoteId": q.ID,
			"humanId": q.HumanID,
			"carId":   q.CarID,
			"action":  "create",
		},
	})

	s.publish(ctx, events.TypeQuoteSubmitted, q)
	return nil
}

func (s *contactQuoteService) GetByID(ctx context.Context, id string) (*model.ContactQuote, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Contact quote ID cannot be empty")
	}

	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, quoteserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Contact quote", id)
		}
		s.cfg.Log.Error("Failed to get contact quote by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve contact quote", err)
	}

	return q, nil
}

func (s *contactQuoteService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	quotes, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list contact quotes", "error", err)
		return nil, 0, apperrors.Internal("Failed to list contact quotes", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count contact quotes", "error", err)
		return nil, 0, apperrors.Internal("Failed to count contact quotes", err)
	}

	return quotes, total, nil
}

func (s *contactQuoteService) SendOffer(ctx context.Context, id string, bookingRequestData string) error {
	q, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	marker, degraded, err := updatelog.Append(q.UpdatesLog, map[string]any{
		"action":  "quote:sent",
		"quoteId": q.ID,
	})
	if err != nil {
		return apperrors.Internal("Failed to append quote update log", err)
	}
	if degraded {
		s.cfg.Log.Warn("Rewrapped legacy update log", "quote_id", q.ID)
	}

	if err := s.repo.UpdateBookingRequestData(ctx, id, bookingRequestData, model.QuoteStatusSent, marker); err != nil {
		if errors.Is(err, quoteserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Contact quote", id)
		}
		s.cfg.Log.Error("Failed to store quote offer",
			"quote_id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to store quote offer", err)
	}

	s.cfg.Log.Info("Quote offer sent", "quote_id", id)

	q.Status = model.QuoteStatusSent
	s.publish(ctx, events.TypeQuoteSent, q)
	return nil
}

func (s *contactQuoteService) MarkAccepted(ctx context.Context, id string, offerIndex *int) error {
	q, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	entry := map[string]any{
		"action":  "quote:accepted",
		"quoteId": q.ID,
	}
	if offerIndex != nil {
		entry["offerAccepted"] = *offerIndex
	}

	marker, degraded, err := updatelog.Append(q.UpdatesLog, entry)
	if err != nil {
		return apperrors.Internal("Failed to append quote update log", err)
	}
	if degraded {
		s.cfg.Log.Warn("Rewrapped legacy update log", "quote_id", q.ID)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.QuoteStatusAccepted, marker); err != nil {
		if errors.Is(err, quoteserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Contact quote", id)
		}
		s.cfg.Log.Error("Failed to mark contact quote accepted",
			"quote_id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to mark contact quote accepted", err)
	}

	s.cfg.Log.Info("Contact quote accepted", "quote_id", id)

	q.Status = model.QuoteStatusAccepted
	s.publish(ctx, events.TypeQuoteAccepted, q)
	return nil
}

func (s *contactQuoteService) PricingSnapshot(ctx context.Context, quoteID string, offerIndex *int) (*model.PricingSnapshot, error) {
	if quoteID == "" {
		return nil, nil
	}

	q, err := s.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	index := 0
	if offerIndex != nil {
		index = *offerIndex
	}
	return model.ParsePricingSnapshot(q.BookingRequestData, index), nil
}

func (s *contactQuoteService) sanitize(q *model.ContactQuote) {
	q.Name = sanitizer.NormalizeName(q.Name)
	q.Email = sanitizer.NormalizeEmail(q.Email)
	q.Phone = sanitizer.NormalizePhone(q.Phone)
	q.Extras = sanitizer.NormalizeExtras(q.Extras)
	q.Message = sanitizer.TrimAndNormalize(q.Message)
}

func (s *contactQuoteService) applyDefaults(q *model.ContactQuote) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Status == "" {
		q.Status = model.QuoteStatusNew
	}
	if strings.TrimSpace(q.Locale) == "" && q.Phone != "" {
		q.Locale = locale.InferLocaleFromPhone(q.Phone)
	}
	q.Locale = locale.ResolveWithin(q.Locale, s.cfg.SupportedLocales, s.cfg.DefaultLocale)
}

func (s *contactQuoteService) publish(ctx context.Context, eventType string, q *model.ContactQuote) {
	humanID := ""
	if q.HumanID != nil {
		humanID = *q.HumanID
	}
	s.publisher.Publish(ctx, events.BookingEvent{
		Type:       eventType,
		RecordID:   q.ID,
		HumanID:    humanID,
		Table:      string(humanid.TableContactQuotes),
		Locale:     q.Locale,
		OccurredAt: time.Now().UTC(),
		Fields: map[string]any{
			"status": q.Status,
			"email":  q.Email,
		},
	})
}

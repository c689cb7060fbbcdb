package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"rentdesk/internal/events"
	"rentdesk/internal/humanid"
	notificationsservice "rentdesk/internal/notifications/service"
	quotesservice "rentdesk/internal/quotes/service"
	rentalserrors "rentdesk/internal/rentals/errors"
	"rentdesk/internal/rentals/repository"
	"rentdesk/internal/rentals/validator"
	"rentdesk/pkg/config"
	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/locale"
	"rentdesk/pkg/model"
	"rentdesk/pkg/sanitizer"
	"rentdesk/pkg/updatelog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const rentalDateLayout = "2006-01-02"

// CancelInput is a self-service cancellation request. Identifier is
// either the record UUID or the booking reference; the contact email
// must match the one stored on the record.
type CancelInput struct {
	Identifier   string `json:"identifier"`
	ContactEmail string `json:"contactEmail"`
	Reason       string `json:"reason,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

type RentRequestService interface {
	// Submit stores a new booking or, when the form carries a rentId,
	// rewrites an existing one.
	Submit(ctx context.Context, values *model.RentFormValues) (*model.RentRequest, error)
	Cancel(ctx context.Context, input CancelInput) error
	GetByID(ctx context.Context, id string) (*model.RentRequest, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, int64, error)
	// ParsedPayload decodes a record's stored payload for form prefill,
	// accepting every historical payload shape.
	ParsedPayload(record *model.RentRequest) (*model.RentPayload, error)
}

type rentRequestService struct {
	repo      repository.RentRequestRepository
	validator *validator.RentRequestValidator
	generator *humanid.Generator
	quotes    quotesservice.ContactQuoteService
	notifier  notificationsservice.NotificationService
	publisher events.Publisher
	cfg       *config.Config
}

func NewRentRequestService(
	repo repository.RentRequestRepository,
	validator *validator.RentRequestValidator,
	generator *humanid.Generator,
	quotes quotesservice.ContactQuoteService,
	notifier notificationsservice.NotificationService,
	publisher events.Publisher,
	cfg *config.Config,
) RentRequestService {
	return &rentRequestService{
		repo:      repo,
		validator: validator,
		generator: generator,
		quotes:    quotes,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *rentRequestService) Submit(ctx context.Context, values *model.RentFormValues) (*model.RentRequest, error) {
	s.sanitize(values)

	if err := s.validator.ValidateForm(values); err != nil {
		s.cfg.Log.Warn("Rent form validation failed",
			"email", values.Contact.Email,
			"error", err,
		)
		return nil, apperrors.Validation("Rent form validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if values.RentID != "" {
		return s.modify(ctx, values)
	}
	return s.create(ctx, values)
}

func (s *rentRequestService) create(ctx context.Context, values *model.RentFormValues) (*model.RentRequest, error) {
	resolved := locale.ResolveWithin(values.Locale, s.cfg.SupportedLocales, s.cfg.DefaultLocale)

	record, err := s.buildRecord(values, resolved)
	if err != nil {
		return nil, err
	}
	record.ID = uuid.New().String()
	record.Status = model.RentStatusNew

	// A failed reference generation never blocks the booking: the
	// record is stored without one rather than with a guessed value.
	ref, err := s.generator.Next(ctx, humanid.TableRentRequests, time.Now().UTC())
	if err != nil {
		s.cfg.Log.Warn("Proceeding without booking reference",
			"rent_id", record.ID,
			"error", err,
		)
	} else {
		record.HumanID = &ref
	}

	reminderAt := record.RentalStart.Add(-s.cfg.ReminderLeadTime)
	record.ReminderAt = &reminderAt

	s.attachPricingSnapshot(ctx, record, values)

	if err := s.validator.ValidateRecord(record); err != nil {
		return nil, apperrors.Validation("Rent request validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		s.cfg.Log.Error("Failed to store rent request",
			"rent_id", record.ID,
			"email", record.ContactEmail,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to store rent request", err)
	}

	s.cfg.Log.Info("Rent request created",
		"rent_id", record.ID,
		"human_id", record.HumanID,
		"locale", record.Locale,
	)

	s.notifier.Record(ctx, notificationsservice.NotificationPayload{
		Type:        "rent_request",
		Title:       "Új bérlési igény érkezett",
		Description: fmt.Sprintf("%s (%s) – %s → %s", record.ContactName, record.ContactEmail, values.RentalPeriod.StartDate, values.RentalPeriod.EndDate),
		Href:        "/" + record.ID,
		Tone:        model.ToneSuccess,
		ReferenceID: record.ID,
		NotifyAt:    record.ReminderAt,
		Metadata: map[string]any{
			"rentId":      record.ID,
			"humanId":     record.HumanID,
			"quoteId":     record.QuoteID,
			"carId":       record.CarID,
			"rentalStart": values.RentalPeriod.StartDate,
			"rentalEnd":   values.RentalPeriod.EndDate,
			"action":      "create",
		},
	})

	// Accepting the originating quote is a courtesy update; its failure
	// never unwinds the stored booking.
	if values.QuoteID != "" {
		if err := s.quotes.MarkAccepted(ctx, values.QuoteID, values.Offer); err != nil {
			s.cfg.Log.Error("Failed to mark contact quote accepted",
				"quote_id", values.QuoteID,
				"rent_id", record.ID,
				"error", err,
			)
		}
	}

	s.publish(ctx, events.TypeRentCreated, record)
	return record, nil
}

func (s *rentRequestService) modify(ctx context.Context, values *model.RentFormValues) (*model.RentRequest, error) {
	resolved := locale.ResolveWithin(values.Locale, s.cfg.SupportedLocales, s.cfg.DefaultLocale)

	record, err := s.buildRecord(values, resolved)
	if err != nil {
		return nil, err
	}

	s.attachPricingSnapshot(ctx, record, values)

	// The read, the log append and the rewrite run in one transaction so
	// a concurrent modification cannot drop an update log entry.
	var changes ChangeMap
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByID(sessCtx, values.RentID)
		if err != nil {
			if errors.Is(err, rentalserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Rent request", values.RentID)
			}
			return apperrors.Internal("Failed to retrieve rent request", err)
		}

		changes = summarizeChanges(recordSnapshot(existing), formSnapshot(values, resolved))

		marker, degraded, err := updatelog.Append(existing.UpdatesLog, map[string]any{
			"action":  "self-service:modify",
			"rentId":  existing.ID,
			"changes": changes,
		})
		if err != nil {
			return apperrors.Internal("Failed to append rent update log", err)
		}
		if degraded {
			s.cfg.Log.Warn("Rewrapped legacy update log", "rent_id", existing.ID)
		}

		record.ID = existing.ID
		record.HumanID = existing.HumanID
		record.Status = existing.Status
		record.UpdatesLog = marker
		if record.QuoteID == "" {
			record.QuoteID = existing.QuoteID
		}

		if err := s.validator.ValidateRecord(record); err != nil {
			return apperrors.Validation("Rent request validation failed", map[string]any{
				"error": err.Error(),
			})
		}

		if err := s.repo.Update(sessCtx, existing.ID, record); err != nil {
			if errors.Is(err, rentalserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Rent request", existing.ID)
			}
			return apperrors.Internal("Failed to update rent request", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to modify rent request",
			"rent_id", values.RentID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Rent request modified",
		"rent_id", record.ID,
		"changed_fields", len(changes),
	)

	s.notifier.Record(ctx, notificationsservice.NotificationPayload{
		Type:        "rent_request",
		Title:       "Bérlés módosítva",
		Description: fmt.Sprintf("%s (%s) frissítette a foglalását – %s → %s", record.ContactName, record.ContactEmail, values.RentalPeriod.StartDate, values.RentalPeriod.EndDate),
		Href:        "/" + record.ID,
		Tone:        model.ToneInfo,
		ReferenceID: record.ID,
		Metadata: map[string]any{
			"rentId":      record.ID,
			"humanId":     record.HumanID,
			"quoteId":     record.QuoteID,
			"carId":       record.CarID,
			"rentalStart": values.RentalPeriod.StartDate,
			"rentalEnd":   values.RentalPeriod.EndDate,
			"action":      "modify",
			"changes":     changes,
		},
	})

	s.publish(ctx, events.TypeRentModified, record)
	return record, nil
}

func (s *rentRequestService) Cancel(ctx context.Context, input CancelInput) error {
	identifier := strings.TrimSpace(input.Identifier)
	email := strings.ToLower(strings.TrimSpace(input.ContactEmail))

	reason := strings.TrimSpace(input.Reason)
	if max := s.cfg.MaxCancelReasonSize; max > 0 && len(reason) > max {
		// Cut on a rune boundary so a multi-byte character spanning the
		// limit is dropped whole instead of leaving invalid UTF-8.
		cut := max
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}

	byRecordID := validator.RecordIDPattern.MatchString(identifier)
	byReference := bookingReferenceShape(identifier)
	if (!byRecordID && !byReference) || email == "" {
		return apperrors.InvalidInput("A booking identifier and the contact email are required")
	}

	var existing *model.RentRequest
	var entry map[string]any
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		if byRecordID {
			existing, err = s.repo.FindByID(sessCtx, identifier)
		} else {
			existing, err = s.repo.FindByHumanID(sessCtx, identifier)
		}
		if err != nil {
			if errors.Is(err, rentalserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Rent request", identifier)
			}
			return apperrors.Internal("Failed to load rent request", err)
		}

		storedEmail := strings.ToLower(strings.TrimSpace(existing.ContactEmail))
		if storedEmail != "" && email != storedEmail {
			return apperrors.Forbidden("Contact email does not match the booking record")
		}

		entry = map[string]any{
			"action":     "self-service:cancel",
			"rentId":     existing.ID,
			"providedId": identifier,
		}
		if reason != "" {
			entry["reason"] = reason
		} else {
			entry["reason"] = nil
		}

		marker, degraded, err := updatelog.Append(existing.UpdatesLog, entry)
		if err != nil {
			return apperrors.Internal("Failed to append rent update log", err)
		}
		if degraded {
			s.cfg.Log.Warn("Rewrapped legacy update log", "rent_id", existing.ID)
		}

		if err := s.repo.Cancel(sessCtx, existing.ID, reason, marker); err != nil {
			if errors.Is(err, rentalserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Rent request", existing.ID)
			}
			return apperrors.Internal("Failed to cancel rent request", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel rent request",
			"identifier", identifier,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Rent request cancelled",
		"rent_id", existing.ID,
		"human_id", existing.HumanID,
	)

	humanID := existing.ID
	if existing.HumanID != nil {
		humanID = *existing.HumanID
	}

	s.notifier.Record(ctx, notificationsservice.NotificationPayload{
		Type:        "rent_request",
		Title:       "Bérlés lemondva",
		Description: fmt.Sprintf("%s (%s) lemondta a foglalását.", existing.ContactName, existing.ContactEmail),
		Href:        "/" + existing.ID,
		Tone:        model.ToneWarning,
		ReferenceID: existing.ID,
		Metadata: map[string]any{
			"rentId":       existing.ID,
			"humanId":      humanID,
			"contactEmail": existing.ContactEmail,
			"reason":       entry["reason"],
			"action":       "cancel",
			"identifier":   identifier,
		},
	})

	existing.Status = model.RentStatusCancelled
	s.publish(ctx, events.TypeRentCancelled, existing)
	return nil
}

func (s *rentRequestService) GetByID(ctx context.Context, id string) (*model.RentRequest, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Rent request ID cannot be empty")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, rentalserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Rent request", id)
		}
		s.cfg.Log.Error("Failed to get rent request by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve rent request", err)
	}

	return record, nil
}

func (s *rentRequestService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	records, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list rent requests", "error", err)
		return nil, 0, apperrors.Internal("Failed to list rent requests", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count rent requests", "error", err)
		return nil, 0, apperrors.Internal("Failed to count rent requests", err)
	}

	return records, total, nil
}

func (s *rentRequestService) ParsedPayload(record *model.RentRequest) (*model.RentPayload, error) {
	if strings.TrimSpace(record.Payload) == "" {
		return nil, apperrors.NotFound("Rent request payload")
	}

	payload, err := model.ParseRentPayload(json.RawMessage(record.Payload))
	if err != nil {
		s.cfg.Log.Error("Failed to parse stored rent payload",
			"rent_id", record.ID,
			"error", err,
		)
		return nil, err
	}
	return payload, nil
}

// buildRecord maps a validated form onto a persistable record. The
// stored payload is always the compact shape regardless of what the
// client submitted.
func (s *rentRequestService) buildRecord(values *model.RentFormValues, resolvedLocale string) (*model.RentRequest, error) {
	start, err := time.Parse(rentalDateLayout, values.RentalPeriod.StartDate)
	if err != nil {
		return nil, apperrors.InvalidInput("rental start date must be YYYY-MM-DD")
	}
	end, err := time.Parse(rentalDateLayout, values.RentalPeriod.EndDate)
	if err != nil {
		return nil, apperrors.InvalidInput("rental end date must be YYYY-MM-DD")
	}

	contactPhone := ""
	if len(values.Driver) > 0 {
		contactPhone = sanitizer.NormalizePhone(values.Driver[0].PhoneNumber)
	}

	compact := model.BuildCompactRentPayload(*values)
	payloadJSON, err := json.Marshal(compact)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode rent payload", err)
	}

	var rentalDays *int
	if values.RentalDays != nil && *values.RentalDays > 0 {
		rentalDays = values.RentalDays
	}

	return &model.RentRequest{
		CarID:        values.CarID,
		QuoteID:      values.QuoteID,
		Locale:       resolvedLocale,
		ContactName:  values.Contact.Name,
		ContactEmail: values.Contact.Email,
		ContactPhone: contactPhone,
		RentalStart:  start,
		RentalEnd:    end,
		RentalDays:   rentalDays,
		Delivery:     model.BuildDeliveryDetails(values.Delivery),
		Payload:      string(payloadJSON),
	}, nil
}

// attachPricingSnapshot copies the accepted offer's price breakdown
// from the originating quote. Failures leave the snapshot absent.
func (s *rentRequestService) attachPricingSnapshot(ctx context.Context, record *model.RentRequest, values *model.RentFormValues) {
	if values.QuoteID == "" {
		return
	}

	snapshot, err := s.quotes.PricingSnapshot(ctx, values.QuoteID, values.Offer)
	if err != nil {
		s.cfg.Log.Error("Failed to load pricing snapshot from quote",
			"quote_id", values.QuoteID,
			"error", err,
		)
		return
	}
	if snapshot == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		s.cfg.Log.Error("Failed to encode pricing snapshot",
			"quote_id", values.QuoteID,
			"error", err,
		)
		return
	}
	record.PriceSnapshot = string(data)
}

func (s *rentRequestService) sanitize(values *model.RentFormValues) {
	values.Contact.Name = sanitizer.NormalizeName(values.Contact.Name)
	values.Contact.Email = sanitizer.NormalizeEmail(values.Contact.Email)
	values.Invoice.Email = sanitizer.NormalizeEmail(values.Invoice.Email)
	values.Extras = sanitizer.NormalizeExtras(values.Extras)
	values.RentID = strings.TrimSpace(values.RentID)
	values.QuoteID = strings.TrimSpace(values.QuoteID)
	values.CarID = strings.TrimSpace(values.CarID)
}

func bookingReferenceShape(identifier string) bool {
	return validator.BookingReferencePattern.MatchString(identifier)
}

func (s *rentRequestService) publish(ctx context.Context, eventType string, record *model.RentRequest) {
	humanID := ""
	if record.HumanID != nil {
		humanID = *record.HumanID
	}
	s.publisher.Publish(ctx, events.BookingEvent{
		Type:       eventType,
		RecordID:   record.ID,
		HumanID:    humanID,
		Table:      string(humanid.TableRentRequests),
		Locale:     record.Locale,
		OccurredAt: time.Now().UTC(),
		Fields: map[string]any{
			"status":      record.Status,
			"email":       record.ContactEmail,
			"rentalStart": record.RentalStart.Format(rentalDateLayout),
			"rentalEnd":   record.RentalEnd.Format(rentalDateLayout),
		},
	})
}

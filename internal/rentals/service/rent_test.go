package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"rentdesk/internal/events"
	"rentdesk/internal/humanid"
	notificationsservice "rentdesk/internal/notifications/service"
	rentalserrors "rentdesk/internal/rentals/errors"
	"rentdesk/internal/rentals/validator"
	"rentdesk/pkg/config"
	mongotx "rentdesk/pkg/db/mongo"
	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockRentRequestRepository struct {
	insertFunc        func(ctx context.Context, r *model.RentRequest) error
	findByIDFunc      func(ctx context.Context, id string) (*model.RentRequest, error)
	findByHumanIDFunc func(ctx context.Context, humanID string) (*model.RentRequest, error)
	findAllFunc       func(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, error)
	countFunc         func(ctx context.Context) (int64, error)
	updateFunc        func(ctx context.Context, id string, r *model.RentRequest) error
	cancelFunc        func(ctx context.Context, id string, reason string, updatesLog string) error

	inserted *model.RentRequest
	updated  *model.RentRequest
}

func (m *mockRentRequestRepository) Insert(ctx context.Context, r *model.RentRequest) error {
	m.inserted = r
	if m.insertFunc != nil {
		return m.insertFunc(ctx, r)
	}
	return nil
}

func (m *mockRentRequestRepository) FindByID(ctx context.Context, id string) (*model.RentRequest, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, id)
}

func (m *mockRentRequestRepository) FindByHumanID(ctx context.Context, humanID string) (*model.RentRequest, error) {
	if m.findByHumanIDFunc != nil {
		return m.findByHumanIDFunc(ctx, humanID)
	}
	return nil, fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, humanID)
}

func (m *mockRentRequestRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.RentRequest{}, nil
}

func (m *mockRentRequestRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockRentRequestRepository) Update(ctx context.Context, id string, r *model.RentRequest) error {
	m.updated = r
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, r)
	}
	return nil
}

func (m *mockRentRequestRepository) Cancel(ctx context.Context, id string, reason string, updatesLog string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id, reason, updatesLog)
	}
	return nil
}

func (m *mockRentRequestRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockQuoteService struct {
	markAcceptedFunc    func(ctx context.Context, id string, offerIndex *int) error
	pricingSnapshotFunc func(ctx context.Context, quoteID string, offerIndex *int) (*model.PricingSnapshot, error)

	acceptedQuoteID string
}

func (m *mockQuoteService) Submit(ctx context.Context, q *model.ContactQuote) error { return nil }

func (m *mockQuoteService) GetByID(ctx context.Context, id string) (*model.ContactQuote, error) {
	return nil, errors.New("not configured")
}

func (m *mockQuoteService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, int64, error) {
	return nil, 0, nil
}

func (m *mockQuoteService) SendOffer(ctx context.Context, id string, bookingRequestData string) error {
	return nil
}

func (m *mockQuoteService) MarkAccepted(ctx context.Context, id string, offerIndex *int) error {
	m.acceptedQuoteID = id
	if m.markAcceptedFunc != nil {
		return m.markAcceptedFunc(ctx, id, offerIndex)
	}
	return nil
}

func (m *mockQuoteService) PricingSnapshot(ctx context.Context, quoteID string, offerIndex *int) (*model.PricingSnapshot, error) {
	if m.pricingSnapshotFunc != nil {
		return m.pricingSnapshotFunc(ctx, quoteID, offerIndex)
	}
	return nil, nil
}

type mockNotificationService struct {
	recorded []notificationsservice.NotificationPayload
}

func (m *mockNotificationService) Record(ctx context.Context, payload notificationsservice.NotificationPayload) {
	m.recorded = append(m.recorded, payload)
}

func (m *mockNotificationService) List(ctx context.Context, limit int, offset int64) ([]*model.Notification, int64, error) {
	return nil, 0, nil
}

type capturePublisher struct {
	published []events.BookingEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event events.BookingEvent) {
	p.published = append(p.published, event)
}

func (p *capturePublisher) Close() error { return nil }

type fakeCounterStore struct {
	next    int64
	failErr error
}

func (f *fakeCounterStore) NextSequence(ctx context.Context, table humanid.Table, year int) (int64, error) {
	if f.failErr != nil {
		return 0, f.failErr
	}
	f.next++
	return f.next, nil
}

type testDeps struct {
	repo      *mockRentRequestRepository
	quotes    *mockQuoteService
	notifier  *mockNotificationService
	publisher *capturePublisher
	store     *fakeCounterStore
}

func newTestService(t *testing.T, deps *testDeps) *rentRequestService {
	t.Helper()

	cfg := &config.Config{
		DefaultLocale:       "hu",
		SupportedLocales:    []string{"hu", "en", "de"},
		ReminderLeadTime:    48 * time.Hour,
		MaxCancelReasonSize: 1000,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}

	return &rentRequestService{
		repo:      deps.repo,
		validator: validator.NewRentRequestValidator(cfg.Log),
		generator: humanid.NewGenerator(deps.store, cfg.Log),
		quotes:    deps.quotes,
		notifier:  deps.notifier,
		publisher: deps.publisher,
		cfg:       cfg,
	}
}

func newDeps() *testDeps {
	return &testDeps{
		repo:      &mockRentRequestRepository{},
		quotes:    &mockQuoteService{},
		notifier:  &mockNotificationService{},
		publisher: &capturePublisher{},
		store:     &fakeCounterStore{},
	}
}

func validForm() *model.RentFormValues {
	return &model.RentFormValues{
		Locale: "en",
		CarID:  "corolla-2023",
		RentalPeriod: model.RentalPeriod{
			StartDate: "2025-07-01",
			EndDate:   "2025-07-08",
		},
		Adults: model.FlexInt{Value: 2, Valid: true},
		Driver: []model.Driver{{
			FirstName1:  "Anna",
			LastName1:   "Kiss",
			PhoneNumber: "+36301234567",
			Email:       "anna.kiss@example.com",
		}},
		Contact: model.Contact{
			Same:  true,
			Name:  "Kiss Anna",
			Email: "anna.kiss@example.com",
		},
		Consents: model.Consents{Privacy: true, Terms: true},
	}
}

func TestSubmit_CreateStoresRecordWithReferenceAndReminder(t *testing.T) {
	deps := newDeps()
	svc := newTestService(t, deps)

	record, err := svc.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.repo.inserted == nil {
		t.Fatal("expected record to be stored")
	}
	if record.Status != model.RentStatusNew {
		t.Errorf("expected status %q, got %q", model.RentStatusNew, record.Status)
	}
	if record.HumanID == nil {
		t.Fatal("expected a booking reference")
	}
	wantPrefix := fmt.Sprintf("%d/", time.Now().UTC().Year())
	if !strings.HasPrefix(*record.HumanID, wantPrefix) {
		t.Errorf("expected reference with prefix %q, got %q", wantPrefix, *record.HumanID)
	}

	wantReminder := record.RentalStart.Add(-48 * time.Hour)
	if record.ReminderAt == nil || !record.ReminderAt.Equal(wantReminder) {
		t.Errorf("expected reminder at %v, got %v", wantReminder, record.ReminderAt)
	}

	var compact model.CompactRentPayload
	if err := json.Unmarshal([]byte(record.Payload), &compact); err != nil {
		t.Fatalf("stored payload is not valid JSON: %v", err)
	}
	if compact.V != model.CompactPayloadVersion {
		t.Errorf("expected compact payload version %d, got %d", model.CompactPayloadVersion, compact.V)
	}

	if len(deps.notifier.recorded) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(deps.notifier.recorded))
	}
	n := deps.notifier.recorded[0]
	if n.Tone != model.ToneSuccess {
		t.Errorf("expected success tone, got %q", n.Tone)
	}
	if n.NotifyAt == nil || !n.NotifyAt.Equal(wantReminder) {
		t.Errorf("expected notification reminder %v, got %v", wantReminder, n.NotifyAt)
	}

	if len(deps.publisher.published) != 1 || deps.publisher.published[0].Type != events.TypeRentCreated {
		t.Errorf("expected one %s event, got %+v", events.TypeRentCreated, deps.publisher.published)
	}
}

func TestSubmit_CreateProceedsWithoutReferenceOnGeneratorFailure(t *testing.T) {
	deps := newDeps()
	deps.store.failErr = errors.New("counters unavailable")
	svc := newTestService(t, deps)

	record, err := svc.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("expected booking to succeed, got %v", err)
	}
	if record.HumanID != nil {
		t.Errorf("expected nil booking reference, got %q", *record.HumanID)
	}
	if deps.repo.inserted == nil {
		t.Fatal("expected record to be stored")
	}
}

func TestSubmit_CreateMarksQuoteAcceptedBestEffort(t *testing.T) {
	deps := newDeps()
	deps.quotes.markAcceptedFunc = func(ctx context.Context, id string, offerIndex *int) error {
		return errors.New("quote store down")
	}
	fee := "100 EUR"
	deps.quotes.pricingSnapshotFunc = func(ctx context.Context, quoteID string, offerIndex *int) (*model.PricingSnapshot, error) {
		return &model.PricingSnapshot{RentalFee: &fee}, nil
	}
	svc := newTestService(t, deps)

	form := validForm()
	form.QuoteID = "8f14e45f-ceea-467f-a0f9-b0e929a1c9d4"

	record, err := svc.Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("expected booking to survive quote failure, got %v", err)
	}
	if deps.quotes.acceptedQuoteID != form.QuoteID {
		t.Errorf("expected quote %s to be marked accepted", form.QuoteID)
	}
	if !strings.Contains(record.PriceSnapshot, "100 EUR") {
		t.Errorf("expected pricing snapshot on record, got %q", record.PriceSnapshot)
	}
}

func TestSubmit_ValidationFailure(t *testing.T) {
	deps := newDeps()
	svc := newTestService(t, deps)

	form := validForm()
	form.Consents.Terms = false

	_, err := svc.Submit(context.Background(), form)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected code %s, got %s", apperrors.CodeValidation, appErr.Code)
	}
	if deps.repo.inserted != nil {
		t.Error("expected no store call on validation failure")
	}
}

func TestSubmit_ModifySummarizesChanges(t *testing.T) {
	ref := "2025/0003"
	existing := &model.RentRequest{
		ID:           "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		HumanID:      &ref,
		Status:       model.RentStatusAccepted,
		Locale:       "en",
		CarID:        "corolla-2023",
		ContactName:  "Kiss Anna",
		ContactEmail: "anna.kiss@example.com",
		ContactPhone: "+36301234567",
		RentalStart:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		RentalEnd:    time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC),
	}

	deps := newDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.RentRequest, error) {
		return existing, nil
	}
	svc := newTestService(t, deps)

	form := validForm()
	form.RentID = existing.ID
	form.RentalPeriod.EndDate = "2025-07-10"

	record, err := svc.Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != model.RentStatusAccepted {
		t.Errorf("expected status preserved, got %q", record.Status)
	}
	if record.HumanID == nil || *record.HumanID != ref {
		t.Errorf("expected booking reference preserved, got %v", record.HumanID)
	}

	if !strings.Contains(record.UpdatesLog, `"action":"self-service:modify"`) {
		t.Errorf("expected modify audit entry, got %s", record.UpdatesLog)
	}
	if !strings.Contains(record.UpdatesLog, `"rentalEnd"`) {
		t.Errorf("expected rentalEnd change in audit entry, got %s", record.UpdatesLog)
	}
	if strings.Contains(record.UpdatesLog, `"contactName"`) {
		t.Errorf("unchanged field recorded as change: %s", record.UpdatesLog)
	}

	if len(deps.publisher.published) != 1 || deps.publisher.published[0].Type != events.TypeRentModified {
		t.Errorf("expected one %s event, got %+v", events.TypeRentModified, deps.publisher.published)
	}
}

func TestCancel_ByReferenceWithMatchingEmail(t *testing.T) {
	ref := "2025/0003"
	existing := &model.RentRequest{
		ID:           "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		HumanID:      &ref,
		Status:       model.RentStatusAccepted,
		ContactName:  "Kiss Anna",
		ContactEmail: "Anna.Kiss@example.com",
	}

	var gotReason, gotLog string
	deps := newDeps()
	deps.repo.findByHumanIDFunc = func(ctx context.Context, humanID string) (*model.RentRequest, error) {
		if humanID != ref {
			return nil, fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, humanID)
		}
		return existing, nil
	}
	deps.repo.cancelFunc = func(ctx context.Context, id string, reason string, updatesLog string) error {
		gotReason = reason
		gotLog = updatesLog
		return nil
	}
	svc := newTestService(t, deps)

	err := svc.Cancel(context.Background(), CancelInput{
		Identifier:   ref,
		ContactEmail: " anna.kiss@EXAMPLE.com ",
		Reason:       "Plans changed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReason != "Plans changed" {
		t.Errorf("expected reason stored, got %q", gotReason)
	}
	if !strings.Contains(gotLog, `"action":"self-service:cancel"`) {
		t.Errorf("expected cancel audit entry, got %s", gotLog)
	}
	if !strings.Contains(gotLog, `"providedId":"2025/0003"`) {
		t.Errorf("expected provided identifier in audit entry, got %s", gotLog)
	}

	if len(deps.notifier.recorded) != 1 || deps.notifier.recorded[0].Tone != model.ToneWarning {
		t.Errorf("expected a warning notification, got %+v", deps.notifier.recorded)
	}
}

func TestCancel_EmailMismatch(t *testing.T) {
	existing := &model.RentRequest{
		ID:           "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ContactEmail: "anna.kiss@example.com",
	}

	deps := newDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.RentRequest, error) {
		return existing, nil
	}
	svc := newTestService(t, deps)

	err := svc.Cancel(context.Background(), CancelInput{
		Identifier:   existing.ID,
		ContactEmail: "someone.else@example.com",
	})
	if err == nil {
		t.Fatal("expected identity mismatch to be rejected")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeForbidden {
		t.Errorf("expected code %s, got %s", apperrors.CodeForbidden, appErr.Code)
	}
	if len(deps.notifier.recorded) != 0 {
		t.Error("expected no notification on rejected cancellation")
	}
}

func TestCancel_InvalidIdentifier(t *testing.T) {
	deps := newDeps()
	svc := newTestService(t, deps)

	tests := []struct {
		name  string
		input CancelInput
	}{
		{"malformed identifier", CancelInput{Identifier: "not-a-booking", ContactEmail: "a@b.com"}},
		{"missing email", CancelInput{Identifier: "2025/0003"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Cancel(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
				t.Errorf("expected code %s, got %s", apperrors.CodeInvalidInput, appErr.Code)
			}
		})
	}
}

func TestCancel_ReasonCapped(t *testing.T) {
	existing := &model.RentRequest{
		ID:           "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ContactEmail: "anna.kiss@example.com",
	}

	var gotReason string
	deps := newDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.RentRequest, error) {
		return existing, nil
	}
	deps.repo.cancelFunc = func(ctx context.Context, id string, reason string, updatesLog string) error {
		gotReason = reason
		return nil
	}
	svc := newTestService(t, deps)

	err := svc.Cancel(context.Background(), CancelInput{
		Identifier:   existing.ID,
		ContactEmail: existing.ContactEmail,
		Reason:       strings.Repeat("x", 1500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotReason) != 1000 {
		t.Errorf("expected reason capped at 1000, got %d", len(gotReason))
	}
}

func TestCancel_ReasonCapKeepsValidUTF8(t *testing.T) {
	existing := &model.RentRequest{
		ID:           "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ContactEmail: "anna.kiss@example.com",
	}

	var gotReason string
	deps := newDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.RentRequest, error) {
		return existing, nil
	}
	deps.repo.cancelFunc = func(ctx context.Context, id string, reason string, updatesLog string) error {
		gotReason = reason
		return nil
	}
	svc := newTestService(t, deps)

	// "ű" is two bytes and starts at offset 999, so a byte-offset cut
	// would leave its first byte dangling past the limit.
	err := svc.Cancel(context.Background(), CancelInput{
		Identifier:   existing.ID,
		ContactEmail: existing.ContactEmail,
		Reason:       strings.Repeat("a", 999) + "űű",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(gotReason) {
		t.Errorf("expected valid UTF-8 after capping, got %q tail", gotReason[990:])
	}
	if len(gotReason) != 999 {
		t.Errorf("expected the split rune dropped whole, got %d bytes", len(gotReason))
	}
}

func TestSummarizeChanges(t *testing.T) {
	before := snapshot{
		"carId":       normalizeString("corolla-2023"),
		"rentalEnd":   normalizeString("2025-07-08"),
		"contactName": normalizeString("Kiss Anna"),
		"quoteId":     nil,
	}
	after := snapshot{
		"carId":       normalizeString("  corolla-2023 "),
		"rentalEnd":   normalizeString("2025-07-10"),
		"contactName": normalizeString("Kiss Anna"),
		"quoteId":     normalizeString(""),
	}

	changes := summarizeChanges(before, after)

	if len(changes) != 1 {
		t.Fatalf("expected only rentalEnd to change, got %+v", changes)
	}
	change, ok := changes["rentalEnd"]
	if !ok {
		t.Fatal("expected rentalEnd in change map")
	}
	if change.Before == nil || *change.Before != "2025-07-08" {
		t.Errorf("unexpected before value: %v", change.Before)
	}
	if change.After == nil || *change.After != "2025-07-10" {
		t.Errorf("unexpected after value: %v", change.After)
	}
}

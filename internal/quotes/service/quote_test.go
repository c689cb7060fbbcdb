package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rentdesk/internal/events"
	"rentdesk/internal/humanid"
	notificationsservice "rentdesk/internal/notifications/service"
	"rentdesk/internal/quotes/validator"
	"rentdesk/pkg/config"
	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"
)

type mockContactQuoteRepository struct {
	insertFunc                   func(ctx context.Context, q *model.ContactQuote) error
	findByIDFunc                 func(ctx context.Context, id string) (*model.ContactQuote, error)
	findAllFunc                  func(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, error)
	countFunc                    func(ctx context.Context) (int64, error)
	updateStatusFunc             func(ctx context.Context, id string, status string, updatesLog string) error
	updateBookingRequestDataFunc func(ctx context.Context, id string, data string, status string, updatesLog string) error

	inserted *model.ContactQuote
}

func (m *mockContactQuoteRepository) Insert(ctx context.Context, q *model.ContactQuote) error {
	m.inserted = q
	if m.insertFunc != nil {
		return m.insertFunc(ctx, q)
	}
	return nil
}

func (m *mockContactQuoteRepository) FindByID(ctx context.Context, id string) (*model.ContactQuote, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not configured")
}

func (m *mockContactQuoteRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.ContactQuote{}, nil
}

func (m *mockContactQuoteRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockContactQuoteRepository) UpdateStatus(ctx context.Context, id string, status string, updatesLog string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, updatesLog)
	}
	return nil
}

func (m *mockContactQuoteRepository) UpdateBookingRequestData(ctx context.Context, id string, data string, status string, updatesLog string) error {
	if m.updateBookingRequestDataFunc != nil {
		return m.updateBookingRequestDataFunc(ctx, id, data, status, updatesLog)
	}
	return nil
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

func testConfig() *config.Config {
	return &config.Config{
		DefaultLocale:    "hu",
		SupportedLocales: []string{"hu", "en", "de"},
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func newTestService(repo *mockContactQuoteRepository, store humanid.CounterStore) (*contactQuoteService, *mockNotificationService) {
	cfg := testConfig()
	notifier := &mockNotificationService{}
	svc := &contactQuoteService{
		repo:      repo,
		validator: validator.NewContactQuoteValidator(cfg.Log),
		generator: humanid.NewGenerator(store, cfg.Log),
		notifier:  notifier,
		publisher: events.NewNoopPublisher(),
		cfg:       cfg,
	}
	return svc, notifier
}

func validQuote() *model.ContactQuote {
	return &model.ContactQuote{
		Locale:      "en-US",
		Name:        "  Kiss  Anna ",
		Email:       " Anna.Kiss@Example.COM ",
		RentalStart: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		RentalEnd:   time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC),
		Extras:      []string{"GPS", "gps", " gyerekules "},
	}
}

func TestSubmit_AssignsDefaultsAndReference(t *testing.T) {
	repo := &mockContactQuoteRepository{}
	svc, notifier := newTestService(repo, &fakeCounterStore{})

	q := validQuote()
	if err := svc.Submit(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.inserted == nil {
		t.Fatal("expected quote to be stored")
	}
	if q.ID == "" {
		t.Error("expected a generated record id")
	}
	if q.Status != model.QuoteStatusNew {
		t.Errorf("expected status %q, got %q", model.QuoteStatusNew, q.Status)
	}
	if q.Locale != "en" {
		t.Errorf("expected locale clamped to en, got %q", q.Locale)
	}
	if q.Email != "anna.kiss@example.com" {
		t.Errorf("expected normalized email, got %q", q.Email)
	}
	if q.HumanID == nil {
		t.Fatal("expected a booking reference")
	}
	wantPrefix := fmt.Sprintf("%d/", time.Now().UTC().Year())
	if !strings.HasPrefix(*q.HumanID, wantPrefix) {
		t.Errorf("expected reference with prefix %q, got %q", wantPrefix, *q.HumanID)
	}
	if len(q.Extras) != 2 {
		t.Errorf("expected extras deduplicated, got %v", q.Extras)
	}

	if len(notifier.recorded) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.recorded))
	}
	if notifier.recorded[0].Tone != model.ToneSuccess {
		t.Errorf("expected success tone, got %q", notifier.recorded[0].Tone)
	}
}

func TestSubmit_InfersLocaleFromPhoneWhenMissing(t *testing.T) {
	repo := &mockContactQuoteRepository{}
	svc, _ := newTestService(repo, &fakeCounterStore{})

	q := validQuote()
	q.Locale = ""
	q.Phone = "+49 151 23456789"
	if err := svc.Submit(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Locale != "de" {
		t.Errorf("expected locale inferred from the phone region, got %q", q.Locale)
	}

	q = validQuote()
	q.Locale = ""
	if err := svc.Submit(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Locale != "hu" {
		t.Errorf("expected default locale without a phone, got %q", q.Locale)
	}
}

func TestSubmit_ProceedsWithoutReferenceOnGeneratorFailure(t *testing.T) {
	repo := &mockContactQuoteRepository{}
	svc, _ := newTestService(repo, &fakeCounterStore{failErr: errors.New("counters unavailable")})

	q := validQuote()
	if err := svc.Submit(context.Background(), q); err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}

	if repo.inserted == nil {
		t.Fatal("expected quote to be stored")
	}
	if repo.inserted.HumanID != nil {
		t.Errorf("expected nil booking reference, got %q", *repo.inserted.HumanID)
	}
}

func TestSubmit_ValidationFailure(t *testing.T) {
	repo := &mockContactQuoteRepository{}
	svc, notifier := newTestService(repo, &fakeCounterStore{})

	q := validQuote()
	q.Email = ""

	err := svc.Submit(context.Background(), q)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected code %s, got %s", apperrors.CodeValidation, appErr.Code)
	}
	if repo.inserted != nil {
		t.Error("expected no store call on validation failure")
	}
	if len(notifier.recorded) != 0 {
		t.Error("expected no notification on validation failure")
	}
}

func TestMarkAccepted_AppendsAuditEntry(t *testing.T) {
	existing := &model.ContactQuote{
		ID:     "8f14e45f-ceea-467f-a0f9-b0e929a1c9d4",
		Status: model.QuoteStatusSent,
	}

	var gotStatus, gotLog string
	repo := &mockContactQuoteRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ContactQuote, error) {
			return existing, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string, updatesLog string) error {
			gotStatus = status
			gotLog = updatesLog
			return nil
		},
	}
	svc, _ := newTestService(repo, &fakeCounterStore{})

	offer := 1
	if err := svc.MarkAccepted(context.Background(), existing.ID, &offer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotStatus != model.QuoteStatusAccepted {
		t.Errorf("expected status %q, got %q", model.QuoteStatusAccepted, gotStatus)
	}
	if !strings.Contains(gotLog, `"action":"quote:accepted"`) {
		t.Errorf("expected audit entry in log, got %s", gotLog)
	}
	if !strings.Contains(gotLog, `"offerAccepted":1`) {
		t.Errorf("expected accepted offer index in log, got %s", gotLog)
	}
}

func TestPricingSnapshot_SelectsOfferByIndex(t *testing.T) {
	existing := &model.ContactQuote{
		ID: "8f14e45f-ceea-467f-a0f9-b0e929a1c9d4",
		BookingRequestData: `[` +
			`{"rentalFee":"100 EUR","deposit":"300 EUR"},` +
			`{"rentalFee":" 120 EUR ","deposit":""}` +
			`]`,
	}
	repo := &mockContactQuoteRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ContactQuote, error) {
			return existing, nil
		},
	}
	svc, _ := newTestService(repo, &fakeCounterStore{})

	offer := 1
	snapshot, err := svc.PricingSnapshot(context.Background(), existing.ID, &offer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot == nil {
		t.Fatal("expected a snapshot")
	}
	if snapshot.RentalFee == nil || *snapshot.RentalFee != "120 EUR" {
		t.Errorf("expected whitespace-trimmed second offer fee, got %v", snapshot.RentalFee)
	}
	if snapshot.Deposit != nil {
		t.Errorf("expected blank deposit dropped, got %v", snapshot.Deposit)
	}
}

func TestPricingSnapshot_AllBlankIsAbsent(t *testing.T) {
	existing := &model.ContactQuote{
		ID:                 "8f14e45f-ceea-467f-a0f9-b0e929a1c9d4",
		BookingRequestData: `{"rentalFee":"  ","deposit":""}`,
	}
	repo := &mockContactQuoteRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ContactQuote, error) {
			return existing, nil
		},
	}
	svc, _ := newTestService(repo, &fakeCounterStore{})

	snapshot, err := svc.PricingSnapshot(context.Background(), existing.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("expected no snapshot for all-blank offer, got %+v", snapshot)
	}
}

func TestPricingSnapshot_NoQuoteID(t *testing.T) {
	svc, _ := newTestService(&mockContactQuoteRepository{}, &fakeCounterStore{})

	snapshot, err := svc.PricingSnapshot(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("expected nil snapshot without a quote id, got %+v", snapshot)
	}
}

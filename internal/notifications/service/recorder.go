package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationserrors "rentdesk/internal/notifications/errors"
	"rentdesk/internal/notifications/repository"
	"rentdesk/pkg/config"
	"rentdesk/pkg/model"

	"github.com/google/uuid"
)

// NotificationPayload describes a business event to record. Only Type,
// Title and Description are required; everything else has a default.
type NotificationPayload struct {
	Type        string
	Title       string
	Description string
	Href        string
	Tone        string
	EventKey    string
	ReferenceID string
	Metadata    map[string]any
	NotifyAt    *time.Time
}

type NotificationService interface {
	// Record persists a best-effort side record of a business event.
	// It never fails from the caller's point of view: any store error
	// is logged and swallowed so the operation that triggered the
	// notification is unaffected.
	Record(ctx context.Context, payload NotificationPayload)

	List(ctx context.Context, limit int, offset int64) ([]*model.Notification, int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	cfg  *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	return &notificationService{repo: repo, cfg: cfg}
}

func (s *notificationService) Record(ctx context.Context, payload NotificationPayload) {
	notification := s.build(payload)

	if err := s.repo.Insert(ctx, notification); err != nil {
		if errors.Is(err, notificationserrors.ErrDuplicateEventKey) {
			s.cfg.Log.Debug("Notification already recorded",
				"event_key", notification.EventKey,
				"type", notification.Type,
			)
			return
		}
		s.cfg.Log.Error("Failed to store notification",
			"event_key", notification.EventKey,
			"type", notification.Type,
			"error", err,
		)
		return
	}

	s.cfg.Log.Info("Notification recorded",
		"event_key", notification.EventKey,
		"type", notification.Type,
		"tone", notification.Tone,
	)
}

func (s *notificationService) build(payload NotificationPayload) *model.Notification {
	href := payload.Href
	if href == "" {
		href = "/"
	}

	tone := payload.Tone
	switch tone {
	case model.ToneInfo, model.ToneSuccess, model.ToneWarning, model.ToneError:
	default:
		tone = model.ToneInfo
	}

	eventKey := payload.EventKey
	if eventKey == "" {
		reference := payload.ReferenceID
		if reference == "" {
			reference = uuid.New().String()
		}
		eventKey = fmt.Sprintf("db-event:%s:%s:%d:0", payload.Type, reference, time.Now().UnixMilli())
	}

	var notifyAt *time.Time
	if payload.NotifyAt != nil && !payload.NotifyAt.IsZero() {
		notifyAt = payload.NotifyAt
	}

	return &model.Notification{
		ID:          uuid.New().String(),
		EventKey:    eventKey,
		Type:        payload.Type,
		Title:       payload.Title,
		Description: payload.Description,
		Href:        href,
		Tone:        tone,
		Metadata:    payload.Metadata,
		NotifyAt:    notifyAt,
	}
}

func (s *notificationService) List(ctx context.Context, limit int, offset int64) ([]*model.Notification, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	notifications, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

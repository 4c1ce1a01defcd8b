package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/db"
	"github.com/beaconhq/beacon/internal/metrics"
)

// PreferenceStore is the durable store for notification preferences.
type PreferenceStore interface {
	Upsert(ctx context.Context, pref *db.Preference) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*db.Preference, error)
}

// NotificationStore is the durable store for notification records.
type NotificationStore interface {
	Create(ctx context.Context, notif *db.Notification) error
	FindAllByUserIDAndStatus(ctx context.Context, userID uuid.UUID, status string) ([]*db.Notification, error)
	FindAllActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*db.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

// Mailer attempts to deliver a rendered message to a contact address.
// Failure is an ordinary return value: the service turns it into a
// failed notification record, it never propagates to callers.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// Service owns the notification dispatch and retry logic: preference
// checks, delivery attempts, outcome recording and history.
type Service struct {
	preferences   PreferenceStore
	notifications NotificationStore
	mailer        Mailer
	logger        *zap.Logger
}

// NewService creates a notification service.
func NewService(preferences PreferenceStore, notifications NotificationStore, mailer Mailer, logger *zap.Logger) *Service {
	return &Service{
		preferences:   preferences,
		notifications: notifications,
		mailer:        mailer,
		logger:        logger,
	}
}

// UpsertPreference creates the user's preference or overwrites the
// existing one. Timestamps are maintained by the store: created_at is
// kept from the original row on update, updated_at is refreshed.
func (s *Service) UpsertPreference(ctx context.Context, userID uuid.UUID, channel string, enabled bool, contactInfo string) (*db.Preference, error) {
	pref := &db.Preference{
		ID:          uuid.New(),
		UserID:      userID,
		Channel:     channel,
		Enabled:     enabled,
		ContactInfo: contactInfo,
	}

	if err := s.preferences.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("save preference: %w", err)
	}

	metrics.RecordPreferenceUpdate(channel, enabled)

	return pref, nil
}

// PreferenceByUserID returns the user's preference or
// ErrPreferenceNotFound.
func (s *Service) PreferenceByUserID(ctx context.Context, userID uuid.UUID) (*db.Preference, error) {
	pref, err := s.preferences.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrPreferenceNotFound)
		}
		return nil, fmt.Errorf("load preference: %w", err)
	}
	return pref, nil
}

// SetPreferenceEnabled flips the enabled gate on an existing
// preference. Propagates ErrPreferenceNotFound for unknown users.
func (s *Service) SetPreferenceEnabled(ctx context.Context, userID uuid.UUID, enabled bool) (*db.Preference, error) {
	pref, err := s.PreferenceByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pref.Enabled = enabled
	if err := s.preferences.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("save preference: %w", err)
	}

	metrics.RecordPreferenceUpdate(pref.Channel, enabled)

	return pref, nil
}

// Send performs a single dispatch: preference check, delivery attempt,
// outcome recording. A missing or disabled preference aborts before
// any record is created. A delivery failure does not: the caller
// always gets a persisted record, possibly with a failed status.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, subject, body string) (*db.Notification, error) {
	pref, err := s.PreferenceByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !pref.Enabled {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotificationsDisabled)
	}

	notif := &db.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: subject,
		Body:    body,
		Channel: pref.Channel,
		Status:  db.StatusReceived,
		Deleted: false,
	}

	if err := s.mailer.Deliver(ctx, pref.ContactInfo, subject, body); err != nil {
		notif.Status = db.StatusFailed
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", userID.String()),
			zap.String("contact_info", pref.ContactInfo),
			zap.Error(err),
		)
	}

	if err := s.notifications.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	metrics.RecordNotificationDispatched(notif.Status, notif.Channel)

	return notif, nil
}

// SendEvent renders a social event and dispatches the result to the
// event's recipient. Every notification kind funnels through Send.
func (s *Service) SendEvent(ctx context.Context, event Event) (*db.Notification, error) {
	subject, body := event.Render()
	return s.Send(ctx, event.Recipient(), subject, body)
}

// RetryFailed re-attempts delivery of every failed, non-deleted
// notification for a user. The sweep is best effort: each record's
// outcome is persisted independently and one failure never aborts the
// rest. Received and deleted records are left untouched.
func (s *Service) RetryFailed(ctx context.Context, userID uuid.UUID) error {
	pref, err := s.PreferenceByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if !pref.Enabled {
		return fmt.Errorf("user %s: %w", userID, ErrNotificationsDisabled)
	}

	failed, err := s.notifications.FindAllByUserIDAndStatus(ctx, userID, db.StatusFailed)
	if err != nil {
		return fmt.Errorf("load failed notifications: %w", err)
	}

	for _, notif := range failed {
		if notif.Deleted {
			continue
		}

		status := db.StatusReceived
		if err := s.mailer.Deliver(ctx, pref.ContactInfo, notif.Subject, notif.Body); err != nil {
			status = db.StatusFailed
			s.logger.Warn("notification retry failed",
				zap.String("notification_id", notif.ID.String()),
				zap.String("contact_info", pref.ContactInfo),
				zap.Error(err),
			)
		}

		if err := s.notifications.UpdateStatus(ctx, notif.ID, status); err != nil {
			s.logger.Error("failed to persist retry outcome",
				zap.String("notification_id", notif.ID.String()),
				zap.String("status", status),
				zap.Error(err),
			)
			continue
		}

		metrics.RecordRetryAttempt(status)
	}

	return nil
}

// History returns the user's non-deleted notifications, in store order.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*db.Notification, error) {
	notifications, err := s.notifications.FindAllActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notification history: %w", err)
	}
	return notifications, nil
}

// ClearHistory soft-deletes every active notification for a user.
// Records are persisted one at a time; the sweep is not atomic.
func (s *Service) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	notifications, err := s.History(ctx, userID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, notif := range notifications {
		if err := s.notifications.MarkDeleted(ctx, notif.ID); err != nil {
			s.logger.Error("failed to mark notification deleted",
				zap.String("notification_id", notif.ID.String()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

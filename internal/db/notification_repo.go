package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new notification into the database
func (r *NotificationRepository) Create(ctx context.Context, notif *Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, subject, body, channel, status, deleted
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		notif.ID,
		notif.UserID,
		notif.Subject,
		notif.Body,
		notif.Channel,
		notif.Status,
		notif.Deleted,
	).Scan(&notif.CreatedAt, &notif.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	r.logger.Info("notification created",
		zap.String("notification_id", notif.ID.String()),
		zap.String("user_id", notif.UserID.String()),
		zap.String("status", notif.Status),
	)

	return nil
}

// FindAllByUserIDAndStatus retrieves every notification for a user with
// the given status, soft-deleted rows included.
func (r *NotificationRepository) FindAllByUserIDAndStatus(ctx context.Context, userID uuid.UUID, status string) ([]*Notification, error) {
	query := `
		SELECT
			id, user_id, subject, body, channel, status, deleted,
			created_at, updated_at
		FROM notifications
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at
	`

	return r.queryNotifications(ctx, query, userID, status)
}

// FindAllActiveByUserID retrieves every non-deleted notification for a user.
func (r *NotificationRepository) FindAllActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	query := `
		SELECT
			id, user_id, subject, body, channel, status, deleted,
			created_at, updated_at
		FROM notifications
		WHERE user_id = $1 AND deleted = FALSE
		ORDER BY created_at
	`

	return r.queryNotifications(ctx, query, userID)
}

// UpdateStatus updates the delivery status of a notification
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE notifications
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("failed to update notification status",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return fmt.Errorf("update notification status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}

	return nil
}

// MarkDeleted soft-deletes a notification. The row is never removed.
func (r *NotificationRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to mark notification deleted",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return fmt.Errorf("mark notification deleted: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *NotificationRepository) queryNotifications(ctx context.Context, query string, args ...any) ([]*Notification, error) {
	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		var notif Notification
		err := rows.Scan(
			&notif.ID,
			&notif.UserID,
			&notif.Subject,
			&notif.Body,
			&notif.Channel,
			&notif.Status,
			&notif.Deleted,
			&notif.CreatedAt,
			&notif.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &notif)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, nil
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a query matches no rows.
var ErrNotFound = errors.New("not found")

// PreferenceRepository handles database operations for notification preferences
type PreferenceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *DB, logger *zap.Logger) *PreferenceRepository {
	return &PreferenceRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the preference or, when a row for the user already
// exists, overwrites its channel, enabled flag and contact info. The
// UNIQUE constraint on user_id plus the conditional write serialize
// concurrent upserts for the same user at the database.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *Preference) error {
	query := `
		INSERT INTO notification_preferences (
			id, user_id, channel, enabled, contact_info
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (user_id) DO UPDATE SET
			channel      = EXCLUDED.channel,
			enabled      = EXCLUDED.enabled,
			contact_info = EXCLUDED.contact_info,
			updated_at   = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		pref.ID,
		pref.UserID,
		pref.Channel,
		pref.Enabled,
		pref.ContactInfo,
	).Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to upsert preference",
			zap.Error(err),
			zap.String("user_id", pref.UserID.String()),
		)
		return fmt.Errorf("upsert preference: %w", err)
	}

	r.logger.Info("preference saved",
		zap.String("user_id", pref.UserID.String()),
		zap.String("channel", pref.Channel),
		zap.Bool("enabled", pref.Enabled),
	)

	return nil
}

// FindByUserID retrieves the preference for a user.
// Returns ErrNotFound when the user has no preference record.
func (r *PreferenceRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*Preference, error) {
	query := `
		SELECT
			id, user_id, channel, enabled, contact_info,
			created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	var pref Preference
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&pref.ID,
		&pref.UserID,
		&pref.Channel,
		&pref.Enabled,
		&pref.ContactInfo,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("preference for user %s: %w", userID, ErrNotFound)
	}

	if err != nil {
		r.logger.Error("failed to get preference",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("query preference: %w", err)
	}

	return &pref, nil
}

package db

import (
	"time"

	"github.com/google/uuid"
)

// Preference is a user's notification preference. One row per user.
type Preference struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Channel     string    `json:"channel"`
	Enabled     bool      `json:"enabled"`
	ContactInfo string    `json:"contact_info"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is a dispatched notification as persisted after a
// delivery attempt. Subject and body never change once written; only
// status and deleted do.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status constants. A notification is only persisted after a delivery
// attempt, so there is no pending state.
const (
	StatusReceived = "received"
	StatusFailed   = "failed"
)

// Channel constants
const (
	ChannelEmail = "email"
)

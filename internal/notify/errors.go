package notify

import "errors"

var (
	// ErrPreferenceNotFound indicates the user has no preference record.
	ErrPreferenceNotFound = errors.New("notification preference not found")

	// ErrNotificationsDisabled indicates the user opted out of
	// notifications. Dispatch fails before any record is created.
	ErrNotificationsDisabled = errors.New("user does not allow notifications")
)

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/db"
	"github.com/beaconhq/beacon/internal/notify"
)

// NotificationService defines the notification operations the API
// exposes over HTTP
type NotificationService interface {
	UpsertPreference(ctx context.Context, userID uuid.UUID, channel string, enabled bool, contactInfo string) (*db.Preference, error)
	PreferenceByUserID(ctx context.Context, userID uuid.UUID) (*db.Preference, error)
	SetPreferenceEnabled(ctx context.Context, userID uuid.UUID, enabled bool) (*db.Preference, error)
	Send(ctx context.Context, userID uuid.UUID, subject, body string) (*db.Notification, error)
	SendEvent(ctx context.Context, event notify.Event) (*db.Notification, error)
	RetryFailed(ctx context.Context, userID uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID) ([]*db.Notification, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) error
}

// PreferenceRequest represents the incoming preference upsert body
type PreferenceRequest struct {
	UserID      string `json:"userId"`
	Channel     string `json:"channel"`
	Enabled     *bool  `json:"enabled"`
	ContactInfo string `json:"contactInfo"`
}

// PreferenceResponse is returned for preference reads and writes
type PreferenceResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Channel     string `json:"channel"`
	Enabled     bool   `json:"enabled"`
	ContactInfo string `json:"contactInfo"`
}

// SendRequest represents a generic notification dispatch body
type SendRequest struct {
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LikeRequest represents a post-liked event
type LikeRequest struct {
	UserID        string `json:"userId"`
	LikerUsername string `json:"likerUsername"`
	PostTitle     string `json:"postTitle"`
}

// CommentRequest represents a post-commented event
type CommentRequest struct {
	UserID            string `json:"userId"`
	CommenterUsername string `json:"commenterUsername"`
	PostTitle         string `json:"postTitle"`
	CommentContent    string `json:"commentContent"`
}

// FriendRequestRequest represents a friend-request event
type FriendRequestRequest struct {
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	SenderUsername string `json:"senderUsername"`
}

// RatingRequest represents a post-rated event
type RatingRequest struct {
	UserID        string `json:"userId"`
	RaterUsername string `json:"raterUsername"`
	PostTitle     string `json:"postTitle"`
	RatingValue   int    `json:"ratingValue"`
}

// NotificationResponse is the external shape of a notification record.
// Body and internal ids stay private to the service.
type NotificationResponse struct {
	Subject string `json:"subject"`
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger  *zap.Logger
	service NotificationService
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, service NotificationService) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// UpsertPreference handles POST /v1/notifications/preferences
func (h *Handler) UpsertPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.Enabled == nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "userId and enabled are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = db.ChannelEmail
	}
	if channel != db.ChannelEmail {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid channel", "channel must be email")
		return
	}

	pref, err := h.service.UpsertPreference(ctx, userID, channel, *req.Enabled, req.ContactInfo)
	if err != nil {
		h.logger.Error("failed to upsert preference",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save preference", "")
		return
	}

	h.logger.Info("preference saved",
		zap.String("user_id", req.UserID),
		zap.String("channel", pref.Channel),
		zap.Bool("enabled", pref.Enabled),
	)

	h.writeJSON(w, http.StatusCreated, toPreferenceResponse(pref))
}

// GetPreference handles GET /v1/notifications/preferences?userId=xxx
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}

	pref, err := h.service.PreferenceByUserID(ctx, userID)
	if err != nil {
		h.serviceError(w, err, "failed to get preference", userID)
		return
	}

	h.writeJSON(w, http.StatusOK, toPreferenceResponse(pref))
}

// TogglePreference handles PUT /v1/notifications/preferences?userId=xxx&enabled=true
func (h *Handler) TogglePreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}

	enabledStr := r.URL.Query().Get("enabled")
	if enabledStr != "true" && enabledStr != "false" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid enabled flag", "enabled must be true or false")
		return
	}
	enabled := enabledStr == "true"

	pref, err := h.service.SetPreferenceEnabled(ctx, userID, enabled)
	if err != nil {
		h.serviceError(w, err, "failed to toggle preference", userID)
		return
	}

	h.logger.Info("preference toggled",
		zap.String("user_id", userID.String()),
		zap.Bool("enabled", enabled),
	)

	h.writeJSON(w, http.StatusOK, toPreferenceResponse(pref))
}

// SendNotification handles POST /v1/notifications
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.Subject == "" || req.Body == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "userId, subject, and body are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return
	}

	notif, err := h.service.Send(ctx, userID, req.Subject, req.Body)
	if err != nil {
		h.serviceError(w, err, "failed to send notification", userID)
		return
	}

	h.logger.Info("notification dispatched",
		zap.String("user_id", req.UserID),
		zap.String("status", notif.Status),
	)

	h.writeJSON(w, http.StatusCreated, toNotificationResponse(notif))
}

// NotifyLike handles POST /v1/notifications/like
func (h *Handler) NotifyLike(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.LikerUsername == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "userId and likerUsername are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return
	}

	h.dispatchEvent(w, r, notify.LikeEvent{
		UserID:        userID,
		LikerUsername: req.LikerUsername,
		PostTitle:     req.PostTitle,
	})
}

// NotifyComment handles POST /v1/notifications/comment
func (h *Handler) NotifyComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.CommenterUsername == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "userId and commenterUsername are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return
	}

	h.dispatchEvent(w, r, notify.CommentEvent{
		UserID:            userID,
		CommenterUsername: req.CommenterUsername,
		PostTitle:         req.PostTitle,
		CommentContent:    req.CommentContent,
	})
}

// NotifyFriendRequest handles POST /v1/notifications/friend-request
func (h *Handler) NotifyFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.SenderID == "" || req.ReceiverID == "" || req.SenderUsername == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "senderId, receiverId, and senderUsername are required")
		return
	}

	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid senderId", "senderId must be a valid UUID")
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid receiverId", "receiverId must be a valid UUID")
		return
	}

	h.dispatchEvent(w, r, notify.FriendRequestEvent{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		SenderUsername: req.SenderUsername,
	})
}

// NotifyRating handles POST /v1/notifications/rating
func (h *Handler) NotifyRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.RaterUsername == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "userId and raterUsername are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return
	}

	h.dispatchEvent(w, r, notify.RatingEvent{
		UserID:        userID,
		RaterUsername: req.RaterUsername,
		PostTitle:     req.PostTitle,
		RatingValue:   req.RatingValue,
	})
}

// ListNotifications handles GET /v1/notifications?userId=xxx
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}

	notifications, err := h.service.History(ctx, userID)
	if err != nil {
		h.serviceError(w, err, "failed to list notifications", userID)
		return
	}

	h.logger.Info("notifications listed",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(notifications)),
	)

	resp := make([]NotificationResponse, 0, len(notifications))
	for _, notif := range notifications {
		resp = append(resp, toNotificationResponse(notif))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ClearNotifications handles DELETE /v1/notifications?userId=xxx
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearHistory(ctx, userID); err != nil {
		h.serviceError(w, err, "failed to clear notifications", userID)
		return
	}

	h.logger.Info("notifications cleared",
		zap.String("user_id", userID.String()),
	)

	w.WriteHeader(http.StatusOK)
}

// RetryNotifications handles PUT /v1/notifications?userId=xxx
func (h *Handler) RetryNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}

	if err := h.service.RetryFailed(ctx, userID); err != nil {
		h.serviceError(w, err, "failed to retry notifications", userID)
		return
	}

	h.logger.Info("failed notifications retried",
		zap.String("user_id", userID.String()),
	)

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) dispatchEvent(w http.ResponseWriter, r *http.Request, event notify.Event) {
	notif, err := h.service.SendEvent(r.Context(), event)
	if err != nil {
		h.serviceError(w, err, "failed to send event notification", event.Recipient())
		return
	}

	h.logger.Info("event notification dispatched",
		zap.String("user_id", event.Recipient().String()),
		zap.String("subject", notif.Subject),
		zap.String("status", notif.Status),
	)

	h.writeJSON(w, http.StatusCreated, toNotificationResponse(notif))
}

func (h *Handler) userIDFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr := r.URL.Query().Get("userId")
	if userIDStr == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing userId", "userId query parameter is required")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid userId", "userId must be a valid UUID")
		return uuid.Nil, false
	}

	return userID, true
}

// serviceError maps service errors to HTTP statuses: unknown users are
// 404, disabled notifications are 400, everything else is 500.
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string, userID uuid.UUID) {
	switch {
	case errors.Is(err, notify.ErrPreferenceNotFound):
		h.writeError(w, http.StatusNotFound, "preference_not_found", "Notification preference not found", "no preference exists for this user")
	case errors.Is(err, notify.ErrNotificationsDisabled):
		h.writeError(w, http.StatusBadRequest, "notifications_disabled", "Notifications are disabled", "the user has disabled notifications")
	default:
		h.logger.Error(msg,
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error", "")
	}
}

func toPreferenceResponse(pref *db.Preference) PreferenceResponse {
	return PreferenceResponse{
		ID:          pref.ID.String(),
		UserID:      pref.UserID.String(),
		Channel:     pref.Channel,
		Enabled:     pref.Enabled,
		ContactInfo: pref.ContactInfo,
	}
}

func toNotificationResponse(notif *db.Notification) NotificationResponse {
	return NotificationResponse{
		Subject: notif.Subject,
		Status:  notif.Status,
		Channel: notif.Channel,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

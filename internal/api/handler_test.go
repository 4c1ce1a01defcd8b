package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/db"
	"github.com/beaconhq/beacon/internal/notify"
)

// Common test errors
var ErrServiceDown = errors.New("service down")

// MockService is a fake notification service for testing
type MockService struct {
	prefs         map[uuid.UUID]*db.Preference
	notifications map[uuid.UUID][]*db.Notification

	upsertCalled bool
	sendCalled   bool
	retryCalled  bool
	clearCalled  bool

	shouldFail  bool
	failDeliver bool
}

// NewMockService creates a new mock service
func NewMockService() *MockService {
	return &MockService{
		prefs:         make(map[uuid.UUID]*db.Preference),
		notifications: make(map[uuid.UUID][]*db.Notification),
	}
}

func (m *MockService) UpsertPreference(ctx context.Context, userID uuid.UUID, channel string, enabled bool, contactInfo string) (*db.Preference, error) {
	m.upsertCalled = true

	if m.shouldFail {
		return nil, ErrServiceDown
	}

	pref := &db.Preference{
		ID:          uuid.New(),
		UserID:      userID,
		Channel:     channel,
		Enabled:     enabled,
		ContactInfo: contactInfo,
	}
	if existing, ok := m.prefs[userID]; ok {
		pref.ID = existing.ID
	}
	m.prefs[userID] = pref
	return pref, nil
}

func (m *MockService) PreferenceByUserID(ctx context.Context, userID uuid.UUID) (*db.Preference, error) {
	if m.shouldFail {
		return nil, ErrServiceDown
	}

	pref, ok := m.prefs[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, notify.ErrPreferenceNotFound)
	}
	return pref, nil
}

func (m *MockService) SetPreferenceEnabled(ctx context.Context, userID uuid.UUID, enabled bool) (*db.Preference, error) {
	pref, err := m.PreferenceByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pref.Enabled = enabled
	return pref, nil
}

func (m *MockService) Send(ctx context.Context, userID uuid.UUID, subject, body string) (*db.Notification, error) {
	m.sendCalled = true

	if m.shouldFail {
		return nil, ErrServiceDown
	}

	pref, err := m.PreferenceByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !pref.Enabled {
		return nil, fmt.Errorf("user %s: %w", userID, notify.ErrNotificationsDisabled)
	}

	status := db.StatusReceived
	if m.failDeliver {
		status = db.StatusFailed
	}

	notif := &db.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: subject,
		Body:    body,
		Channel: pref.Channel,
		Status:  status,
	}
	m.notifications[userID] = append(m.notifications[userID], notif)
	return notif, nil
}

func (m *MockService) SendEvent(ctx context.Context, event notify.Event) (*db.Notification, error) {
	subject, body := event.Render()
	return m.Send(ctx, event.Recipient(), subject, body)
}

func (m *MockService) RetryFailed(ctx context.Context, userID uuid.UUID) error {
	m.retryCalled = true

	if m.shouldFail {
		return ErrServiceDown
	}

	pref, err := m.PreferenceByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !pref.Enabled {
		return fmt.Errorf("user %s: %w", userID, notify.ErrNotificationsDisabled)
	}
	return nil
}

func (m *MockService) History(ctx context.Context, userID uuid.UUID) ([]*db.Notification, error) {
	if m.shouldFail {
		return nil, ErrServiceDown
	}

	var out []*db.Notification
	for _, notif := range m.notifications[userID] {
		if !notif.Deleted {
			out = append(out, notif)
		}
	}
	return out, nil
}

func (m *MockService) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	m.clearCalled = true

	if m.shouldFail {
		return ErrServiceDown
	}

	for _, notif := range m.notifications[userID] {
		notif.Deleted = true
	}
	return nil
}

func newTestHandler() (*Handler, *MockService) {
	mock := NewMockService()
	return NewHandler(zap.NewNop(), mock), mock
}

func seedPreference(m *MockService, enabled bool) uuid.UUID {
	userID := uuid.New()
	m.prefs[userID] = &db.Preference{
		ID:          uuid.New(),
		UserID:      userID,
		Channel:     db.ChannelEmail,
		Enabled:     enabled,
		ContactInfo: "u@x.com",
	}
	return userID
}

func TestUpsertPreference(t *testing.T) {
	handler, mock := newTestHandler()
	userID := uuid.New()

	body := fmt.Sprintf(`{"userId":%q,"channel":"email","enabled":true,"contactInfo":"u@x.com"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/preferences", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.UpsertPreference(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
	if !mock.upsertCalled {
		t.Error("expected service upsert to be called")
	}

	var resp PreferenceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != userID.String() || !resp.Enabled || resp.ContactInfo != "u@x.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestUpsertPreference_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{invalid`},
		{"missing userId", `{"enabled":true,"contactInfo":"u@x.com"}`},
		{"missing enabled", fmt.Sprintf(`{"userId":%q,"contactInfo":"u@x.com"}`, uuid.New())},
		{"bad uuid", `{"userId":"not-a-uuid","enabled":true}`},
		{"unsupported channel", fmt.Sprintf(`{"userId":%q,"channel":"sms","enabled":true}`, uuid.New())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := newTestHandler()

			req := httptest.NewRequest(http.MethodPost, "/v1/notifications/preferences", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.UpsertPreference(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			if mock.upsertCalled {
				t.Error("service should not be called on invalid input")
			}
		})
	}
}

func TestGetPreference(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/preferences?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.GetPreference(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp PreferenceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != userID.String() {
		t.Errorf("expected userId %s, got %s", userID, resp.UserID)
	}
}

func TestGetPreference_NotFound(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/preferences?userId="+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	handler.GetPreference(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Type != "preference_not_found" {
		t.Errorf("expected error type preference_not_found, got %s", resp.Type)
	}
}

func TestGetPreference_MissingUserID(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/preferences", nil)
	w := httptest.NewRecorder()

	handler.GetPreference(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestTogglePreference(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	req := httptest.NewRequest(http.MethodPut, "/v1/notifications/preferences?userId="+userID.String()+"&enabled=false", nil)
	w := httptest.NewRecorder()

	handler.TogglePreference(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if mock.prefs[userID].Enabled {
		t.Error("expected preference to be disabled")
	}
}

func TestTogglePreference_InvalidFlag(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	req := httptest.NewRequest(http.MethodPut, "/v1/notifications/preferences?userId="+userID.String()+"&enabled=yes", nil)
	w := httptest.NewRecorder()

	handler.TogglePreference(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestSendNotification(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"userId":%q,"subject":"S","body":"B"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.SendNotification(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	var resp NotificationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Subject != "S" || resp.Status != db.StatusReceived || resp.Channel != db.ChannelEmail {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSendNotification_FailedDeliveryStillCreated(t *testing.T) {
	handler, mock := newTestHandler()
	mock.failDeliver = true
	userID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"userId":%q,"subject":"S","body":"B"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.SendNotification(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201 even when delivery fails, got %d", w.Code)
	}

	var resp NotificationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != db.StatusFailed {
		t.Errorf("expected status failed, got %s", resp.Status)
	}
}

func TestSendNotification_Disabled(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, false)

	body := fmt.Sprintf(`{"userId":%q,"subject":"S","body":"B"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.SendNotification(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Type != "notifications_disabled" {
		t.Errorf("expected error type notifications_disabled, got %s", resp.Type)
	}
}

func TestSendNotification_NoPreference(t *testing.T) {
	handler, _ := newTestHandler()

	body := fmt.Sprintf(`{"userId":%q,"subject":"S","body":"B"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.SendNotification(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestSendNotification_ServiceError(t *testing.T) {
	handler, mock := newTestHandler()
	mock.shouldFail = true

	body := fmt.Sprintf(`{"userId":%q,"subject":"S","body":"B"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.SendNotification(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestNotifyLike(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"userId":%q,"likerUsername":"bob","postTitle":"Hello"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/like", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.NotifyLike(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	var resp NotificationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Subject != "New Like" {
		t.Errorf("expected subject 'New Like', got %q", resp.Subject)
	}

	stored := mock.notifications[userID]
	if len(stored) != 1 || stored[0].Body != "User bob liked your post: Hello" {
		t.Errorf("unexpected stored notification: %+v", stored)
	}
}

func TestNotifyComment(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"userId":%q,"commenterUsername":"carol","postTitle":"Trip","commentContent":"nice"}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/comment", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.NotifyComment(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	var resp NotificationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Subject != "New Comment" {
		t.Errorf("expected subject 'New Comment', got %q", resp.Subject)
	}
}

func TestNotifyFriendRequest(t *testing.T) {
	handler, mock := newTestHandler()
	receiverID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"senderId":%q,"receiverId":%q,"senderUsername":"alice"}`, uuid.New(), receiverID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/friend-request", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.NotifyFriendRequest(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	stored := mock.notifications[receiverID]
	if len(stored) != 1 {
		t.Fatalf("expected notification for receiver, got %d", len(stored))
	}
	if stored[0].Body != "User alice sent you a friend request." {
		t.Errorf("unexpected body %q", stored[0].Body)
	}
}

func TestNotifyFriendRequest_MissingFields(t *testing.T) {
	handler, mock := newTestHandler()

	body := fmt.Sprintf(`{"senderId":%q,"senderUsername":"alice"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/friend-request", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.NotifyFriendRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if mock.sendCalled {
		t.Error("service should not be called on invalid input")
	}
}

func TestNotifyRating(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	body := fmt.Sprintf(`{"userId":%q,"raterUsername":"erin","postTitle":"Sunset","ratingValue":5}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/rating", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.NotifyRating(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	stored := mock.notifications[userID]
	if len(stored) != 1 || stored[0].Body != "User erin rated your post 'Sunset' with a rating of 5." {
		t.Errorf("unexpected stored notification: %+v", stored)
	}
}

func TestListNotifications(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	mock.notifications[userID] = []*db.Notification{
		{ID: uuid.New(), UserID: userID, Subject: "A", Channel: db.ChannelEmail, Status: db.StatusReceived},
		{ID: uuid.New(), UserID: userID, Subject: "B", Channel: db.ChannelEmail, Status: db.StatusFailed},
		{ID: uuid.New(), UserID: userID, Subject: "C", Channel: db.ChannelEmail, Status: db.StatusReceived, Deleted: true},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.ListNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp []NotificationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 active notifications, got %d", len(resp))
	}
	if resp[0].Subject != "A" || resp[1].Subject != "B" {
		t.Errorf("unexpected listing: %+v", resp)
	}
}

func TestListNotifications_Empty(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.ListNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestClearNotifications(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	mock.notifications[userID] = []*db.Notification{
		{ID: uuid.New(), UserID: userID, Subject: "A", Status: db.StatusReceived},
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/notifications?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.ClearNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !mock.clearCalled {
		t.Error("expected clear to be called")
	}
	if !mock.notifications[userID][0].Deleted {
		t.Error("expected notification to be soft-deleted")
	}
}

func TestRetryNotifications(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, true)

	req := httptest.NewRequest(http.MethodPut, "/v1/notifications?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.RetryNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !mock.retryCalled {
		t.Error("expected retry to be called")
	}
}

func TestRetryNotifications_Disabled(t *testing.T) {
	handler, mock := newTestHandler()
	userID := seedPreference(mock, false)

	req := httptest.NewRequest(http.MethodPut, "/v1/notifications?userId="+userID.String(), nil)
	w := httptest.NewRecorder()

	handler.RetryNotifications(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

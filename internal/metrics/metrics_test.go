package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/test", 200, 100*time.Millisecond)
	RecordRequest("POST", "/test", 201, 50*time.Millisecond)
	RecordRequest("GET", "/test", 404, 10*time.Millisecond)
}

func TestRecordNotificationDispatched(t *testing.T) {
	RecordNotificationDispatched("received", "email")
	RecordNotificationDispatched("failed", "email")
}

func TestRecordRetryAttempt(t *testing.T) {
	RecordRetryAttempt("received")
	RecordRetryAttempt("failed")
}

func TestRecordPreferenceUpdate(t *testing.T) {
	RecordPreferenceUpdate("email", true)
	RecordPreferenceUpdate("email", false)
}

func TestRecordRateLimitRejection(t *testing.T) {
	RecordRateLimitRejection("user-1")
	RecordRateLimitRejection("user-2")
}

func TestSetDBConnections(t *testing.T) {
	SetDBConnections(10)
	SetDBConnections(0)
}

func TestMiddleware(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

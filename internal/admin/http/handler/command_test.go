package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sentrymon/monitor-core/internal/admin/http/handler"
	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/pubsub"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTransport struct {
	publishErr error
	published  []domain.Event
}

func (t *fakeTransport) Publish(_ context.Context, _ string, ev domain.Event) error {
	if t.publishErr != nil {
		return t.publishErr
	}
	t.published = append(t.published, ev)
	return nil
}
func (t *fakeTransport) Subscribe(context.Context, string, pubsub.Handler) error {
	return nil
}
func (t *fakeTransport) Healthy() bool { return true }
func (t *fakeTransport) Close() error  { return nil }

func newTestEngine(transport *fakeTransport) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewCommandHandler(transport, logger)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenantID", "t1")
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/admin/commands", h.Post)
	return r
}

func TestPostCommand_InvalidJSON_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands", strings.NewReader(`{bad json}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(&fakeTransport{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostCommand_UnknownCommand_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands",
		strings.NewReader(`{"command":"DO_A_BARREL_ROLL"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(&fakeTransport{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostCommand_CheckNowWithoutMonitorID_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands",
		strings.NewReader(`{"command":"CHECK_NOW"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(&fakeTransport{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostCommand_Shutdown_DoesNotRequireMonitorID(t *testing.T) {
	transport := &fakeTransport{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands",
		strings.NewReader(`{"command":"SHUTDOWN"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(transport).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(transport.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(transport.published))
	}
	if transport.published[0].TenantID != "t1" {
		t.Errorf("expected tenant from context, got %q", transport.published[0].TenantID)
	}
}

func TestPostCommand_CheckNow_PublishesWithMonitorID(t *testing.T) {
	transport := &fakeTransport{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands",
		strings.NewReader(`{"command":"CHECK_NOW","monitorId":"mon-1"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(transport).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	payload, ok := transport.published[0].Payload.(domain.CommandPayload)
	if !ok || payload.MonitorID != "mon-1" {
		t.Fatalf("expected command payload with monitorId mon-1, got %#v", transport.published[0].Payload)
	}
}

func TestPostCommand_PublishFailure_Returns500(t *testing.T) {
	transport := &fakeTransport{publishErr: errors.New("broker unreachable")}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commands",
		strings.NewReader(`{"command":"SHUTDOWN"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(transport).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

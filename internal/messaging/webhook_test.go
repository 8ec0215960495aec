package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lechuga_bot_backend/platform/logger"
)

type recordingUpdateHandler struct {
	updates []*Update
	err     error
}

func (h *recordingUpdateHandler) HandleUpdate(ctx context.Context, update *Update) error {
	h.updates = append(h.updates, update)
	return h.err
}

func postUpdate(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", h.HandleUpdate)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	handler := &recordingUpdateHandler{}
	h := NewWebhookHandler(handler, logger.New("test"))

	rec := postUpdate(t, h, `{"update_id":7,"message":{"message_id":1,"from":{"id":42,"first_name":"Ana"},"chat":{"id":100},"text":"hola"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(handler.updates) != 1 {
		t.Fatalf("expected one dispatched update, got %d", len(handler.updates))
	}
	u := handler.updates[0]
	if u.UpdateID != 7 || u.Message == nil || u.Message.From.ID != 42 || u.Message.Text != "hola" {
		t.Fatalf("unexpected update: %+v", u)
	}
}

func TestWebhookAcknowledgesMalformedPayload(t *testing.T) {
	handler := &recordingUpdateHandler{}
	h := NewWebhookHandler(handler, logger.New("test"))

	rec := postUpdate(t, h, `{bad json`)

	if rec.Code != http.StatusOK {
		t.Fatalf("malformed payload must still be acknowledged, got %d", rec.Code)
	}
	if len(handler.updates) != 0 {
		t.Fatal("malformed payload must not be dispatched")
	}
}

func TestWebhookAcknowledgesHandlerFailure(t *testing.T) {
	handler := &recordingUpdateHandler{err: errors.New("downstream failure")}
	h := NewWebhookHandler(handler, logger.New("test"))

	rec := postUpdate(t, h, `{"update_id":1}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("handler failure must still be acknowledged, got %d", rec.Code)
	}
}

func TestLargestPhotoPicksLastVariant(t *testing.T) {
	msg := &Message{Photo: []PhotoSize{{FileID: "small"}, {FileID: "medium"}, {FileID: "big"}}}
	if got := msg.LargestPhoto(); got != "big" {
		t.Fatalf("LargestPhoto = %q", got)
	}
	if got := (&Message{}).LargestPhoto(); got != "" {
		t.Fatalf("expected empty file ID without photos, got %q", got)
	}
}

func TestDisplayNamePrefersUsername(t *testing.T) {
	u := &User{Username: "ana_lechuga", FirstName: "Ana"}
	if got := u.DisplayName(); got != "ana_lechuga" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := (&User{FirstName: "Ana"}).DisplayName(); got != "Ana" {
		t.Fatalf("DisplayName = %q", got)
	}
	var nilUser *User
	if got := nilUser.DisplayName(); got != "unknown" {
		t.Fatalf("DisplayName = %q", got)
	}
}

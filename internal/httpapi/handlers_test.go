package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/stream"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 25, 1, 200); err != nil || got != 25 {
		t.Fatalf("empty input should default: got %d, err %v", got, err)
	}
	if got, err := parsePositiveInt(" 50 ", 25, 1, 200); err != nil || got != 50 {
		t.Fatalf("valid input: got %d, err %v", got, err)
	}
	if _, err := parsePositiveInt("500", 25, 1, 200); err == nil {
		t.Fatalf("out-of-range input should error")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("non-numeric input should error")
	}
}

func TestParseOptionalID(t *testing.T) {
	t.Parallel()

	if id, err := parseOptionalID(""); err != nil || id != nil {
		t.Fatalf("empty input should be nil: %v, %v", id, err)
	}
	if id, err := parseOptionalID("42"); err != nil || id == nil || *id != 42 {
		t.Fatalf("valid id: %v, %v", id, err)
	}
	if _, err := parseOptionalID("0"); err == nil {
		t.Fatalf("zero should error")
	}
	if _, err := parseOptionalID("-3"); err == nil {
		t.Fatalf("negative should error")
	}
}

func TestHandlePublishMention(t *testing.T) {
	t.Parallel()

	broker := stream.NewMemoryBroker(100)
	server := &Server{broker: broker, logger: zerolog.Nop()}

	if err := broker.EnsureGroup(context.Background(), stream.TopicRaw, "probe"); err != nil {
		t.Fatalf("EnsureGroup returned error: %v", err)
	}

	body := `{
		"source":"api",
		"title":"Acme launches new developer platform",
		"url":"https://example.com/acme-launch",
		"brand_name":"Acme",
		"published_at":"2026-03-01T12:00:00Z"
	}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := server.handlePublishMention(c); err != nil {
		t.Fatalf("handlePublishMention returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			MessageID string `json:"message_id"`
			Topic     string `json:"topic"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Data.Topic != stream.TopicRaw || resp.Data.MessageID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	messages, err := broker.Consume(context.Background(), stream.TopicRaw, "probe", "p1", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(messages))
	}

	event, err := stream.DecodeEvent(messages[0].Values)
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	if event.BrandName != "Acme" || event.IngestedAt == nil {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestHandlePublishMentionRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	server := &Server{broker: stream.NewMemoryBroker(10), logger: zerolog.Nop()}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentions", strings.NewReader(`{"source":"api"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := server.handlePublishMention(c); err != nil {
		t.Fatalf("handlePublishMention returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"intake/pkg/domain"
)

// Messenger delivers outbound messages to respondents through the chat
// transport.
type Messenger interface {
	SendText(ctx context.Context, rid domain.RespondentID, text string) error

	// PromptCapture sends the capture link with an open-page affordance.
	PromptCapture(ctx context.Context, rid domain.RespondentID, text, captureURL string) error
}

// LogMessenger writes outbound messages to the structured log; the default
// in development.
type LogMessenger struct {
	log *slog.Logger
}

func NewLogMessenger(log *slog.Logger) *LogMessenger {
	return &LogMessenger{log: log}
}

func (m *LogMessenger) SendText(ctx context.Context, rid domain.RespondentID, text string) error {
	m.log.Info("outbound message",
		slog.String("respondent_id", string(rid)),
		slog.String("text", text))
	return nil
}

func (m *LogMessenger) PromptCapture(ctx context.Context, rid domain.RespondentID, text, captureURL string) error {
	m.log.Info("outbound capture prompt",
		slog.String("respondent_id", string(rid)),
		slog.String("text", text),
		slog.String("capture_url", captureURL))
	return nil
}

// WebhookMessenger POSTs outbound messages to the chat transport's relay
// endpoint as JSON.
type WebhookMessenger struct {
	url    string
	client *http.Client
}

func NewWebhookMessenger(url string) *WebhookMessenger {
	return &WebhookMessenger{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type outboundMessage struct {
	RespondentID string `json:"respondent_id"`
	Text         string `json:"text"`
	CaptureURL   string `json:"capture_url,omitempty"`
}

func (m *WebhookMessenger) SendText(ctx context.Context, rid domain.RespondentID, text string) error {
	return m.post(ctx, outboundMessage{RespondentID: string(rid), Text: text})
}

func (m *WebhookMessenger) PromptCapture(ctx context.Context, rid domain.RespondentID, text, captureURL string) error {
	return m.post(ctx, outboundMessage{RespondentID: string(rid), Text: text, CaptureURL: captureURL})
}

func (m *WebhookMessenger) post(ctx context.Context, msg outboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build outbound request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver outbound message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver outbound message: status %d", resp.StatusCode)
	}
	return nil
}

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lmittmann/tint"
)

// Sink receives user-facing notifications such as Bull/Moon alerts.
type Sink interface {
	Notify(ctx context.Context, text string) error
	Name() string
}

// DefaultMaxRetries is the retry budget of Notify.
const DefaultMaxRetries = 3

// TelegramNotifier talks to one chat through the Telegram Bot API.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	Client     *http.Client
	APIBase    string
	MaxRetries int
	logger     *slog.Logger
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// APIError is a rejection reported by the Bot API.
type APIError struct {
	Status      int
	Description string
	// RetryAfter is set when the API asks the caller to slow down.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.Status, e.Description)
}

// NewTelegramNotifier creates a notifier, routed through proxyURL if set.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *slog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    "https://api.telegram.org",
		MaxRetries: DefaultMaxRetries,
		Client:     &http.Client{Timeout: 30 * time.Second, Transport: transport},
		logger:     logger.With(slog.String("component", "telegram")),
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify implements Sink with retries.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	return t.SendWithRetry(ctx, text, t.MaxRetries)
}

// Send posts one HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode == http.StatusOK && decodeErr == nil && out.OK {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode, Description: out.Description}
	if apiErr.Description == "" {
		apiErr.Description = http.StatusText(resp.StatusCode)
	}
	if out.Parameters.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(out.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}

// SendWithRetry retries Send with exponential backoff, or with the delay the
// API asked for when rate limited.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * time.Second
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			backoff = apiErr.RetryAfter
		}
		t.logger.Warn("telegram send failed",
			slog.Int("attempt", i+1), slog.Int("max", maxRetries+1),
			slog.Duration("retry_in", backoff), tint.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// LogSink writes notifications to the log. Used when no chat is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Name() string { return "log" }

func (l LogSink) Notify(ctx context.Context, text string) error {
	l.Logger.InfoContext(ctx, "notification", slog.String("text", text))
	return nil
}

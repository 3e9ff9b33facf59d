package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	pollTimeout = 30 * time.Second
	pollBackoff = 5 * time.Second
)

// CommandHandler maps a chat command to its reply. An empty reply sends
// nothing.
type CommandHandler func(command string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

// StartPolling long-polls getUpdates and answers commands from the
// configured chat. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: pollTimeout + 5*time.Second, Transport: t.Client.Transport}
	offset := 0
	for {
		if ctx.Err() != nil {
			t.logger.Info("telegram polling stopped")
			return
		}
		updates, err := t.fetchUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			t.logger.Warn("poll updates failed", slog.Duration("retry_in", pollBackoff), tint.Err(err))
			sleepCtx(ctx, pollBackoff)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			t.dispatch(ctx, u, handler)
		}
	}
}

func (t *TelegramNotifier) fetchUpdates(ctx context.Context, client *http.Client, offset int) ([]update, error) {
	apiURL := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		t.APIBase, t.BotToken, offset, int(pollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	defer resp.Body.Close()

	var out updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !out.OK {
		return nil, errors.New("telegram API error: " + out.Description)
	}
	return out.Result, nil
}

// dispatch runs handler for a slash command sent from the configured chat.
// Anything else is dropped so a stray chat cannot drive the ledger.
func (t *TelegramNotifier) dispatch(ctx context.Context, u update, handler CommandHandler) {
	if u.Message == nil {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
		t.logger.Warn("ignored message from foreign chat", slog.Int64("chat_id", u.Message.Chat.ID))
		return
	}
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	t.logger.Debug("received command", slog.String("command", text))
	if reply := handler(text); reply != "" {
		if err := t.Send(ctx, reply); err != nil {
			t.logger.Error("send reply", tint.Err(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

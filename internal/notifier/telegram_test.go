package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T, h http.Handler) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("TOKEN", "42", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tn.APIBase = srv.URL
	return tn
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	var calls atomic.Int32
	tn := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))

	require.NoError(t, tn.SendWithRetry(context.Background(), "hi", 1))
	require.Equal(t, int32(2), calls.Load())
}

func TestTelegramNotifier_GivesUp(t *testing.T) {
	tn := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := tn.SendWithRetry(context.Background(), "hi", 0)
	require.ErrorContains(t, err, "all 1 retries exhausted")
}

func TestTelegramNotifier_APIError(t *testing.T) {
	tn := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`)
	}))

	err := tn.Send(context.Background(), "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	require.Equal(t, 7*time.Second, apiErr.RetryAfter)
	require.Contains(t, apiErr.Error(), "Too Many Requests")
}

func TestTelegramNotifier_SendPayload(t *testing.T) {
	var got sendMessageRequest
	tn := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))

	require.NoError(t, tn.Send(context.Background(), "<b>MOON</b>"))
	require.Equal(t, sendMessageRequest{ChatID: "42", Text: "<b>MOON</b>", ParseMode: "HTML", DisableWebPagePreview: true}, got)
}

func TestTelegramNotifier_PollingAnswersOwnChatOnly(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		served  atomic.Bool
	)
	tn := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if served.CompareAndSwap(false, true) {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/click","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/click","chat":{"id":7}}},
					{"update_id":3,"message":{"text":"hello","chat":{"id":42}}},
					{"update_id":4}
				]}`)
				return
			}
			select {
			case <-r.Context().Done():
			case <-time.After(20 * time.Millisecond):
			}
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case "/botTOKEN/sendMessage":
			var req sendMessageRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			replies = append(replies, req.Text)
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	var handled atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tn.StartPolling(ctx, func(cmd string) string {
			handled.Add(1)
			return "ok:" + cmd
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Equal(t, int32(1), handled.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"ok:/click"}, replies)
}

package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"WeEarn/internal/metrics"
)

func TestServer(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name          string
		listenAddress string
		endpoint      string
		statusCode    int
	}{
		{
			name:          "Metrics handler",
			listenAddress: "127.0.0.1:10110",
			endpoint:      "http://127.0.0.1:10110/metrics",
			statusCode:    http.StatusOK,
		},
		{
			name:          "Invalid endpoint",
			listenAddress: "127.0.0.1:10120",
			endpoint:      "http://127.0.0.1:10120/invalid",
			statusCode:    http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			m.Clicks.WithLabelValues("manual").Inc()

			srv := metrics.NewServer(tc.listenAddress, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(ctx)
			})

			// Wait for server to start.
			time.Sleep(500 * time.Millisecond)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.endpoint, http.NoBody)
			rq.NoError(err)

			resp, err := http.DefaultClient.Do(req)
			rq.NoError(err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			rq.Equal(tc.statusCode, resp.StatusCode)
			if tc.statusCode == http.StatusOK {
				rq.Contains(string(body), `weearn_clicks_total{source="manual"} 1`)
			}

			cancel()

			rq.NoError(g.Wait())
		})
	}
}

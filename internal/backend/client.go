// Package backend calls the Tsugu query backend and the player-binding service.
package backend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

const DefaultBaseURL = "http://tsugubot.com:8080"

// Error is an upstream failure of one backend call.
type Error struct {
	Endpoint string
	Params   map[string]any
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Endpoint, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(http *httpx.Client, baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{http: http, baseURL: base}
}

// Query posts params to endpoint and returns the reply elements. Nil-valued params are omitted.
// One attempt only; any transport, status or decode failure comes back as *Error.
func (c *Client) Query(ctx context.Context, endpoint string, params map[string]any) ([]tsugudto.Element, error) {
	body := compact(params)
	var out []tsugudto.Element
	if err := c.http.PostJSON(ctx, c.baseURL+endpoint, body, &out); err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		obslog.L().Warn("backend_error", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &Error{Endpoint: endpoint, Params: body, Cause: err}
	}
	metrics.BackendRequests.WithLabelValues(endpoint, "ok").Inc()
	return out, nil
}

func compact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

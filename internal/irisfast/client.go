// Package irisfast is the Iris (KakaoTalk bridge) client: HTTP replies and WebSocket events.
package irisfast

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider = httpx.HeaderProvider

type Client struct {
	baseURL string
	http    *httpx.Client
}

type Option = httpx.Option

var (
	WithTimeout         = httpx.WithTimeout
	WithMaxConnsPerHost = httpx.WithMaxConnsPerHost
	WithHeaderProvider  = httpx.WithHeaderProvider
	WithRetry           = httpx.WithRetry
	WithDial            = httpx.WithDial
)

func NewClient(baseURL string, opts ...Option) *Client {
	base := []Option{httpx.WithTimeout(10 * time.Second), httpx.WithRetry(3)}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpx.New(append(base, opts...)...),
	}
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.http.Do(ctx, fasthttp.MethodGet, c.baseURL+"/config", nil, &cfg, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) Decrypt(ctx context.Context, data string) (string, error) {
	var resp DecryptResponse
	if err := c.http.Do(ctx, fasthttp.MethodPost, c.baseURL+"/decrypt", DecryptRequest{Data: data}, &resp, true); err != nil {
		return "", err
	}
	return resp.Decrypted, nil
}

func (c *Client) SendMessage(ctx context.Context, room, message string) error {
	req := ReplyRequest{Type: "text", Room: room, Data: message}
	return c.http.PostJSON(ctx, c.baseURL+"/reply", req, nil)
}

func (c *Client) SendImage(ctx context.Context, room, imageBase64 string) error {
	req := ImageReplyRequest{Type: "image", Room: room, Data: imageBase64}
	return c.http.PostJSON(ctx, c.baseURL+"/reply", req, nil)
}

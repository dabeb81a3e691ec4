package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
)

const DefaultBindBaseURL = "http://uid.ksm.ink:7722"

// BindClient reads and writes chat-user to game-player bindings.
type BindClient struct {
	http    *httpx.Client
	dataURL string
}

func NewBindClient(http *httpx.Client, baseURL string) *BindClient {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBindBaseURL
	}
	return &BindClient{http: http, dataURL: base + "/api/data"}
}

type bindRequest struct {
	Mode   string `json:"mode"`
	UserID string `json:"user_id"`
	Server string `json:"server"`
	UID    string `json:"uid,omitempty"`
}

// Get returns the service's answer for the user's binding on server. A bound user gets the
// player id; anything else is a free-form message.
func (b *BindClient) Get(ctx context.Context, userID, server string) (string, error) {
	return b.call(ctx, bindRequest{Mode: "get", UserID: userID, Server: server})
}

// Save binds playerID to the user on server and returns the service's message.
func (b *BindClient) Save(ctx context.Context, userID, playerID, server string) (string, error) {
	return b.call(ctx, bindRequest{Mode: "save", UserID: userID, Server: server, UID: playerID})
}

func (b *BindClient) call(ctx context.Context, req bindRequest) (string, error) {
	var raw []byte
	if err := b.http.PostJSON(ctx, b.dataURL, req, &raw); err != nil {
		return "", fmt.Errorf("bind %s: %w", req.Mode, err)
	}
	return string(raw), nil
}

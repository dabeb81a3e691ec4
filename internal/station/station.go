// Package station talks to the public room broadcast station: it polls the open-room feed and
// relays rooms announced in chat.
package station

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
)

const (
	DefaultBaseURL = "https://api.bandoristation.com/"

	queryFunction  = "query_room_number"
	submitFunction = "submit_room_number"

	defaultUserName = "Unknown"
	sourceKind      = "external"
)

type Client struct {
	http      *httpx.Client
	queryURL  string
	submitURL string
	token     string
	tokenName string
}

type Option func(*Client)

// WithToken sets the relay credentials sent with every submission.
func WithToken(tokenName, token string) Option {
	return func(c *Client) {
		c.tokenName = tokenName
		c.token = token
	}
}

func New(http *httpx.Client, baseURL string, opts ...Option) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c := &Client{
		http:      http,
		queryURL:  base,
		submitURL: base + "index.php",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feedResponse struct {
	Status   string     `json:"status"`
	Response []feedItem `json:"response"`
}

type feedItem struct {
	Number     flexString `json:"number"`
	RawMessage string     `json:"raw_message"`
	Type       string     `json:"type"`
	Time       int64      `json:"time"`
	SourceInfo *struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"source_info"`
	UserInfo *struct {
		Type     string     `json:"type"`
		UserID   flexString `json:"user_id"`
		Username *string    `json:"username"`
		Avatar   *string    `json:"avatar"`
	} `json:"user_info"`
}

// Fetch returns the rooms currently on the station. Items without a number are dropped.
func (c *Client) Fetch(ctx context.Context) ([]room.Entry, error) {
	var resp feedResponse
	if err := c.http.GetJSON(ctx, c.queryURL, url.Values{"function": {queryFunction}}, &resp); err != nil {
		return nil, fmt.Errorf("query room feed: %w", err)
	}
	out := make([]room.Entry, 0, len(resp.Response))
	for _, it := range resp.Response {
		number := strings.TrimSpace(string(it.Number))
		if number == "" {
			continue
		}
		e := room.Entry{
			Number:        number,
			RawMessage:    it.RawMessage,
			SourceKind:    sourceKind,
			SubmittedAt:   it.Time,
			SubmitterID:   room.NoSubmitter,
			SubmitterName: defaultUserName,
		}
		if it.SourceInfo != nil {
			e.SourceName = it.SourceInfo.Name
		}
		if u := it.UserInfo; u != nil {
			e.SubmitterID = string(u.UserID)
			if u.Username != nil {
				e.SubmitterName = *u.Username
			}
			e.SubmitterAvatar = u.Avatar
		}
		out = append(out, e)
	}
	return out, nil
}

// Submit relays one room announcement to the station.
func (c *Client) Submit(ctx context.Context, number, userID, rawMessage string) error {
	if strings.TrimSpace(number) == "" {
		return room.ErrEmptyNumber
	}
	q := url.Values{
		"function":    {submitFunction},
		"number":      {number},
		"user_id":     {userID},
		"raw_message": {rawMessage},
		"source":      {c.tokenName},
		"token":       {c.token},
	}
	if err := c.http.GetJSON(ctx, c.submitURL, q, nil); err != nil {
		return fmt.Errorf("submit room %s: %w", number, err)
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

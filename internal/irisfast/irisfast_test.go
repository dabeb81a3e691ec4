package irisfast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
)

func TestClientReplyAndConfig(t *testing.T) {
	replies := make(chan ReplyRequest, 2)
	srv := httpx.NewTestServer(func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/config":
			ctx.SetBodyString(`{"bot_http_port":3000,"db_polling_rate":100,"message_send_rate":50,"web_server_endpoint":"http://bot/hook"}`)
		case "/reply":
			var r ReplyRequest
			_ = json.Unmarshal(ctx.PostBody(), &r)
			replies <- r
			ctx.SetBodyString(`{}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})
	defer srv.Close()

	c := NewClient("http://iris/", WithDial(srv.Dial))
	cfg, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Port)

	require.NoError(t, c.SendMessage(context.Background(), "room-1", "hi"))
	require.Equal(t, ReplyRequest{Type: "text", Room: "room-1", Data: "hi"}, <-replies)
	require.NoError(t, c.SendImage(context.Background(), "room-1", "AAAA"))
	require.Equal(t, "image", (<-replies).Type)
}

func TestMessageIdentity(t *testing.T) {
	name := "kasumi"
	m := &Message{Msg: "ycm", Room: "r1", Sender: &name}
	require.Equal(t, "kasumi", m.UserID())
	require.Equal(t, "r1", m.ChatID())

	m.JSON = &MessageJSON{UserID: "42", ChatID: "c9"}
	require.Equal(t, "42", m.UserID())
	require.Equal(t, "c9", m.ChatID())

	var nilMsg *Message
	require.Equal(t, "", nilMsg.UserID())
}

func TestWebSocketDeliversAndWrites(t *testing.T) {
	written := make(chan ReplyRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != "bot" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageText, []byte("not json"))
		_ = wsjson.Write(ctx, conn, Message{Msg: "ycm", Room: "r1", JSON: &MessageJSON{UserID: "42", ChatID: "c1"}})
		var reply ReplyRequest
		if err := wsjson.Read(ctx, conn, &reply); err == nil {
			written <- reply
		}
		<-ctx.Done()
	}))
	defer srv.Close()

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0, time.Millisecond)
	ws.SetHeaderProvider(func() map[string]string { return map[string]string{"X-User-Id": "bot"} })
	got := make(chan *Message, 1)
	ws.OnMessage(func(m *Message) { got <- m })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.Connect(ctx))
	require.Equal(t, WSStateConnected, ws.State())

	select {
	case m := <-got:
		require.Equal(t, "ycm", m.Msg)
		require.Equal(t, "42", m.UserID())
	case <-ctx.Done():
		t.Fatal("no message delivered")
	}

	eg := NewEgress("ws", false, nil, ws, nil)
	require.NoError(t, eg.SendText(ctx, "r1", "myc"))
	select {
	case r := <-written:
		require.Equal(t, ReplyRequest{Type: "text", Room: "r1", Data: "myc"}, r)
	case <-ctx.Done():
		t.Fatal("reply not written")
	}

	require.NoError(t, ws.Close(ctx))
	require.ErrorIs(t, ws.WriteJSON(ctx, ReplyRequest{}), errNotConnected)
}

func TestAutoEgressFallsBackToHTTP(t *testing.T) {
	hits := make(chan string, 1)
	srv := httpx.NewTestServer(func(ctx *fasthttp.RequestCtx) {
		hits <- string(ctx.Path())
		ctx.SetBodyString(`{}`)
	})
	defer srv.Close()

	ws := NewWebSocket("ws://unused", 0, time.Millisecond)
	eg := NewEgress("auto", false, NewClient("http://iris", WithDial(srv.Dial)), ws, nil)
	require.NoError(t, eg.SendText(context.Background(), "r1", "hi"))
	require.Equal(t, "/reply", <-hits)
}

func TestWebSocketStateString(t *testing.T) {
	require.Equal(t, "reconnecting", WSStateReconnecting.String())
	require.Equal(t, "unknown", WebSocketState(99).String())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	appcfg "github.com/park285/Tsugu-KakaoTalk-bot/internal/config"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/station"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	hc := httpx.New(httpx.WithTimeout(8 * time.Second))
	checkStation(hc, cfg)
	checkBackend(hc, cfg.TsuguAPIBase)

	if cfg.IrisBaseURL == "" {
		log.Fatal("IRIS_BASE_URL is required")
	}
	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(cfg.IrisHeaders),
		irisfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	icfg, err := client.GetConfig(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: port=%d polling=%d rate=%d endpoint=%s", icfg.Port, icfg.PollingSpeed, icfg.MessageRate, icfg.WebserverEndpoint)
	}

	if cfg.IrisWSURL == "" {
		log.Println("IRIS_WS_URL not set; skipping WS check")
		return
	}

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(cfg.IrisHeaders)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		fmt.Printf("WS msg room=%s user=%s chat=%s text=%q\n", msg.Room, msg.UserID(), msg.ChatID(), msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}

func checkStation(hc *httpx.Client, cfg *appcfg.AppConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	rooms, err := station.New(hc, cfg.StationBaseURL).Fetch(ctx)
	if err != nil {
		log.Printf("room feed error: %v", err)
		return
	}
	log.Printf("room feed ok: %d rooms", len(rooms))
}

// checkBackend only proves the host answers; any HTTP status counts as reachable.
func checkBackend(hc *httpx.Client, base string) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	var body []byte
	err := hc.GetJSON(ctx, base, nil, &body)
	var se *httpx.StatusError
	switch {
	case err == nil:
		log.Printf("backend ok: %s", base)
	case errors.As(err, &se):
		log.Printf("backend reachable: %s status=%d", base, se.Status)
	default:
		log.Printf("backend error: %v", err)
	}
}

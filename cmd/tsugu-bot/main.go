package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/adapter/replypresenter"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/bot"
	appcfg "github.com/park285/Tsugu-KakaoTalk-bot/internal/config"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/tsugubuilder"
)

const handleTimeout = 30 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireIris(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := tsugubuilder.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("builder_init_failed", zap.Error(err))
	}
	defer deps.Close()

	headers := cfg.IrisHeaders
	client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers), irisfast.WithTimeout(cfg.HTTPTimeout))

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})

	egress := irisfast.NewEgress(cfg.EgressMode, cfg.EgressDry, client, ws, logger)
	presenter := replypresenter.New(egress, cfg.BotName)

	ws.OnMessage(func(msg *irisfast.Message) {
		if msg == nil || msg.Msg == "" {
			return
		}
		if !cfg.RoomAllowed(msg.Room) {
			logger.Debug("room_ignored", zap.String("room", msg.Room))
			return
		}
		go handleMessage(rootCtx, deps.Bot, presenter, msg)
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics_server_error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		logger.Info("metrics_listen", zap.String("addr", cfg.MetricsAddr))
	}

	cctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	err = ws.Connect(cctx)
	cancel()
	if err != nil {
		logger.Fatal("ws_connect_failed", zap.Error(err))
	}
	logger.Info("bot_started", zap.String("bot_name", cfg.BotName), zap.String("egress", cfg.EgressMode))

	<-rootCtx.Done()
	logger.Info("bot_stopping")
	_ = ws.Close(context.Background())
}

func handleMessage(parent context.Context, b *bot.Bot, presenter *replypresenter.Presenter, msg *irisfast.Message) {
	ctx, cancel := context.WithTimeout(parent, handleTimeout)
	defer cancel()

	reply, err := b.Handle(ctx, bot.Inbound{Text: msg.Msg, UserID: msg.UserID(), GroupID: msg.ChatID()})
	if err != nil {
		obslog.L().Warn("handle_failed", zap.String("room", msg.Room), zap.Error(err))
		return
	}
	if len(reply) == 0 {
		return
	}
	if err := presenter.Present(ctx, msg.Room, reply); err != nil {
		obslog.L().Warn("reply_send_failed", zap.String("room", msg.Room), zap.Error(err))
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

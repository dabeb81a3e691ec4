package tsugubuilder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/bot"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/config"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		HelpTrigger:    "help",
		BotName:        "tsugu",
		Admins:         []string{"ALL"},
		DefaultServers: []string{"3", "0"},
		HTTPTimeout:    time.Second,
		RoomTTL:        2 * time.Minute,
	}
}

func TestNewInMemory(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	require.NoError(t, err)
	defer d.Close()

	require.NotNil(t, d.Bot)
	out, err := d.Bot.Handle(context.Background(), bot.Inbound{Text: "关闭个人车牌转发", UserID: "u1", GroupID: "g1"})
	require.NoError(t, err)
	require.Equal(t, "已关闭个人车牌转发", out[0].String)
}

func TestNewWithRedisAndSQLite(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.PrefSQLitePath = filepath.Join(t.TempDir(), "prefs.db")

	d, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	p, err := d.Prefs.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "3", p.ActiveServer)
	_, statErr := os.Stat(cfg.PrefSQLitePath)
	require.NoError(t, statErr)
}

func TestNewRejectsBadAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- trigger: 查曲\n  action: nope\n"), 0o644))
	cfg := baseConfig()
	cfg.AliasesFile = path
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisURL = "http://not-redis"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestCloseLeavesCallerRedisOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d, err := New(context.Background(), baseConfig(), nil, WithRedis(rdb))
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestCloseClosesOwnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	d, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	rdb := d.redis
	require.NoError(t, d.Close())
	require.ErrorIs(t, rdb.Ping(context.Background()).Err(), redis.ErrClosed)
}

// Package tsugubuilder constructs the bot and its collaborators from AppConfig.
package tsugubuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/backend"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/bot"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/command"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/config"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/httpx"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/station"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/userpref"
)

type Deps struct {
	Bot        *bot.Bot
	Aggregator *room.Aggregator
	Prefs      *userpref.Service
	Station    *station.Client
	Backend    *backend.Client
	Catalog    *msgcat.Catalog
	Table      *command.AliasTable

	redis     *redis.Client
	ownsRedis bool
	db        *sql.DB
}

// Option overrides a collaborator, mostly for tests and the CLI.
type Option func(*options)

type options struct {
	http  *httpx.Client
	redis *redis.Client
}

func WithHTTPClient(c *httpx.Client) Option { return func(o *options) { o.http = c } }

// WithRedis supplies an existing client instead of dialing REDIS_URL. The caller keeps
// ownership: Deps.Close leaves it open.
func WithRedis(rdb *redis.Client) Option { return func(o *options) { o.redis = rdb } }

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, opts ...Option) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("tsugubuilder: nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	aliases := command.DefaultAliases
	if cfg.AliasesFile != "" {
		loaded, err := command.LoadAliases(cfg.AliasesFile)
		if err != nil {
			return nil, err
		}
		aliases = loaded
	}
	table, err := command.NewAliasTable(cfg.HelpTrigger, aliases)
	if err != nil {
		return nil, fmt.Errorf("alias table: %w", err)
	}
	d.Table = table

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("message catalog: %w", err)
	}
	d.Catalog = catalog

	hc := o.http
	if hc == nil {
		hc = httpx.New(httpx.WithTimeout(cfg.HTTPTimeout), httpx.WithRetry(1))
	}

	d.redis = o.redis
	if d.redis == nil && cfg.RedisURL != "" {
		ropts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.redis = redis.NewClient(ropts)
		d.ownsRedis = true
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = d.redis.Ping(pctx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	store, err := d.openPrefStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.Prefs = userpref.NewService(store, userpref.WithDefaults(cfg.DefaultServers, cfg.DefaultActiveServer))

	d.Station = station.New(hc, cfg.StationBaseURL, station.WithToken(cfg.StationTokenName, cfg.StationToken))
	aggOpts := []room.Option{room.WithTTL(cfg.RoomTTL)}
	if d.redis != nil {
		aggOpts = append(aggOpts, room.WithBuffer(room.NewRedisBuffer(d.redis, "")))
		logger.Info("room_buffer", zap.String("kind", "redis"))
	}
	d.Aggregator = room.NewAggregator(d.Station, aggOpts...)

	d.Backend = backend.New(hc, cfg.TsuguAPIBase)

	d.Bot, err = bot.New(bot.Deps{
		Table:      table,
		Catalog:    catalog,
		Backend:    d.Backend,
		Binder:     backend.NewBindClient(hc, cfg.BindAPIBase),
		Relay:      d.Station,
		Rooms:      d.Aggregator,
		Prefs:      d.Prefs,
		Classifier: command.NewClassifier(table, nil, nil),
		Settings: bot.Settings{
			BotName:        cfg.BotName,
			SourceName:     cfg.StationTokenName,
			UseEasyBG:      cfg.UseEasyBG,
			Admins:         cfg.Admins,
			BanGroups:      cfg.BanGroups,
			BanGachaGroups: cfg.BanGachaSimulateGroups,
			BanRelayGroups: cfg.BanCarStationSend,
			StatusOnEcho:   cfg.StatusOnEcho,
			StatusOffEcho:  cfg.StatusOffEcho,
		},
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return d, nil
}

// openPrefStore picks postgres, then sqlite, then redis, then memory.
func (d *Deps) openPrefStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (userpref.Store, error) {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		store, db, err := userpref.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.db = db
		logger.Info("pref_store", zap.String("kind", "postgres"))
		return store, nil
	case strings.TrimSpace(cfg.PrefSQLitePath) != "":
		store, db, err := userpref.OpenSQLite(ctx, cfg.PrefSQLitePath)
		if err != nil {
			return nil, err
		}
		d.db = db
		logger.Info("pref_store", zap.String("kind", "sqlite"), zap.String("path", cfg.PrefSQLitePath))
		return store, nil
	case d.redis != nil:
		logger.Info("pref_store", zap.String("kind", "redis"))
		return userpref.NewRedisStore(d.redis, ""), nil
	default:
		logger.Warn("pref_store", zap.String("kind", "memory"))
		return userpref.NewMemoryStore(), nil
	}
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.redis != nil && d.ownsRedis {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}

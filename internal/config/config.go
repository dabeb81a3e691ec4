package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string
	EgressMode  string // http | ws | auto
	EgressDry   bool

	XUserID    string
	XUserEmail string
	XSessionID string

	TsuguAPIBase     string
	BindAPIBase      string
	StationBaseURL   string
	StationToken     string
	StationTokenName string

	BotName     string
	HelpTrigger string
	UseEasyBG   bool

	DefaultServers      []string
	DefaultActiveServer string

	Admins                 []string
	BanGroups              []string
	BanGachaSimulateGroups []string
	BanCarStationSend      []string
	StatusOnEcho           string
	StatusOffEcho          string

	AllowedRooms []string

	RedisURL       string
	DatabaseURL    string
	PrefSQLitePath string

	HTTPTimeout time.Duration
	RoomTTL     time.Duration

	MetricsAddr string
	AliasesFile string
	MessagesDir string
}

var (
	ErrIrisBaseURL = errors.New("IRIS_BASE_URL is required")
	ErrIrisWSURL   = errors.New("IRIS_WS_URL is required")
)

// Load reads .env (if present) and then the environment. Only Iris settings are mandatory,
// and only for the bot process; see RequireIris.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		EgressMode:          getenvDefault("IRIS_EGRESS_MODE", "http"),
		TsuguAPIBase:        getenvDefault("TSUGU_API_BASE", "http://tsugubot.com:8080"),
		BindAPIBase:         getenvDefault("BIND_API_BASE", "http://uid.ksm.ink:7722"),
		StationBaseURL:      getenvDefault("STATION_BASE_URL", "https://api.bandoristation.com/"),
		StationToken:        getenvDefault("STATION_TOKEN", "ZtV4EX2K9Onb"),
		StationTokenName:    getenvDefault("STATION_TOKEN_NAME", "Tsugu"),
		BotName:             getenvDefault("BOT_NAME", "tsugu"),
		HelpTrigger:         getenvDefault("HELP_TRIGGER", "help"),
		UseEasyBG:           true,
		DefaultServers:      []string{"3", "0"},
		DefaultActiveServer: getenvDefault("DEFAULT_ACTIVE_SERVER", "3"),
		Admins:              []string{"ALL"},
		StatusOnEcho:        getenvDefault("STATUS_ON_ECHO", "喜多喜多"),
		StatusOffEcho:       getenvDefault("STATUS_OFF_ECHO", "呜呜zoule"),
		HTTPTimeout:         10 * time.Second,
		RoomTTL:             120 * time.Second,
	}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PrefSQLitePath = strings.TrimSpace(os.Getenv("PREF_SQLITE_PATH"))

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))
	cfg.AliasesFile = strings.TrimSpace(os.Getenv("ALIASES_FILE"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("USE_EASY_BG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseEasyBG = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("IRIS_EGRESS_DRYRUN")); v != "" {
		cfg.EgressDry, _ = strconv.ParseBool(v)
	}
	if list := getenvList("DEFAULT_SERVERS"); len(list) > 0 {
		cfg.DefaultServers = list
	}
	if list := getenvList("ADMINS"); len(list) > 0 {
		cfg.Admins = list
	}
	cfg.BanGroups = getenvList("BAN_GROUPS")
	cfg.BanGachaSimulateGroups = getenvList("BAN_GACHA_SIMULATE_GROUPS")
	cfg.BanCarStationSend = getenvList("BAN_CAR_STATION_SEND")
	cfg.AllowedRooms = getenvList("ALLOWED_ROOMS")

	if d, ok := getenvDuration("HTTP_TIMEOUT"); ok {
		cfg.HTTPTimeout = d
	}
	if d, ok := getenvDuration("ROOM_TTL"); ok {
		cfg.RoomTTL = d
	}

	return cfg, nil
}

// RequireIris fails when the Iris endpoints are missing.
func (c *AppConfig) RequireIris() error {
	if c.IrisBaseURL == "" {
		return ErrIrisBaseURL
	}
	if c.IrisWSURL == "" {
		return ErrIrisWSURL
	}
	return nil
}

// IrisHeaders returns the X-User-* handshake and request headers.
func (c *AppConfig) IrisHeaders() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}

// RoomAllowed is true when no allow-list is configured or room is on it.
func (c *AppConfig) RoomAllowed(room string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	for _, r := range c.AllowedRooms {
		if r == room {
			return true
		}
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getenvList splits a comma separated value, dropping blanks.
func getenvList(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getenvDuration accepts a Go duration ("15s") or whole seconds ("15").
func getenvDuration(k string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

package bot

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/command"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/region"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/userpref"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

const (
	adminWildcard     = "ALL"
	defaultDifficulty = "ex"
	defaultGachaTimes = 10
	maxGachaTimes     = 10000
	minPlayerIDLength = 6
)

var errBinderMissing = errors.New("player binding service not configured")

func (b *Bot) handlerTable() map[command.Action]handlerFunc {
	return map[command.Action]handlerFunc{
		command.ActionHelp:              b.handleHelp,
		command.ActionSwitch:            b.handleSwitch,
		command.ActionSearchSong:        b.searchWithText("/searchSong", true),
		command.ActionSearchEvent:       b.searchWithText("/searchEvent", true),
		command.ActionSearchCard:        b.searchWithText("/searchCard", true),
		command.ActionSearchCharacter:   b.searchWithText("/searchCharacter", false),
		command.ActionSearchGacha:       b.handleSearchGacha,
		command.ActionSongChart:         b.handleSongChart,
		command.ActionCardIllustration:  b.handleCardIllustration,
		command.ActionSearchPlayer:      b.handleSearchPlayer,
		command.ActionPlayerStatus:      b.handlePlayerStatus,
		command.ActionBindPlayer:        b.handleBindPlayer,
		command.ActionSongMeta:          b.handleSongMeta,
		command.ActionRoomList:          b.handleRoomList,
		command.ActionTierAll:           b.handleTierAll,
		command.ActionTier:              b.tier("/ycx"),
		command.ActionTierHistory:       b.tier("/lsycx"),
		command.ActionGachaSimulate:     b.handleGachaSimulate,
		command.ActionRoomForwardOn:     b.forward(true),
		command.ActionRoomForwardOff:    b.forward(false),
		command.ActionSetDefaultServers: b.handleSetDefaultServers,
		command.ActionSetActiveServer:   b.handleSetActiveServer,
	}
}

// servers returns the server list and active server for this call: a server named in the
// text overrides the user's preferences.
func (b *Bot) servers(ctx context.Context, req *request) ([]string, string, error) {
	if s, ok := region.Find(req.residual); ok {
		return []string{s.ID()}, s.ID(), nil
	}
	p, err := b.prefs.Get(ctx, req.UserID)
	if err != nil {
		return nil, "", err
	}
	return p.Servers, p.ActiveServer, nil
}

func (b *Bot) activeServer(ctx context.Context, req *request) (region.Server, error) {
	_, active, err := b.servers(ctx, req)
	if err != nil {
		return 0, err
	}
	s, ok := region.Parse(active)
	if !ok {
		return region.CN, nil
	}
	return s, nil
}

func (b *Bot) handleHelp(_ context.Context, req *request) ([]tsugudto.Element, error) {
	if req.residual == "" {
		keys := make([]string, 0, len(b.table.Entries()))
		for _, trigger := range b.table.Triggers() {
			if _, ok := b.helpText(trigger); ok && !slices.Contains(keys, trigger) {
				keys = append(keys, trigger)
			}
		}
		return b.text("reply.help_index", map[string]string{
			"Keys":    strings.Join(keys, "\n>> "),
			"Trigger": b.table.HelpTrigger(),
		}), nil
	}
	s, ok := b.helpText(req.residual)
	if !ok {
		return nil, nil
	}
	return b.text("reply.help_entry", map[string]string{"Text": s}), nil
}

// handleSwitch mutes or unmutes the group: "swc on|off <bot names...>".
func (b *Bot) handleSwitch(_ context.Context, req *request) ([]tsugudto.Element, error) {
	if req.residual == "" {
		return b.helpReply(req.trigger), nil
	}
	fields := strings.Fields(req.residual)
	status, targets := fields[0], fields[1:]
	if !slices.Contains(targets, b.settings.BotName) {
		return nil, nil
	}
	if !b.admins.Has(adminWildcard) && !b.admins.Has(req.UserID) {
		return b.text("reply.permission_denied", nil), nil
	}
	switch status {
	case "on":
		b.banned.Remove(req.GroupID)
		req.log.Info("group_switch", zap.Bool("enabled", true))
		return tsugudto.TextReply(b.settings.StatusOnEcho), nil
	case "off":
		b.banned.Add(req.GroupID)
		req.log.Info("group_switch", zap.Bool("enabled", false))
		return tsugudto.TextReply(b.settings.StatusOffEcho), nil
	default:
		return nil, nil
	}
}

// searchWithText covers the free-text searches that send {default_servers, text}.
func (b *Bot) searchWithText(endpoint string, easyBG bool) handlerFunc {
	return func(ctx context.Context, req *request) ([]tsugudto.Element, error) {
		if req.residual == "" {
			return b.helpReply(req.trigger), nil
		}
		servers, _, err := b.servers(ctx, req)
		if err != nil {
			return nil, err
		}
		params := map[string]any{"default_servers": servers, "text": req.residual}
		if easyBG {
			params["useEasyBG"] = b.settings.UseEasyBG
		}
		return b.backend.Query(ctx, endpoint, params)
	}
}

func (b *Bot) handleSearchGacha(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if req.residual == "" {
		return b.helpReply(req.trigger), nil
	}
	servers, _, err := b.servers(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.backend.Query(ctx, "/searchGacha", map[string]any{
		"default_servers": servers,
		"useEasyBG":       b.settings.UseEasyBG,
		"gachaId":         req.residual,
	})
}

func (b *Bot) handleSongChart(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if req.residual == "" {
		return b.helpReply(req.trigger), nil
	}
	args := strings.Fields(req.residual)
	songID, ok := digits(args[0])
	if !ok {
		return b.text("reply.bad_song_id", nil), nil
	}
	difficulty := defaultDifficulty
	if len(args) >= 2 {
		difficulty = args[1]
	}
	servers, _, err := b.servers(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.backend.Query(ctx, "/songChart", map[string]any{
		"default_servers": servers,
		"songId":          songID,
		"difficultyText":  difficulty,
	})
}

func (b *Bot) handleCardIllustration(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if _, ok := digits(req.residual); !ok {
		return b.helpReply(req.trigger), nil
	}
	return b.backend.Query(ctx, "/getCardIllustration", map[string]any{"cardId": req.residual})
}

func (b *Bot) handleSearchPlayer(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	playerID, ok := matchPlayerID(req.residual)
	if !ok {
		return b.helpReply(req.trigger), nil
	}
	server, err := b.activeServer(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.queryPlayer(ctx, server, playerID)
}

func (b *Bot) queryPlayer(ctx context.Context, server region.Server, playerID int64) ([]tsugudto.Element, error) {
	return b.backend.Query(ctx, "/searchPlayer", map[string]any{
		"server":    int(server),
		"useEasyBG": b.settings.UseEasyBG,
		"playerId":  playerID,
	})
}

// handlePlayerStatus looks up the player bound to the sender on the active server.
func (b *Bot) handlePlayerStatus(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if b.binder == nil {
		return nil, errBinderMissing
	}
	server, err := b.activeServer(ctx, req)
	if err != nil {
		return nil, err
	}
	answer, err := b.binder.Get(ctx, req.UserID, server.Code())
	if err != nil {
		return nil, &bindError{cause: err}
	}
	if playerID, ok := digits(strings.TrimSpace(answer)); ok {
		return b.queryPlayer(ctx, server, playerID)
	}
	bindHelp, _ := b.helpText(b.triggerFor(command.ActionBindPlayer))
	return b.text("reply.not_bound", map[string]string{"Server": server.Name(), "Help": bindHelp}), nil
}

func (b *Bot) handleBindPlayer(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	playerID, ok := matchPlayerID(req.residual)
	if !ok {
		return b.helpReply(req.trigger), nil
	}
	if b.binder == nil {
		return nil, errBinderMissing
	}
	server, err := b.activeServer(ctx, req)
	if err != nil {
		return nil, err
	}
	answer, err := b.binder.Save(ctx, req.UserID, strconv.FormatInt(playerID, 10), server.Code())
	if err != nil {
		return nil, &bindError{save: true, cause: err}
	}
	return tsugudto.TextReply(answer), nil
}

// handleSongMeta accepts nothing but an optional server name.
func (b *Bot) handleSongMeta(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if _, named := region.Find(req.residual); !named && req.residual != "" {
		return nil, nil
	}
	_, server, err := b.servers(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.backend.Query(ctx, "/songMeta", map[string]any{
		"default_servers": []string{server},
		"useEasyBG":       b.settings.UseEasyBG,
		"server":          server,
	})
}

func (b *Bot) handleRoomList(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if req.residual != "" {
		return nil, nil
	}
	entries, err := b.rooms.Query(ctx)
	if err != nil {
		return nil, err
	}
	records := room.Export(entries)
	if len(records) == 0 {
		return b.text("reply.no_rooms", nil), nil
	}
	return b.backend.Query(ctx, "/roomList", map[string]any{"roomList": records})
}

// tier handles "ycx|lsycx <tier> [eventId] [server]".
func (b *Bot) tier(endpoint string) handlerFunc {
	return func(ctx context.Context, req *request) ([]tsugudto.Element, error) {
		args := positional(req.residual)
		badFormat := func() ([]tsugudto.Element, error) {
			help, _ := b.helpText(req.trigger)
			return b.text("reply.bad_format", map[string]string{"Help": help}), nil
		}
		if len(args) == 0 {
			return badFormat()
		}
		tier, err := strconv.Atoi(args[0])
		if err != nil {
			return badFormat()
		}
		params := map[string]any{"tier": tier}
		if len(args) >= 2 {
			eventID, err := strconv.Atoi(args[1])
			if err != nil {
				return badFormat()
			}
			params["eventId"] = eventID
		}
		_, server, err := b.servers(ctx, req)
		if err != nil {
			return nil, err
		}
		params["server"] = server
		return b.backend.Query(ctx, endpoint, params)
	}
}

func (b *Bot) handleTierAll(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	args := positional(req.residual)
	params := map[string]any{}
	if len(args) >= 1 {
		eventID, err := strconv.Atoi(args[0])
		if err != nil {
			help, _ := b.helpText(req.trigger)
			return b.text("reply.bad_format", map[string]string{"Help": help}), nil
		}
		params["eventId"] = eventID
	}
	_, server, err := b.servers(ctx, req)
	if err != nil {
		return nil, err
	}
	params["server"] = server
	return b.backend.Query(ctx, "/ycxAll", params)
}

// handleGachaSimulate handles "抽卡模拟 [times] [gachaId]".
func (b *Bot) handleGachaSimulate(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	if b.banGacha.Has(req.GroupID) {
		return b.text("reply.gacha_banned", nil), nil
	}
	args := positional(req.residual)
	times := defaultGachaTimes
	var gachaID any
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			help, _ := b.helpText(req.trigger)
			return b.text("reply.bad_format", map[string]string{"Help": help}), nil
		}
		if n > 0 && n < maxGachaTimes {
			times = n
		}
	}
	if len(args) >= 2 {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			help, _ := b.helpText(req.trigger)
			return b.text("reply.bad_format", map[string]string{"Help": help}), nil
		}
		gachaID = id
	}
	_, server, err := b.servers(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.backend.Query(ctx, "/gachaSimulate", map[string]any{
		"server_mode": server,
		"status":      true,
		"times":       times,
		"gachaId":     gachaID,
	})
}

func (b *Bot) forward(enabled bool) handlerFunc {
	key := "reply.forward_off"
	if enabled {
		key = "reply.forward_on"
	}
	return func(ctx context.Context, req *request) ([]tsugudto.Element, error) {
		if _, err := b.prefs.Apply(ctx, req.UserID, userpref.SetForward{Enabled: enabled}); err != nil {
			return nil, err
		}
		return b.text(key, nil), nil
	}
}

// handleSetDefaultServers replaces the server list with every server named in the text.
func (b *Bot) handleSetDefaultServers(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	servers := region.FindAll(req.residual)
	if len(servers) == 0 {
		return b.text("reply.no_server_matched", nil), nil
	}
	if _, err := b.prefs.Apply(ctx, req.UserID, userpref.SetDefaultServers{Servers: region.IDs(servers)}); err != nil {
		return nil, err
	}
	return b.text("reply.servers_changed", map[string]string{"Names": region.JoinNames(servers)}), nil
}

// handleSetActiveServer makes the named server active and moves it to the front of the list.
func (b *Bot) handleSetActiveServer(ctx context.Context, req *request) ([]tsugudto.Element, error) {
	s, ok := region.Find(req.residual)
	if !ok {
		return nil, nil
	}
	_, err := b.prefs.Apply(ctx, req.UserID,
		userpref.SetActiveServer{Server: s.ID()},
		userpref.SetDefaultServers{Servers: []string{s.ID()}, Prepend: true},
	)
	if err != nil {
		return nil, err
	}
	return b.text("reply.servers_changed", map[string]string{"Names": s.Name()}), nil
}

func (b *Bot) triggerFor(action command.Action) string {
	for _, e := range b.table.Entries() {
		if e.Action == action {
			return e.Trigger
		}
	}
	return ""
}

// positional splits args, dropping tokens that only name a server.
func positional(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		if !region.IsToken(f) {
			out = append(out, f)
		}
	}
	return out
}

// matchPlayerID returns the first all-digit token longer than five characters.
func matchPlayerID(text string) (int64, bool) {
	for _, f := range strings.Fields(text) {
		if len(f) < minPlayerIDLength {
			continue
		}
		if id, ok := digits(f); ok {
			return id, true
		}
	}
	return 0, false
}

func digits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

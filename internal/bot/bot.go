// Package bot turns one inbound chat message into a reply: room announcements are relayed,
// commands are routed to their handler, and every failure becomes a visible text reply here.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/command"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/userpref"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

// Inbound is one chat message as delivered by the platform adapter.
type Inbound struct {
	Text    string
	UserID  string
	GroupID string
}

type Backend interface {
	Query(ctx context.Context, endpoint string, params map[string]any) ([]tsugudto.Element, error)
}

type Binder interface {
	Get(ctx context.Context, userID, server string) (string, error)
	Save(ctx context.Context, userID, playerID, server string) (string, error)
}

// Relay forwards a room announcement to the public station.
type Relay interface {
	Submit(ctx context.Context, number, userID, rawMessage string) error
}

type Rooms interface {
	Submit(ctx context.Context, s room.Submission) error
	Query(ctx context.Context) ([]room.Entry, error)
}

type Prefs interface {
	Get(ctx context.Context, userID string) (userpref.Preference, error)
	Apply(ctx context.Context, userID string, updates ...userpref.Update) (userpref.Preference, error)
}

type Settings struct {
	BotName        string
	SourceName     string
	UseEasyBG      bool
	Admins         []string
	BanGroups      []string
	BanGachaGroups []string
	BanRelayGroups []string
	StatusOnEcho   string
	StatusOffEcho  string
}

type Deps struct {
	Table      *command.AliasTable
	Catalog    *msgcat.Catalog
	Backend    Backend
	Binder     Binder
	Relay      Relay
	Rooms      Rooms
	Prefs      Prefs
	Classifier *command.Classifier
	Settings   Settings
}

type handlerFunc func(ctx context.Context, req *request) ([]tsugudto.Element, error)

type Bot struct {
	router     *command.Router
	classifier *command.Classifier
	table      *command.AliasTable
	catalog    *msgcat.Catalog
	backend    Backend
	binder     Binder
	relay      Relay
	rooms      Rooms
	prefs      Prefs
	settings   Settings

	banned   *groupSet
	banGacha *groupSet
	banRelay *groupSet
	admins   *groupSet
	handlers map[command.Action]handlerFunc
}

var errMissingDeps = errors.New("bot: alias table, catalog, backend, rooms and prefs are required")

func New(d Deps) (*Bot, error) {
	if d.Table == nil || d.Catalog == nil || d.Backend == nil || d.Rooms == nil || d.Prefs == nil {
		return nil, errMissingDeps
	}
	b := &Bot{
		router:     command.NewRouter(d.Table),
		classifier: d.Classifier,
		table:      d.Table,
		catalog:    d.Catalog,
		backend:    d.Backend,
		binder:     d.Binder,
		relay:      d.Relay,
		rooms:      d.Rooms,
		prefs:      d.Prefs,
		settings:   d.Settings,
		banned:     newGroupSet(d.Settings.BanGroups),
		banGacha:   newGroupSet(d.Settings.BanGachaGroups),
		banRelay:   newGroupSet(d.Settings.BanRelayGroups),
		admins:     newGroupSet(d.Settings.Admins),
	}
	if b.classifier == nil {
		b.classifier = command.NewClassifier(d.Table, nil, nil)
	}
	b.handlers = b.handlerTable()
	return b, nil
}

// request carries one routed command through its handler.
type request struct {
	Inbound
	action   command.Action
	trigger  string
	residual string
	log      *zap.Logger
}

// Handle answers one message. A nil reply means stay silent. Failures, including a
// preference store that cannot be read on the room path, come back as diagnostic replies;
// the error is non-nil only when ctx ended before the message could be answered.
func (b *Bot) Handle(ctx context.Context, in Inbound) ([]tsugudto.Element, error) {
	log := obslog.L().With(
		zap.String("request_id", uuid.NewString()),
		zap.String("user_id", in.UserID),
		zap.String("group_id", in.GroupID),
	)

	if b.classifier.IsRoom(in.Text) {
		pref, err := b.prefs.Get(ctx, in.UserID)
		if err != nil {
			log.Error("room_pref_error", zap.Error(err))
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return b.failureReply(fmt.Errorf("load preference: %w", err)), nil
		}
		if pref.RoomForward {
			b.submitRoom(ctx, in, log)
			return nil, nil
		}
	}

	res, ok := b.router.Resolve(in.Text)
	if !ok {
		return nil, nil
	}
	if res.Action != command.ActionSwitch && b.banned.Has(in.GroupID) {
		log.Debug("group_banned", zap.String("action", string(res.Action)))
		return nil, nil
	}
	req := &request{Inbound: in, action: res.Action, trigger: res.Trigger, residual: res.Residual, log: log}
	return b.dispatch(ctx, req), nil
}

func (b *Bot) dispatch(ctx context.Context, req *request) (reply []tsugudto.Element) {
	h, ok := b.handlers[req.action]
	if !ok {
		req.log.Warn("command_unhandled", zap.String("action", string(req.action)))
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			req.log.Error("handler_panic",
				zap.String("action", string(req.action)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			reply = nil
		}
	}()

	metrics.CommandsTotal.WithLabelValues(string(req.action)).Inc()
	req.log.Info("command_dispatch", zap.String("action", string(req.action)), zap.String("residual", req.residual))

	out, err := h(ctx, req)
	if err != nil {
		metrics.CommandFailures.WithLabelValues(string(req.action)).Inc()
		req.log.Warn("command_failed", zap.String("action", string(req.action)), zap.Error(err))
		return b.failureReply(err)
	}
	return out
}

// submitRoom records the room locally and relays it to the station. Neither step replies.
func (b *Bot) submitRoom(ctx context.Context, in Inbound, log *zap.Logger) {
	number := command.RoomNumber(in.Text)
	err := b.rooms.Submit(ctx, room.Submission{
		Number:      number,
		SubmitterID: in.UserID,
		RawMessage:  in.Text,
		Source:      b.settings.SourceName,
	})
	if err != nil {
		log.Warn("room_submit_error", zap.String("number", number), zap.Error(err))
	}

	relayed := false
	if b.relay != nil && !b.banRelay.Has(in.GroupID) {
		if err := b.relay.Submit(ctx, number, in.UserID, in.Text); err != nil {
			log.Warn("room_relay_error", zap.String("number", number), zap.Error(err))
		} else {
			relayed = true
		}
	}
	metrics.RoomSubmissions.WithLabelValues(strconv.FormatBool(relayed)).Inc()
}

// GroupBanned reports whether commands from the group are currently muted.
func (b *Bot) GroupBanned(groupID string) bool { return b.banned.Has(groupID) }

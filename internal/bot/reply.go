package bot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/backend"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

// bindError is a failed call to the binding service.
type bindError struct {
	save  bool
	cause error
}

func (e *bindError) Error() string {
	op := "get"
	if e.save {
		op = "save"
	}
	return fmt.Sprintf("player bind %s: %v", op, e.cause)
}

func (e *bindError) Unwrap() error { return e.cause }

func (b *Bot) text(key string, data any) []tsugudto.Element {
	return tsugudto.TextReply(b.catalog.Text(key, data))
}

func (b *Bot) helpText(trigger string) (string, bool) {
	key := msgcat.HelpKey(trigger)
	if !b.catalog.Has(key) {
		return "", false
	}
	return b.catalog.Text(key, map[string]string{"BotName": b.settings.BotName}), true
}

// helpReply answers with the trigger's usage text, or stays silent if it has none.
func (b *Bot) helpReply(trigger string) []tsugudto.Element {
	s, ok := b.helpText(trigger)
	if !ok {
		return nil
	}
	return tsugudto.TextReply(s)
}

// failureReply is the single place errors become user-visible text.
func (b *Bot) failureReply(err error) []tsugudto.Element {
	var (
		be *backend.Error
		fe *room.FeedError
		ie *bindError
	)
	switch {
	case errors.As(err, &be):
		params, _ := json.Marshal(be.Params)
		return b.text("reply.backend_error", map[string]string{"Error": be.Cause.Error(), "Params": string(params)})
	case errors.As(err, &fe):
		return b.text("reply.room_feed_error", map[string]string{"Error": fe.Cause.Error()})
	case errors.As(err, &ie):
		key := "reply.player_id_error"
		if ie.save {
			key = "reply.bind_error"
		}
		return b.text(key, map[string]string{"Error": ie.cause.Error()})
	default:
		return b.text("reply.internal_error", map[string]string{"Error": err.Error()})
	}
}

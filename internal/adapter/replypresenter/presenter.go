// Package replypresenter delivers bot reply elements to a chat room.
package replypresenter

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/util"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

const base64Scheme = "base64://"

// Sender is the platform egress; irisfast.Egress satisfies it.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Presenter delivers reply elements in order without coupling to the command layer.
type Presenter struct {
	out      Sender
	fallback string
}

// New builds a presenter; fallback is the visible line of folded single-line texts.
func New(out Sender, fallback string) *Presenter {
	return &Presenter{out: out, fallback: fallback}
}

// Present sends each element; it stops at the first send failure.
func (p *Presenter) Present(ctx context.Context, room string, reply []tsugudto.Element) error {
	if p == nil || p.out == nil {
		return nil
	}
	for _, el := range reply {
		switch el.Type {
		case tsugudto.ElementString:
			if strings.TrimSpace(el.String) == "" {
				continue
			}
			if err := p.out.SendText(ctx, room, util.FoldSeeMore(el.String, p.fallback)); err != nil {
				return err
			}
		case tsugudto.ElementBase64:
			data := strings.TrimPrefix(el.String, base64Scheme)
			if data == "" {
				continue
			}
			if err := p.out.SendImage(ctx, room, data); err != nil {
				return err
			}
		default:
			obslog.L().Warn("reply_element_skipped", zap.String("type", el.Type), zap.String("room", room))
		}
	}
	return nil
}

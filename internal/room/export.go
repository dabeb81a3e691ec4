package room

import (
	"strconv"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
	"go.uber.org/zap"
)

// FallbackUserName is shown for rooms whose submitter has no display name.
const FallbackUserName = "Bob"

// Export maps live entries to the backend's /roomList record shape.
// Entries whose number is not an integer are skipped.
func Export(entries []Entry) []tsugudto.RoomRecord {
	out := make([]tsugudto.RoomRecord, 0, len(entries))
	for _, e := range entries {
		n, err := strconv.Atoi(e.Number)
		if err != nil {
			obslog.L().Warn("room_export_skip", zap.String("number", e.Number), zap.Error(err))
			continue
		}
		name := e.SubmitterName
		if name == "" {
			name = FallbackUserName
		}
		out = append(out, tsugudto.RoomRecord{
			Number:     n,
			RawMessage: e.RawMessage,
			Source:     e.SourceName,
			UserID:     e.SubmitterID,
			Time:       e.SubmittedAt,
			Avatar:     e.SubmitterAvatar,
			UserName:   name,
		})
	}
	return out
}

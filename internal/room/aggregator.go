package room

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"go.uber.org/zap"
)

// DefaultTTL is how long a room stays listed after its latest submission.
const DefaultTTL = 120 * time.Second

// Feed returns the rooms currently reported by the external broadcast feed.
type Feed interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// Aggregator merges local submissions with the external feed into the live room set.
type Aggregator struct {
	mu   sync.Mutex
	buf  Buffer
	feed Feed
	ttl  time.Duration
	now  func() time.Time
}

type Option func(*Aggregator)

func WithBuffer(b Buffer) Option {
	return func(a *Aggregator) { a.buf = b }
}

func WithTTL(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator builds an aggregator over feed. A nil feed contributes no rooms.
func NewAggregator(feed Feed, opts ...Option) *Aggregator {
	a := &Aggregator{
		buf:  NewMemoryBuffer(),
		feed: feed,
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit appends a local room stamped with the current time. Dedup happens in Query.
func (a *Aggregator) Submit(ctx context.Context, s Submission) error {
	number := strings.TrimSpace(s.Number)
	if number == "" {
		return ErrEmptyNumber
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e := Entry{
		Number:        number,
		RawMessage:    s.RawMessage,
		SourceName:    s.Source,
		SourceKind:    "local",
		SubmittedAt:   a.now().UnixMilli(),
		SubmitterID:   s.SubmitterID,
		SubmitterName: s.SubmitterName,
	}
	if err := a.buf.Append(ctx, e); err != nil {
		return err
	}
	obslog.L().Info("room_submit", zap.String("number", number), zap.String("source", s.Source), zap.String("user_id", s.SubmitterID))
	return nil
}

// Query fetches the feed, merges it over the local buffer, drops rooms older than the TTL
// and stores the survivors as the new buffer. A feed failure leaves the buffer untouched.
func (a *Aggregator) Query(ctx context.Context) ([]Entry, error) {
	var external []Entry
	if a.feed != nil {
		list, err := a.feed.Fetch(ctx)
		if err != nil {
			metrics.RoomFeedErrors.Inc()
			obslog.L().Warn("room_feed_error", zap.Error(err))
			return nil, &FeedError{Cause: err}
		}
		external = list
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := a.now().UnixMilli() - a.ttl.Milliseconds()
	var out []Entry
	err := a.buf.Compact(ctx, func(local []Entry) []Entry {
		out = evict(merge(local, external), cutoff)
		return out
	})
	if err != nil {
		return nil, err
	}
	metrics.RoomsLive.Set(float64(len(out)))
	return append([]Entry(nil), out...), nil
}

// merge keys entries by number; later entries overwrite earlier ones unconditionally, so an
// external record replaces a local one for the same number whatever their timestamps.
// TODO: compare SubmittedAt once the feed is confirmed to echo our own submissions back late.
func merge(local, external []Entry) []Entry {
	index := make(map[string]int, len(local)+len(external))
	out := make([]Entry, 0, len(local)+len(external))
	put := func(e Entry) {
		if i, ok := index[e.Number]; ok {
			out[i] = e
			return
		}
		index[e.Number] = len(out)
		out = append(out, e)
	}
	for _, e := range local {
		put(e)
	}
	for _, e := range external {
		put(e)
	}
	return out
}

func evict(entries []Entry, cutoff int64) []Entry {
	kept := entries[:0]
	for _, e := range entries {
		if e.SubmittedAt >= cutoff {
			kept = append(kept, e)
		}
	}
	return kept
}

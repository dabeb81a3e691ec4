package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.UnixMilli(1_700_000_000_000)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubFeed struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	calls   int
}

func (f *stubFeed) Fetch(context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Entry(nil), f.entries...), nil
}

func numbers(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Number)
	}
	sort.Strings(out)
	return out
}

func TestSubmitThenQueryThenExpire(t *testing.T) {
	clock := newFakeClock()
	agg := NewAggregator(&stubFeed{}, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, agg.Submit(ctx, Submission{Number: "12345", SubmitterID: "u1", RawMessage: "12345 车", Source: "Tsugu"}))

	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "12345", got[0].Number)
	require.Equal(t, clock.Now().UnixMilli(), got[0].SubmittedAt)

	clock.Advance(121 * time.Second)
	got, err = agg.Query(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEvictionBoundaryAndCompaction(t *testing.T) {
	clock := newFakeClock()
	feed := &stubFeed{}
	agg := NewAggregator(feed, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, agg.Submit(ctx, Submission{Number: "11111"}))
	clock.Advance(60 * time.Second)
	require.NoError(t, agg.Submit(ctx, Submission{Number: "22222"}))
	clock.Advance(60 * time.Second)

	// 11111 is exactly 120s old and survives.
	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"11111", "22222"}, numbers(got))

	clock.Advance(time.Millisecond)
	got, err = agg.Query(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"22222"}, numbers(got))

	// Evicted entries are gone from the buffer, not just filtered.
	var kept []Entry
	require.NoError(t, agg.buf.Compact(ctx, func(local []Entry) []Entry {
		kept = local
		return local
	}))
	require.Equal(t, []string{"22222"}, numbers(kept))
}

func TestExternalOverwritesLocalRegardlessOfTime(t *testing.T) {
	clock := newFakeClock()
	feed := &stubFeed{}
	agg := NewAggregator(feed, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, agg.Submit(ctx, Submission{Number: "12345", RawMessage: "local", SubmitterID: "u1"}))
	feed.entries = []Entry{{
		Number:      "12345",
		RawMessage:  "external",
		SourceName:  "bandori station",
		SubmittedAt: clock.Now().Add(-30 * time.Second).UnixMilli(),
	}}

	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "external", got[0].RawMessage)
	require.Equal(t, NoSubmitter, got[0].SubmitterID)
}

func TestLaterLocalSubmissionWins(t *testing.T) {
	clock := newFakeClock()
	agg := NewAggregator(nil, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, agg.Submit(ctx, Submission{Number: "12345", RawMessage: "first"}))
	clock.Advance(time.Second)
	require.NoError(t, agg.Submit(ctx, Submission{Number: "12345", RawMessage: "second"}))

	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "second", got[0].RawMessage)
}

func TestQueryIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	feed := &stubFeed{entries: []Entry{{Number: "33333", SubmittedAt: newFakeClock().Now().UnixMilli()}}}
	agg := NewAggregator(feed, WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, agg.Submit(ctx, Submission{Number: "44444"}))

	first, err := agg.Query(ctx)
	require.NoError(t, err)
	second, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Equal(t, numbers(first), numbers(second))
	require.Equal(t, []string{"33333", "44444"}, numbers(second))
}

func TestFeedFailureSurfacesAndKeepsBuffer(t *testing.T) {
	clock := newFakeClock()
	feed := &stubFeed{err: errors.New("connection refused")}
	agg := NewAggregator(feed, WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, agg.Submit(ctx, Submission{Number: "12345"}))

	_, err := agg.Query(ctx)
	var ferr *FeedError
	require.ErrorAs(t, err, &ferr)
	require.Contains(t, err.Error(), "connection refused")

	feed.mu.Lock()
	feed.err = nil
	feed.mu.Unlock()
	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"12345"}, numbers(got))
}

func TestSubmitRejectsEmptyNumber(t *testing.T) {
	agg := NewAggregator(nil)
	require.ErrorIs(t, agg.Submit(context.Background(), Submission{Number: "  "}), ErrEmptyNumber)
}

func TestConcurrentSubmitAndQueryLoseNothing(t *testing.T) {
	agg := NewAggregator(&stubFeed{})
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		n := fmt.Sprintf("%05d", 10000+i)
		g.Go(func() error { return agg.Submit(ctx, Submission{Number: n}) })
		g.Go(func() error {
			_, err := agg.Query(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := agg.Query(ctx)
	require.NoError(t, err)
	require.Len(t, got, 50)
}

func TestExport(t *testing.T) {
	avatar := "a.png"
	records := Export([]Entry{
		{Number: "12345", RawMessage: "12345 车", SourceName: "Tsugu", SubmitterID: "42", SubmittedAt: 7},
		{Number: "not-a-number"},
		{Number: "654321", SubmitterName: "ksm", SubmitterAvatar: &avatar},
	})
	require.Len(t, records, 2)
	require.Equal(t, 12345, records[0].Number)
	require.Equal(t, "42", records[0].UserID)
	require.Equal(t, FallbackUserName, records[0].UserName)
	require.Nil(t, records[0].Avatar)
	require.Equal(t, "ksm", records[1].UserName)
	require.Equal(t, &avatar, records[1].Avatar)
}

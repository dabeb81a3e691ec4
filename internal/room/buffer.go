package room

import (
	"context"
	"sync"
)

// Buffer holds the local append-only room list between Query cycles.
// Compact must run fn and store its result atomically with respect to Append.
type Buffer interface {
	Append(ctx context.Context, e Entry) error
	Compact(ctx context.Context, fn func(local []Entry) []Entry) error
}

type memBuffer struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryBuffer() Buffer { return &memBuffer{} }

func (b *memBuffer) Append(_ context.Context, e Entry) error {
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
	return nil
}

func (b *memBuffer) Compact(_ context.Context, fn func(local []Entry) []Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = fn(append([]Entry(nil), b.entries...))
	return nil
}

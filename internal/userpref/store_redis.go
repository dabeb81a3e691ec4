package userpref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "tsugu:user:"
	modifyMaxRetries = 8
)

// RedisStore keeps one JSON value per user, without expiry. It may be shared by several bot
// processes: Modify is an optimistic WATCH transaction retried on conflict.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(userID string) string { return s.prefix + userID }

func (s *RedisStore) Load(ctx context.Context, userID string) (Preference, bool, error) {
	return getPref(ctx, s.rdb, s.key(userID), userID)
}

func getPref(ctx context.Context, c redis.Cmdable, key, userID string) (Preference, bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, err
	}
	var p Preference
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preference{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	p.UserID = userID
	return p, true, nil
}

func (s *RedisStore) Modify(ctx context.Context, userID string, seed Preference, fn func(*Preference)) (Preference, bool, error) {
	key := s.key(userID)
	var (
		out     Preference
		created bool
	)
	txf := func(tx *redis.Tx) error {
		p, found, err := getPref(ctx, tx, key, userID)
		if err != nil {
			return err
		}
		if !found {
			p = seed.clone()
			p.UserID = userID
		}
		if fn != nil {
			fn(&p)
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		}); err != nil {
			return err
		}
		out, created = p, !found
		return nil
	}
	for attempt := 1; attempt <= modifyMaxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Preference{}, false, err
		}
		return out, created, nil
	}
	return Preference{}, false, fmt.Errorf("%s: %w", key, ErrConflict)
}

package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisKey   = "tsugu:rooms:local"
	compactMaxRetries = 5
)

// RedisBuffer shares the local room list between bot processes. Appends are RPUSH;
// Compact is an optimistic WATCH transaction retried on conflict.
type RedisBuffer struct {
	rdb *redis.Client
	key string
}

func NewRedisBuffer(rdb *redis.Client, key string) *RedisBuffer {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisBuffer{rdb: rdb, key: key}
}

func (b *RedisBuffer) Append(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.RPush(ctx, b.key, raw).Err()
}

func (b *RedisBuffer) Compact(ctx context.Context, fn func(local []Entry) []Entry) error {
	for attempt := 1; attempt <= compactMaxRetries; attempt++ {
		err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raws, err := tx.LRange(ctx, b.key, 0, -1).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			local := make([]Entry, 0, len(raws))
			for _, raw := range raws {
				var e Entry
				if jerr := json.Unmarshal([]byte(raw), &e); jerr != nil {
					obslog.L().Warn("room_buffer_decode", zap.String("key", b.key), zap.Error(jerr))
					continue
				}
				local = append(local, e)
			}
			kept := fn(local)
			payload := make([]any, 0, len(kept))
			for _, e := range kept {
				raw, merr := json.Marshal(e)
				if merr != nil {
					return merr
				}
				payload = append(payload, raw)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, b.key)
				if len(payload) > 0 {
					pipe.RPush(ctx, b.key, payload...)
				}
				return nil
			})
			return err
		}, b.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("compact %s: too many concurrent writers", b.key)
}

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"psy-booking-bot/internal/models"
)

// OpenRedis creates a client and pings it to validate the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// RedisStore keeps states as JSON under chat_state:<chat id>. Abandoned flows
// expire after ttl; zero keeps them until cleared.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(chatID int64) string { return fmt.Sprintf("chat_state:%d", chatID) }

func (s *RedisStore) Get(ctx context.Context, chatID int64) (models.ChatState, error) {
	b, err := s.rdb.Get(ctx, s.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NoState(), nil
	}
	if err != nil {
		return models.NoState(), err
	}
	var st models.ChatState
	if err := json.Unmarshal(b, &st); err != nil {
		return models.NoState(), fmt.Errorf("chat %d state: %w", chatID, err)
	}
	if !st.Kind.Valid() {
		return models.NoState(), fmt.Errorf("chat %d: unknown state %q", chatID, st.Kind)
	}
	return st, nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, st models.ChatState) error {
	if st.IsNone() {
		return s.Clear(ctx, chatID)
	}
	if !st.Kind.Valid() {
		return fmt.Errorf("chat %d: unknown state %q", chatID, st.Kind)
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(chatID), b, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, s.key(chatID)).Err()
}

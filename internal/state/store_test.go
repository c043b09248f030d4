package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/storage"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]Store{
		BackendDB:    NewSQLStore(db),
		BackendRedis: NewRedisStore(rdb, time.Hour),
	}
}

func TestStoreTransitions(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			st, err := s.Get(ctx, 10)
			require.NoError(t, err)
			assert.True(t, st.IsNone())

			require.NoError(t, s.Set(ctx, 10, models.PaymentState(5)))
			st, err = s.Get(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, models.FlowPayment, st.Kind)
			assert.Equal(t, int64(5), st.ClientID)

			// a new flow replaces the pending one
			require.NoError(t, s.Set(ctx, 10, models.BroadcastState()))
			st, err = s.Get(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, models.BroadcastState(), st)

			// other chats are independent
			st, err = s.Get(ctx, 11)
			require.NoError(t, err)
			assert.True(t, st.IsNone())

			require.NoError(t, s.Clear(ctx, 10))
			st, err = s.Get(ctx, 10)
			require.NoError(t, err)
			assert.True(t, st.IsNone())

			assert.Error(t, s.Set(ctx, 10, models.ChatState{Kind: "waiting_forever"}))
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb, time.Minute)
	require.NoError(t, s.Set(ctx, 1, models.DiaryState(2)))
	assert.True(t, mr.Exists("chat_state:1"))

	mr.FastForward(2 * time.Minute)
	st, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.IsNone())
}

func TestOpenRedisEmptyAddr(t *testing.T) {
	_, err := OpenRedis(context.Background(), "", "", 0)
	assert.Error(t, err)
}

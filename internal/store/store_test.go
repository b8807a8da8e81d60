package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewRedisStore(rdb, "tubescout"), s
}

func TestRedisStore_GetMissing(t *testing.T) {
	st, _ := setupStore(t)

	_, ok, err := st.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_SetGet(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "greeting", "hello", 0))

	val, ok, err := st.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", val)

	// Stored under the namespaced key
	assert.True(t, mr.Exists("tubescout:greeting"))
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "ephemeral", "x", time.Hour))

	mr.FastForward(2 * time.Hour)

	_, ok, err := st.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Delete(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "a", "1", 0))
	require.NoError(t, st.Set(ctx, "b", "2", 0))
	require.NoError(t, st.Delete(ctx, "a", "b"))

	_, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetJSON_RoundTrip(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, SetJSON(ctx, st, "p", payload{Name: "tech", Count: 3}, 0))

	var got payload
	ok, err := GetJSON(ctx, st, "p", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "tech", Count: 3}, got)
}

func TestGetJSON_MalformedIsMiss(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "broken", "{not json", 0))

	var got map[string]int
	ok, err := GetJSON(ctx, st, "broken", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetJSON_Absent(t *testing.T) {
	st, _ := setupStore(t)

	var got map[string]int
	ok, err := GetJSON(context.Background(), st, "absent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

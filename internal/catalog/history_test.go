package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHistory(t *testing.T) (*History, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewHistory(client), mr
}

func TestHistory_NewestFirstDeduplicated(t *testing.T) {
	h, mr := setupTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Add(ctx, "v1", Viewed{ID: "p1", Category: "Shirts"}))
	require.NoError(t, h.Add(ctx, "v1", Viewed{ID: "p2", Category: "Jeans"}))
	require.NoError(t, h.Add(ctx, "v1", Viewed{ID: "p1", Category: "Shirts"}))

	got, err := h.List(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []Viewed{{ID: "p1", Category: "Shirts"}, {ID: "p2", Category: "Jeans"}}, got)
	assert.True(t, mr.TTL(historyKey("v1")) > 0)

	other, err := h.List(ctx, "v2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHistory_Capped(t *testing.T) {
	h, _ := setupTestHistory(t)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, h.Add(ctx, "v1", Viewed{ID: fmt.Sprintf("p%d", i), Category: "c"}))
	}
	got, err := h.List(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, got, maxHistory)
	assert.Equal(t, "p14", got[0].ID)
	assert.Equal(t, "p5", got[maxHistory-1].ID)
}

func TestHistory_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	h := NewHistory(client)
	require.Error(t, h.Add(context.Background(), "v1", Viewed{ID: "p1"}))
	_, err := h.List(context.Background(), "v1")
	require.Error(t, err)
}

func TestFromHistory(t *testing.T) {
	products := sampleProducts()[:3]
	viewed := []Viewed{{ID: "p3", Category: "Jeans"}, {ID: "p1", Category: "Shirts"}}

	assert.Equal(t, []string{"jeans", "blue-shirt"}, slugs(FromHistory(products, viewed, HistoryViewed, "", 10)))
	assert.Equal(t, []string{"jeans"}, slugs(FromHistory(products, viewed, HistoryViewed, "p1", 10)))
	assert.Equal(t, []string{"red-shirt"}, slugs(FromHistory(products, viewed, HistoryRelated, "", 10)))
	assert.Equal(t, []string{"jeans"}, slugs(FromHistory(products, viewed, HistoryViewed, "", 1)))
	assert.Empty(t, FromHistory(products, nil, HistoryRelated, "", 10))
}

package idgen

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 100})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestNextID_StrictlyIncreasing(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	w := NewWorker(client)
	key := testKey(t)

	var prev int64
	for i := 0; i < 200; i++ {
		id, err := w.NextID(ctx, key)
		require.NoError(t, err)
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_Layout(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	w := NewWorker(client)

	id, err := w.NextID(ctx, testKey(t))
	require.NoError(t, err)

	require.GreaterOrEqual(t, id, int64(0), "ids are 63-bit")
	require.EqualValues(t, 1, id&0xFFFFFFFF, "fresh key starts at sequence 1")
	require.Greater(t, id>>sequenceBits, int64(0), "timestamp part is past the epoch offset")
}

func TestNextID_ConcurrentUnique(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	w := NewWorker(client)
	key := testKey(t)

	const (
		workers = 50
		perWork = 200 // 10,000 ids total
	)

	ids := make(chan int64, workers*perWork)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWork; j++ {
				id, err := w.NextID(ctx, key)
				if err != nil {
					t.Errorf("NextID: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWork)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, workers*perWork)
}

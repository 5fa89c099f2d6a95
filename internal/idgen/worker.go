// Package idgen mints globally unique, roughly ascending 63-bit ids from
// wall-clock seconds and a store-side atomic counter.
package idgen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// beginTimestamp is 2022-01-01T00:00:00Z. Seconds since this offset fill
	// the high 31 bits, leaving room for roughly 68 years of ids.
	beginTimestamp = 1640995200

	sequenceBits = 32

	counterPrefix = "icr:"
)

type Worker struct {
	client *redis.Client
}

func NewWorker(client *redis.Client) *Worker {
	return &Worker{client: client}
}

// NextID composes elapsed seconds shifted left by 32 bits with a
// per-(businessKey, day) counter fetched atomically from the store. The date
// suffix rotates the counter key daily, so it never needs an explicit reset.
// Uniqueness holds under concurrency via INCR; strict monotonicity assumes
// the local clock does not regress.
func (w *Worker) NextID(ctx context.Context, businessKey string) (int64, error) {
	now := time.Now().UTC()
	elapsed := now.Unix() - beginTimestamp

	day := now.Format("2006:01:02")
	seq, err := w.client.Incr(ctx, counterPrefix+businessKey+":"+day).Result()
	if err != nil {
		return 0, fmt.Errorf("increment id counter: %w", err)
	}

	return elapsed<<sequenceBits | seq, nil
}

// loadgen drives the admission path under concurrency and asserts the stock
// invariant: with S units of stock and N > S concurrent buyers, exactly S
// admissions succeed and the counter ends at zero.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhngo/voucher-sale/internal/adapter/storage"
	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/idgen"
)

const (
	voucherID     = int64(7)
	initialStock  = 100
	totalRequests = 500

	stream = "stream.orders.loadgen"
	group  = "g-loadgen"
)

func main() {
	ctx := context.Background()

	addr := os.Getenv("VSALE_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous run data
	voucher := strconv.FormatInt(voucherID, 10)
	rdb.Del(ctx, "seckill:stock:"+voucher, "seckill:order:"+voucher, stream)

	adapter := storage.NewRedisAdapter(rdb, stream, group, "loadgen")
	if err := adapter.InitStock(ctx, voucherID, initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	ids := idgen.NewWorker(rdb)

	var admitted, soldOut, failed atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			orderID, err := ids.NextID(ctx, "loadgen")
			if err != nil {
				failed.Add(1)
				return
			}

			code, err := adapter.Reserve(ctx, voucherID, userID, orderID)
			switch {
			case err != nil:
				failed.Add(1)
			case code == domain.AdmissionOK:
				admitted.Add(1)
			case code == domain.AdmissionSoldOut:
				soldOut.Add(1)
			}
		}(int64(i + 1))
	}

	wg.Wait()
	elapsed := time.Since(start)

	finalStock, _ := rdb.Get(ctx, "seckill:stock:"+voucher).Int()
	queued, _ := rdb.XLen(ctx, stream).Result()
	buyers, _ := rdb.SCard(ctx, "seckill:order:"+voucher).Result()

	fmt.Println("========== LOADGEN RESULTS ==========")
	fmt.Printf("Initial Stock:   %d\n", initialStock)
	fmt.Printf("Total Requests:  %d\n", totalRequests)
	fmt.Printf("Admitted:        %d\n", admitted.Load())
	fmt.Printf("Sold Out:        %d\n", soldOut.Load())
	fmt.Printf("Errors:          %d\n", failed.Load())
	fmt.Printf("Duration:        %v\n", elapsed)
	fmt.Printf("Final Stock:     %d\n", finalStock)
	fmt.Printf("Queued Intents:  %d\n", queued)
	fmt.Printf("Distinct Buyers: %d\n", buyers)
	fmt.Println("=====================================")

	pass := true
	if admitted.Load() != int32(initialStock) {
		fmt.Printf("FAIL: expected %d admissions, got %d\n", initialStock, admitted.Load())
		pass = false
	}
	if finalStock != 0 {
		fmt.Printf("FAIL: expected final stock 0, got %d\n", finalStock)
		pass = false
	}
	if queued != int64(initialStock) {
		fmt.Printf("FAIL: expected %d queued intents, got %d\n", initialStock, queued)
		pass = false
	}
	if pass {
		fmt.Println("PASS: admissions, stock and queue all consistent")
	}
}

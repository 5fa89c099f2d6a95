package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhngo/voucher-sale/internal/core/domain"
)

const (
	stockKeyPrefix = "seckill:stock:"
	orderSetPrefix = "seckill:order:"
)

// admissionScript is the whole admission check as one server-side step:
// stock check, per-user dedup, decrement, dedup registration and enqueue.
// Nothing else ever writes the stock counter or the purchased set.
var admissionScript = redis.NewScript(`
local voucherId = ARGV[1]
local userId = ARGV[2]
local orderId = ARGV[3]

local stockKey = KEYS[1]
local orderKey = KEYS[2]
local streamKey = KEYS[3]

local stock = tonumber(redis.call('GET', stockKey))
if stock == nil or stock <= 0 then
	return 1
end

if redis.call('SISMEMBER', orderKey, userId) == 1 then
	return 2
end

redis.call('DECRBY', stockKey, 1)
redis.call('SADD', orderKey, userId)
redis.call('XADD', streamKey, '*', 'id', orderId, 'userId', userId, 'voucherId', voucherId)
return 0
`)

type RedisAdapter struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

func NewRedisAdapter(client *redis.Client, stream, group, consumer string) *RedisAdapter {
	return &RedisAdapter{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *RedisAdapter) Reserve(ctx context.Context, voucherID, userID, orderID int64) (domain.AdmissionCode, error) {
	voucher := strconv.FormatInt(voucherID, 10)
	keys := []string{
		stockKeyPrefix + voucher,
		orderSetPrefix + voucher,
		r.stream,
	}

	code, err := admissionScript.Run(ctx, r.client, keys,
		voucher,
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(orderID, 10),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("run admission script: %w", err)
	}

	return domain.AdmissionCode(code), nil
}

func (r *RedisAdapter) InitStock(ctx context.Context, voucherID int64, stock int) error {
	return r.client.Set(ctx, stockKeyPrefix+strconv.FormatInt(voucherID, 10), stock, 0).Err()
}

// EnsureGroup creates the consumer group, and the stream with it, if missing.
func (r *RedisAdapter) EnsureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// ReadNext waits up to block for one newly delivered entry.
func (r *RedisAdapter) ReadNext(ctx context.Context, block time.Duration) (*domain.PurchaseIntent, error) {
	return r.readOne(ctx, ">", block)
}

// ReadPending re-reads the oldest entry delivered to this consumer but never
// acknowledged. No blocking wait: an empty result means the list is drained.
func (r *RedisAdapter) ReadPending(ctx context.Context) (*domain.PurchaseIntent, error) {
	return r.readOne(ctx, "0", -1)
}

func (r *RedisAdapter) readOne(ctx context.Context, offset string, block time.Duration) (*domain.PurchaseIntent, error) {
	res, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, offset},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", r.stream, err)
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}

	return parseIntent(res[0].Messages[0])
}

func (r *RedisAdapter) Ack(ctx context.Context, streamID string) error {
	return r.client.XAck(ctx, r.stream, r.group, streamID).Err()
}

func parseIntent(msg redis.XMessage) (*domain.PurchaseIntent, error) {
	intent := &domain.PurchaseIntent{StreamID: msg.ID}

	var err error
	if intent.OrderID, err = intentField(msg, "id"); err != nil {
		return nil, err
	}
	if intent.UserID, err = intentField(msg, "userId"); err != nil {
		return nil, err
	}
	if intent.VoucherID, err = intentField(msg, "voucherId"); err != nil {
		return nil, err
	}
	return intent, nil
}

func intentField(msg redis.XMessage, name string) (int64, error) {
	s, ok := msg.Values[name].(string)
	if !ok {
		return 0, fmt.Errorf("stream entry %s: missing field %q", msg.ID, name)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stream entry %s: field %q: %w", msg.ID, name, err)
	}
	return n, nil
}

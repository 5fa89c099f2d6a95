package lock

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/minhngo/voucher-sale/internal/port"
)

const keyPrefix = "lock:"

// tokenPrefix identifies this process instance; the per-acquisition sequence
// distinguishes concurrent goroutines within it. Together they make the owner
// token unique across the fleet, so releasing can never destroy a lock that
// expired and was re-acquired elsewhere.
var (
	tokenPrefix = uuid.New().String() + "-"
	tokenSeq    atomic.Int64
)

// unlockScript compares the stored owner token and deletes only on match, as
// one atomic step.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type Factory struct {
	client *redis.Client
}

func NewFactory(client *redis.Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) NewLock(name string) port.Lock {
	return &redisLock{
		client: f.client,
		key:    keyPrefix + name,
		token:  tokenPrefix + strconv.FormatInt(tokenSeq.Add(1), 10),
	}
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

// TryLock is a single SET NX attempt with TTL. The TTL is a safety net
// against a crashed holder, not the normal release path.
func (l *redisLock) TryLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, ttl).Result()
}

func (l *redisLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

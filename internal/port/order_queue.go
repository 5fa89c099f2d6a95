package port

import (
	"context"
	"time"

	"github.com/minhngo/voucher-sale/internal/core/domain"
)

type OrderQueue interface {
	// ReadNext blocks up to block for one newly delivered intent; returns nil
	// when the wait times out with nothing to do.
	ReadNext(ctx context.Context, block time.Duration) (*domain.PurchaseIntent, error)

	// ReadPending returns the oldest intent delivered to this consumer but not
	// yet acknowledged, or nil once the pending list is drained.
	ReadPending(ctx context.Context) (*domain.PurchaseIntent, error)

	// Ack acknowledges a processed entry by its queue-assigned id.
	Ack(ctx context.Context, streamID string) error
}

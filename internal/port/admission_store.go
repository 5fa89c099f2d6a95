package port

import (
	"context"

	"github.com/minhngo/voucher-sale/internal/core/domain"
)

type AdmissionStore interface {
	// Reserve runs the atomic admission step: stock check, per-user dedup,
	// decrement, dedup registration and enqueue, all server-side as one
	// indivisible operation.
	Reserve(ctx context.Context, voucherID, userID, orderID int64) (domain.AdmissionCode, error)

	// InitStock seeds the store-side stock counter for a voucher.
	InitStock(ctx context.Context, voucherID int64, stock int) error
}

package port

import (
	"context"

	"github.com/minhngo/voucher-sale/internal/core/domain"
)

// VoucherSource serves voucher reads, typically cache-aside in front of the
// database.
type VoucherSource interface {
	GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error)
}

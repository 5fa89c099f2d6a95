package port

import (
	"context"
	"errors"

	"github.com/minhngo/voucher-sale/internal/core/domain"
)

// ErrStockDepleted is returned by CreateOrder when the guarded decrement
// matches no row, i.e. the relational stock column already reached zero.
var ErrStockDepleted = errors.New("stock depleted")

type DatabaseRepository interface {
	// GetVoucher retrieves a voucher by id; nil when absent.
	GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error)

	// ListVouchers returns all vouchers, used to seed store-side stock counters.
	ListVouchers(ctx context.Context) ([]domain.Voucher, error)

	// GetShop retrieves a shop by id; nil when absent.
	GetShop(ctx context.Context, id int64) (*domain.Shop, error)

	// HasOrder reports whether an order row exists for (userID, voucherID).
	HasOrder(ctx context.Context, userID, voucherID int64) (bool, error)

	// CreateOrder persists the order and takes one unit of stock in a single
	// transaction, guarded by stock > 0.
	CreateOrder(ctx context.Context, order domain.VoucherOrder) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/port"
)

var (
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrSaleNotStarted   = errors.New("sale not started")
	ErrSaleEnded        = errors.New("sale ended")
	ErrSoldOut          = errors.New("sold out")
	ErrAlreadyPurchased = errors.New("already purchased")
)

// SeckillService is the synchronous admission path for flash-sale purchases.
type SeckillService struct {
	admission port.AdmissionStore
	vouchers  port.VoucherSource
	ids       port.IDGenerator
	log       *zap.Logger
}

func NewSeckillService(admission port.AdmissionStore, vouchers port.VoucherSource, ids port.IDGenerator, log *zap.Logger) *SeckillService {
	return &SeckillService{
		admission: admission,
		vouchers:  vouchers,
		ids:       ids,
		log:       log,
	}
}

// Purchase admits one purchase attempt and returns the minted order id. On
// success the id is final even though the order row is written asynchronously
// by the intake worker; the durability gap is bounded by its processing
// latency.
func (s *SeckillService) Purchase(ctx context.Context, voucherID, userID int64) (int64, error) {
	voucher, err := s.vouchers.GetVoucher(ctx, voucherID)
	if err != nil {
		return 0, fmt.Errorf("load voucher: %w", err)
	}
	if voucher == nil {
		return 0, ErrVoucherNotFound
	}

	now := time.Now()
	if now.Before(voucher.BeginTime) {
		return 0, ErrSaleNotStarted
	}
	if now.After(voucher.EndTime) {
		return 0, ErrSaleEnded
	}

	orderID, err := s.ids.NextID(ctx, "order")
	if err != nil {
		return 0, fmt.Errorf("mint order id: %w", err)
	}

	code, err := s.admission.Reserve(ctx, voucherID, userID, orderID)
	if err != nil {
		return 0, fmt.Errorf("admission check: %w", err)
	}

	switch code {
	case domain.AdmissionSoldOut:
		return 0, ErrSoldOut
	case domain.AdmissionDuplicate:
		return 0, ErrAlreadyPurchased
	}

	s.log.Info("purchase admitted",
		zap.Int64("orderId", orderID),
		zap.Int64("voucherId", voucherID),
		zap.Int64("userId", userID))
	return orderID, nil
}

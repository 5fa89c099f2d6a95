package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/port"
)

const (
	orderLockTTL  = 10 * time.Second
	handleTimeout = 5 * time.Second
	recoveryPause = 100 * time.Millisecond
)

// IntakeService drains admitted purchase intents from the durable queue and
// materializes them into order rows. Exactly one Run loop is meant to be
// live: admission already settled ordering and dedup globally, so the worker
// only needs the per-user lock and a defensive recheck.
type IntakeService struct {
	queue port.OrderQueue
	db    port.DatabaseRepository
	locks port.LockFactory
	log   *zap.Logger

	readBlock time.Duration
}

func NewIntakeService(queue port.OrderQueue, db port.DatabaseRepository, locks port.LockFactory, log *zap.Logger, readBlock time.Duration) *IntakeService {
	return &IntakeService{
		queue:     queue,
		db:        db,
		locks:     locks,
		log:       log,
		readBlock: readBlock,
	}
}

// Run consumes live entries until ctx is cancelled. A fault while reading or
// handling an entry switches the loop to pending-list recovery instead of
// terminating the worker; business-level rejections never end the loop.
func (s *IntakeService) Run(ctx context.Context) {
	s.log.Info("order intake started")

	// Entries delivered before a crash are still on the pending list; drain
	// them before taking new work.
	s.recoverPending(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("order intake stopped")
			return
		default:
		}

		intent, err := s.queue.ReadNext(ctx, s.readBlock)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.log.Error("read order queue", zap.Error(err))
			s.recoverPending(ctx)
			continue
		}
		if intent == nil {
			// empty wait, not an error
			continue
		}

		if err := s.handle(ctx, intent); err != nil {
			s.log.Error("handle order entry",
				zap.Int64("orderId", intent.OrderID), zap.Error(err))
			s.recoverPending(ctx)
			continue
		}
		if err := s.queue.Ack(ctx, intent.StreamID); err != nil {
			s.log.Error("ack order entry",
				zap.String("streamId", intent.StreamID), zap.Error(err))
			s.recoverPending(ctx)
		}
	}
}

// recoverPending re-reads entries delivered to this consumer but never
// acknowledged, oldest first, until the pending list is empty. Per-entry
// faults are logged and retried on the next pass; as long as the underlying
// fault is transient the list fully drains.
func (s *IntakeService) recoverPending(ctx context.Context) {
	s.log.Info("scanning pending list")
	for {
		if ctx.Err() != nil {
			return
		}

		intent, err := s.queue.ReadPending(ctx)
		if err != nil {
			s.log.Error("read pending list", zap.Error(err))
			time.Sleep(recoveryPause)
			continue
		}
		if intent == nil {
			s.log.Info("pending list drained")
			return
		}

		if err := s.handle(ctx, intent); err != nil {
			s.log.Error("handle pending entry",
				zap.Int64("orderId", intent.OrderID), zap.Error(err))
			time.Sleep(recoveryPause)
			continue
		}
		if err := s.queue.Ack(ctx, intent.StreamID); err != nil {
			s.log.Error("ack pending entry",
				zap.String("streamId", intent.StreamID), zap.Error(err))
			time.Sleep(recoveryPause)
		}
	}
}

// handle materializes one intent. Business rejections (lock busy, row already
// present, depleted stock column) are terminal for the entry and return nil
// so it gets acknowledged; only infrastructure faults propagate.
func (s *IntakeService) handle(ctx context.Context, intent *domain.PurchaseIntent) error {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	lk := s.locks.NewLock("order:" + strconv.FormatInt(intent.UserID, 10))
	ok, err := lk.TryLock(hctx, orderLockTTL)
	if err != nil {
		return fmt.Errorf("acquire order lock: %w", err)
	}
	if !ok {
		// Contention, not a correctness gap: the admission script already
		// enforced one order per user, so skipping is safe.
		s.log.Error("order lock busy, dropping entry",
			zap.Int64("userId", intent.UserID),
			zap.Int64("voucherId", intent.VoucherID))
		return nil
	}
	defer func() {
		if err := lk.Unlock(hctx); err != nil {
			s.log.Error("release order lock",
				zap.Int64("userId", intent.UserID), zap.Error(err))
		}
	}()

	exists, err := s.db.HasOrder(hctx, intent.UserID, intent.VoucherID)
	if err != nil {
		return fmt.Errorf("check existing order: %w", err)
	}
	if exists {
		// redelivery of an already materialized entry
		return nil
	}

	err = s.db.CreateOrder(hctx, domain.VoucherOrder{
		ID:        intent.OrderID,
		UserID:    intent.UserID,
		VoucherID: intent.VoucherID,
		CreatedAt: time.Now(),
	})
	if errors.Is(err, port.ErrStockDepleted) {
		s.log.Error("relational stock depleted, dropping entry",
			zap.Int64("orderId", intent.OrderID),
			zap.Int64("voucherId", intent.VoucherID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order persisted",
		zap.Int64("orderId", intent.OrderID),
		zap.Int64("userId", intent.UserID),
		zap.Int64("voucherId", intent.VoucherID))
	return nil
}

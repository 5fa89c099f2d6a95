package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/minhngo/voucher-sale/internal/cache"
	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/port"
)

const (
	shopKeyPrefix    = "cache:shop:"
	voucherKeyPrefix = "cache:voucher:"

	// shopLockName is the rebuild-lock name prefix for shop keys; the lock
	// layer adds its own namespace on top.
	shopLockName = "shop:"

	shopTTL    = 30 * time.Minute
	voucherTTL = 30 * time.Minute
)

// CatalogService serves read-heavy shop and voucher lookups through the
// cache layer. Shops are hot keys with logical expiration; vouchers are
// plain pass-through reads with null-caching.
type CatalogService struct {
	cache *cache.Client
	db    port.DatabaseRepository
	log   *zap.Logger
}

func NewCatalogService(c *cache.Client, db port.DatabaseRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{cache: c, db: db, log: log}
}

// GetShop returns a pre-warmed shop, possibly stale while a background
// refresh runs. Shops never warmed return nil.
func (s *CatalogService) GetShop(ctx context.Context, id int64) (*domain.Shop, error) {
	return cache.GetLogical(ctx, s.cache, shopKeyPrefix, strconv.FormatInt(id, 10), shopLockName, s.loadShop, shopTTL)
}

// WarmShop loads a shop from the database and caches it with a logical
// expiry, making it eligible for GetShop.
func (s *CatalogService) WarmShop(ctx context.Context, id int64, ttl time.Duration) error {
	shop, err := s.db.GetShop(ctx, id)
	if err != nil {
		return fmt.Errorf("load shop: %w", err)
	}
	if shop == nil {
		return fmt.Errorf("shop %d not found", id)
	}
	return s.cache.SetLogical(ctx, shopKeyPrefix+strconv.FormatInt(id, 10), shop, ttl)
}

// GetVoucher returns a voucher cache-aside; confirmed-absent ids are
// null-cached so they stop hitting the database.
func (s *CatalogService) GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error) {
	return cache.GetThrough(ctx, s.cache, voucherKeyPrefix, strconv.FormatInt(id, 10), s.loadVoucher, voucherTTL)
}

func (s *CatalogService) loadShop(ctx context.Context, id string) (*domain.Shop, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad shop id %q: %w", id, err)
	}
	return s.db.GetShop(ctx, n)
}

func (s *CatalogService) loadVoucher(ctx context.Context, id string) (*domain.Voucher, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad voucher id %q: %w", id, err)
	}
	return s.db.GetVoucher(ctx, n)
}

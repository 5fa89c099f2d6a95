package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/port"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// CreateOrder persists the order row and takes one unit of stock in a single
// transaction. The stock > 0 guard means a second, erroneous decrement can
// never drive the column negative.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.VoucherOrder) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE vouchers
		SET stock = stock - 1, updated_at = NOW()
		WHERE id = ? AND stock > 0`,
		order.VoucherID,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrStockDepleted
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO voucher_orders (id, user_id, voucher_id, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID, order.UserID, order.VoucherID, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) HasOrder(ctx context.Context, userID, voucherID int64) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voucher_orders WHERE user_id = ? AND voucher_id = ?`,
		userID, voucherID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count orders: %w", err)
	}
	return count > 0, nil
}

func (m *MySQLAdapter) GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error) {
	var v domain.Voucher
	err := m.db.QueryRowContext(ctx, `
		SELECT id, shop_id, title, stock, begin_time, end_time
		FROM vouchers WHERE id = ?`, id,
	).Scan(&v.ID, &v.ShopID, &v.Title, &v.Stock, &v.BeginTime, &v.EndTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query voucher: %w", err)
	}
	return &v, nil
}

func (m *MySQLAdapter) ListVouchers(ctx context.Context) ([]domain.Voucher, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, shop_id, title, stock, begin_time, end_time FROM vouchers`)
	if err != nil {
		return nil, fmt.Errorf("query vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []domain.Voucher
	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(&v.ID, &v.ShopID, &v.Title, &v.Stock, &v.BeginTime, &v.EndTime); err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

func (m *MySQLAdapter) GetShop(ctx context.Context, id int64) (*domain.Shop, error) {
	var s domain.Shop
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, address FROM shops WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Address)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shop: %w", err)
	}
	return &s, nil
}

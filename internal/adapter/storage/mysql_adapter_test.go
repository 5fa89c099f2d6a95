package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/minhngo/voucher-sale/internal/core/domain"
	"github.com/minhngo/voucher-sale/internal/port"
)

func getTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/vouchersale?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

// seedVoucher installs a voucher row with a wide-open sale window and removes
// any orders left over from a previous run.
func seedVoucher(t *testing.T, db *sql.DB, voucherID int64, stock int) {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "DELETE FROM voucher_orders WHERE voucher_id = ?", voucherID); err != nil {
		t.Fatalf("clear orders: %v", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM vouchers WHERE id = ?", voucherID); err != nil {
		t.Fatalf("clear voucher: %v", err)
	}

	now := time.Now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO vouchers (id, shop_id, title, stock, begin_time, end_time, created_at, updated_at)
		 VALUES (?, 1, 'test voucher', ?, ?, ?, NOW(), NOW())`,
		voucherID, stock, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("seed voucher: %v", err)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	voucherID := int64(910001)
	seedVoucher(t, db, voucherID, 100)

	order := domain.VoucherOrder{
		ID:        800001,
		UserID:    1,
		VoucherID: voucherID,
		CreatedAt: time.Now(),
	}
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	var stock int
	if err := db.QueryRowContext(ctx, "SELECT stock FROM vouchers WHERE id = ?", voucherID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if stock != 99 {
		t.Errorf("expected stock 99, got %d", stock)
	}

	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM voucher_orders WHERE id = ?", order.ID).Scan(&count)
	if err != nil {
		t.Fatalf("query order: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 order row, got %d", count)
	}
}

func TestCreateOrder_StockDepleted(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	voucherID := int64(910002)
	seedVoucher(t, db, voucherID, 0)

	err := adapter.CreateOrder(ctx, domain.VoucherOrder{
		ID:        800002,
		UserID:    1,
		VoucherID: voucherID,
		CreatedAt: time.Now(),
	})
	if !errors.Is(err, port.ErrStockDepleted) {
		t.Fatalf("expected ErrStockDepleted, got %v", err)
	}

	var count int
	db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM voucher_orders WHERE voucher_id = ?", voucherID).Scan(&count)
	if count != 0 {
		t.Errorf("depleted voucher must not gain order rows, got %d", count)
	}
}

func TestCreateOrder_DuplicateUserRejected(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	voucherID := int64(910003)
	seedVoucher(t, db, voucherID, 100)

	first := domain.VoucherOrder{ID: 800003, UserID: 7, VoucherID: voucherID, CreatedAt: time.Now()}
	if err := adapter.CreateOrder(ctx, first); err != nil {
		t.Fatalf("first CreateOrder failed: %v", err)
	}

	// Same user, same voucher, fresh order id: the unique (user_id, voucher_id)
	// key must reject the insert and roll the stock decrement back.
	second := domain.VoucherOrder{ID: 800004, UserID: 7, VoucherID: voucherID, CreatedAt: time.Now()}
	if err := adapter.CreateOrder(ctx, second); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}

	var stock int
	db.QueryRowContext(ctx, "SELECT stock FROM vouchers WHERE id = ?", voucherID).Scan(&stock)
	if stock != 99 {
		t.Errorf("expected stock 99 after rollback, got %d", stock)
	}
}

func TestHasOrder(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	voucherID := int64(910004)
	seedVoucher(t, db, voucherID, 100)

	exists, err := adapter.HasOrder(ctx, 3, voucherID)
	if err != nil {
		t.Fatalf("HasOrder failed: %v", err)
	}
	if exists {
		t.Error("expected no order before insert")
	}

	order := domain.VoucherOrder{ID: 800005, UserID: 3, VoucherID: voucherID, CreatedAt: time.Now()}
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	exists, err = adapter.HasOrder(ctx, 3, voucherID)
	if err != nil {
		t.Fatalf("HasOrder failed: %v", err)
	}
	if !exists {
		t.Error("expected order after insert")
	}
}

func TestGetVoucher(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	voucherID := int64(910005)
	seedVoucher(t, db, voucherID, 25)

	v, err := adapter.GetVoucher(ctx, voucherID)
	if err != nil {
		t.Fatalf("GetVoucher failed: %v", err)
	}
	if v == nil {
		t.Fatal("expected a voucher")
	}
	if v.ID != voucherID || v.Stock != 25 || v.Title != "test voucher" {
		t.Errorf("unexpected voucher: %+v", v)
	}
}

func TestGetVoucher_NotFound(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	v, err := adapter.GetVoucher(context.Background(), 999999999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil for missing voucher, got %+v", v)
	}
}

func TestGetShop_NotFound(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	s, err := adapter.GetShop(context.Background(), 999999999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil for missing shop, got %+v", s)
	}
}

package domain

import "time"

// VoucherOrder is the durable order row. (UserID, VoucherID) is unique both
// by the admission script's dedup set and by the database constraint.
type VoucherOrder struct {
	ID        int64
	UserID    int64
	VoucherID int64
	CreatedAt time.Time
}

package domain

// PurchaseIntent is one admitted purchase waiting to be materialized into an
// order row. StreamID is the queue-assigned entry id used to acknowledge it.
type PurchaseIntent struct {
	StreamID  string
	OrderID   int64
	UserID    int64
	VoucherID int64
}

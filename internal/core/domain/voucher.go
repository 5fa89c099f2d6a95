package domain

import "time"

// Voucher is a flash-sale voucher: limited stock, sellable only inside the
// [BeginTime, EndTime] window.
type Voucher struct {
	ID        int64     `json:"id"`
	ShopID    int64     `json:"shopId"`
	Title     string    `json:"title"`
	Stock     int       `json:"stock"`
	BeginTime time.Time `json:"beginTime"`
	EndTime   time.Time `json:"endTime"`
}

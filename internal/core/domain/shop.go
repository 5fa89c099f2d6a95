package domain

// Shop is a catalog entry; hot shops are pre-warmed into the cache with a
// logical expiry.
type Shop struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

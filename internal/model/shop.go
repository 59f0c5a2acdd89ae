package model

import "time"

// UnknownShopName labels products and cart items whose shop row no longer exists.
const UnknownShopName = "不明"

type Shop struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// ShopNames indexes shops by ID for display-time lookups.
type ShopNames map[int64]string

func NewShopNames(shops []Shop) ShopNames {
	names := make(ShopNames, len(shops))
	for _, s := range shops {
		names[s.ID] = s.Name
	}
	return names
}

// Resolve returns the shop name for id, or UnknownShopName for a nil or
// dangling reference.
func (n ShopNames) Resolve(id *int64) string {
	if id == nil {
		return UnknownShopName
	}
	if name, ok := n[*id]; ok {
		return name
	}
	return UnknownShopName
}

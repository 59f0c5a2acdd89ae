package model

import "time"

type CartItem struct {
	ID        int64     `json:"id"`
	ProductID *int64    `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Amount    string    `json:"amount"`
	Unit      string    `json:"unit"`
	ShopID    *int64    `json:"shop_id"`
	Stock     int64     `json:"stock"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

// CartOutcome describes what adding a product to the cart did.
type CartOutcome string

const (
	CartAdded    CartOutcome = "added"
	CartReopened CartOutcome = "reopened"
)

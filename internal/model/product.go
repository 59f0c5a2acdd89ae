package model

import "time"

const (
	UnitGram       = "g"
	UnitMilliliter = "ml"
	UnitPiece      = "個"
	UnitPack       = "パック"
	UnitBottle     = "本"
	UnitSheet      = "枚"

	// UnitOther is the chip value that switches the form to a free-text unit.
	UnitOther = "その他"
)

// UnitOptions is the fixed unit vocabulary offered by the product form.
var UnitOptions = []string{UnitGram, UnitMilliliter, UnitPiece, UnitPack, UnitBottle, UnitSheet}

// SizeOptions lists the size chips offered by the form; the empty string means none.
var SizeOptions = []string{"", "SS", "S", "M", "L", "LL", "大", "中", "小"}

// IsStandardUnit reports whether unit belongs to UnitOptions.
func IsStandardUnit(unit string) bool {
	for _, u := range UnitOptions {
		if u == unit {
			return true
		}
	}
	return false
}

// Product is a shopping_list row: one shop's listing of a good.
type Product struct {
	ID             int64     `json:"id"`
	Brand          string    `json:"brand"`
	Name           string    `json:"name"`
	Price          int64     `json:"price"`
	ShopID         *int64    `json:"shop_id"`
	Stock          int64     `json:"stock"`
	JAN            string    `json:"jan"`
	Amount         string    `json:"amount"`
	Unit           string    `json:"unit"`
	Size           string    `json:"size"`
	QuantityInPack int64     `json:"quantity_in_pack"`
	IsVisible      bool      `json:"is_visible"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductInput holds the writable fields of a product.
type ProductInput struct {
	Brand          string
	Name           string
	Price          int64
	ShopID         *int64
	Stock          int64
	JAN            string
	Amount         string
	Unit           string
	Size           string
	QuantityInPack int64
	IsVisible      bool
}

// PackQuantity returns the pack quantity, which only means something for
// the pack unit.
func (p Product) PackQuantity() int64 {
	if p.Unit != UnitPack || p.QuantityInPack < 1 {
		return 1
	}
	return p.QuantityInPack
}

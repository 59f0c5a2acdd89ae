package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/pricing"
)

// Blob is the browser-storage document: one array per storage key.
type Blob struct {
	Shops    []LegacyShop     `json:"shop-master"`
	Products []LegacyProduct  `json:"shopping-list"`
	Cart     []LegacyCartItem `json:"cart-list"`
}

type LegacyShop struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type LegacyProduct struct {
	ID             string  `json:"id"`
	Brand          string  `json:"brand"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	ShopID         string  `json:"shopId"`
	Stock          int64   `json:"stock"`
	JAN            string  `json:"jan"`
	Amount         string  `json:"amount"`
	Unit           string  `json:"unit"`
	Size           string  `json:"size"`
	QuantityInPack int64   `json:"quantityInPack"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`

	// IsVisible is absent in browser-storage blobs, which only hold
	// visible products.
	IsVisible *bool `json:"isVisible,omitempty"`
}

// LegacyCartItem is a product copy with cart bookkeeping added. ID is the
// product's id; CartID is the millisecond timestamp of the add.
type LegacyCartItem struct {
	LegacyProduct
	CartID  int64 `json:"cartId"`
	Checked bool  `json:"checked"`
}

// ImportResult counts what an import wrote.
type ImportResult struct {
	Shops     int `json:"shops"`
	Products  int `json:"products"`
	CartItems int `json:"cart_items"`
	// Skipped counts cart entries dropped as duplicates of an existing
	// (name, shop) entry.
	Skipped int `json:"skipped"`
}

// Decode reads a Blob from r.
func Decode(r io.Reader) (*Blob, error) {
	var b Blob
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &b, nil
}

// Import writes blob into db inside one transaction. Legacy string ids are
// remapped to new rows; references to ids absent from the blob become the
// unknown shop. Products without a visibility flag are imported visible.
// With replace set the
// three tables are emptied first.
func Import(ctx context.Context, db *sql.DB, blob *Blob, replace bool) (*ImportResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if replace {
		for _, table := range []string{"cart_items", "shopping_list", "shops"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return nil, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	res := &ImportResult{}
	now := time.Now().UTC()

	shopIDs := make(map[string]int64, len(blob.Shops))
	for _, s := range blob.Shops {
		if s.Name == "" {
			return nil, fmt.Errorf("shop %q: name is required", s.ID)
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO shops (name, location, created_at) VALUES (?, ?, ?)`,
			s.Name, s.Location, parseTime(s.CreatedAt, now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert shop %q: %w", s.ID, err)
		}
		if shopIDs[s.ID], err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		res.Shops++
	}

	productIDs := make(map[string]int64, len(blob.Products))
	for _, p := range blob.Products {
		in := productInput(p, shopIDs)
		if in.Name == "" {
			return nil, fmt.Errorf("product %q: name is required", p.ID)
		}
		created := parseTime(p.CreatedAt, now)
		result, err := tx.ExecContext(ctx,
			`INSERT INTO shopping_list (brand, name, price, shop_id, stock, jan, amount, unit, size, quantity_in_pack, is_visible, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Brand, in.Name, in.Price, nullID(in.ShopID), in.Stock, in.JAN, in.Amount,
			in.Unit, in.Size, in.QuantityInPack, boolInt(in.IsVisible), created, parseTime(p.UpdatedAt, created),
		)
		if err != nil {
			return nil, fmt.Errorf("insert product %q: %w", p.ID, err)
		}
		if productIDs[p.ID], err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		res.Products++
	}

	for _, c := range blob.Cart {
		in := productInput(c.LegacyProduct, shopIDs)
		if in.Name == "" {
			return nil, fmt.Errorf("cart item %d: name is required", c.CartID)
		}

		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cart_items WHERE name = ? AND shop_id IS ?`,
			in.Name, nullID(in.ShopID),
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check cart item %d: %w", c.CartID, err)
		}
		if exists > 0 {
			res.Skipped++
			continue
		}

		var productID *int64
		if id, ok := productIDs[c.ID]; ok {
			productID = &id
		}
		created := now
		if c.CartID > 0 {
			created = time.UnixMilli(c.CartID).UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cart_items (product_id, name, price, amount, unit, shop_id, stock, checked, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullID(productID), in.Name, in.Price, in.Amount, in.Unit, nullID(in.ShopID),
			in.Stock, boolInt(c.Checked), created,
		)
		if err != nil {
			return nil, fmt.Errorf("insert cart item %d: %w", c.CartID, err)
		}
		res.CartItems++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

func productInput(p LegacyProduct, shopIDs map[string]int64) model.ProductInput {
	in := model.ProductInput{
		Brand:          p.Brand,
		Name:           p.Name,
		Price:          legacyPrice(p.Price),
		Stock:          max(p.Stock, 0),
		JAN:            p.JAN,
		Amount:         p.Amount,
		Unit:           p.Unit,
		Size:           p.Size,
		QuantityInPack: p.QuantityInPack,
		IsVisible:      true,
	}
	if p.IsVisible != nil {
		in.IsVisible = *p.IsVisible
	}
	if id, ok := shopIDs[p.ShopID]; ok {
		in.ShopID = &id
	}
	if in.Unit == "" {
		in.Unit = model.UnitGram
	}
	if in.Unit != model.UnitPack || in.QuantityInPack < 1 {
		in.QuantityInPack = 1
	}
	return in
}

// legacyPrice rounds a stored price to whole yen within [0, pricing.MaxPrice].
func legacyPrice(v float64) int64 {
	v = math.Round(v)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= float64(pricing.MaxPrice):
		return pricing.MaxPrice
	}
	return int64(v)
}

// Export renders rows as a Blob. Numeric ids become strings; cart items
// carry their product id when they have one.
func Export(shops []model.Shop, products []model.Product, cart []model.CartItem) *Blob {
	b := &Blob{
		Shops:    make([]LegacyShop, 0, len(shops)),
		Products: make([]LegacyProduct, 0, len(products)),
		Cart:     make([]LegacyCartItem, 0, len(cart)),
	}

	for _, s := range shops {
		b.Shops = append(b.Shops, LegacyShop{
			ID:        formatID(&s.ID),
			Name:      s.Name,
			Location:  s.Location,
			CreatedAt: formatTime(s.CreatedAt),
		})
	}

	for _, p := range products {
		b.Products = append(b.Products, LegacyProduct{
			ID:             formatID(&p.ID),
			Brand:          p.Brand,
			Name:           p.Name,
			Price:          float64(p.Price),
			ShopID:         formatID(p.ShopID),
			Stock:          p.Stock,
			JAN:            p.JAN,
			Amount:         p.Amount,
			Unit:           p.Unit,
			Size:           p.Size,
			QuantityInPack: p.QuantityInPack,
			CreatedAt:      formatTime(p.CreatedAt),
			UpdatedAt:      formatTime(p.UpdatedAt),
			IsVisible:      &p.IsVisible,
		})
	}

	for _, c := range cart {
		b.Cart = append(b.Cart, LegacyCartItem{
			LegacyProduct: LegacyProduct{
				ID:             formatID(c.ProductID),
				Name:           c.Name,
				Price:          float64(c.Price),
				ShopID:         formatID(c.ShopID),
				Stock:          c.Stock,
				Amount:         c.Amount,
				Unit:           c.Unit,
				QuantityInPack: 1,
			},
			CartID:  c.CreatedAt.UnixMilli(),
			Checked: c.Checked,
		})
	}
	return b
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return fallback
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

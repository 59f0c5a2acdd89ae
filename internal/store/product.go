package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/dukerupert/sokone/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var shopID sql.NullInt64
	var visible int

	err := scanner.Scan(
		&p.ID, &p.Brand, &p.Name, &p.Price, &shopID, &p.Stock, &p.JAN,
		&p.Amount, &p.Unit, &p.Size, &p.QuantityInPack, &visible,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.IsVisible = visible != 0
	if shopID.Valid {
		p.ShopID = &shopID.Int64
	}
	return &p, nil
}

const productCols = `id, brand, name, price, shop_id, stock, jan, amount, unit, size, quantity_in_pack, is_visible, created_at, updated_at`

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

func (s *ProductStore) Create(in model.ProductInput) (*model.Product, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO shopping_list (brand, name, price, shop_id, stock, jan, amount, unit, size, quantity_in_pack, is_visible, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Brand, in.Name, in.Price, nullID(in.ShopID), in.Stock, in.JAN, in.Amount,
		in.Unit, in.Size, in.QuantityInPack, boolInt(in.IsVisible), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) GetByID(id int64) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM shopping_list WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) queryProducts(query string, args ...any) ([]model.Product, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// List returns every product in insertion order.
func (s *ProductStore) List() ([]model.Product, error) {
	return s.queryProducts(`SELECT ` + productCols + ` FROM shopping_list ORDER BY id ASC`)
}

// ListVisible returns products whose visibility flag is set.
func (s *ProductStore) ListVisible() ([]model.Product, error) {
	return s.queryProducts(`SELECT ` + productCols + ` FROM shopping_list WHERE is_visible = 1 ORDER BY id ASC`)
}

// FindByJAN returns products carrying the given barcode.
func (s *ProductStore) FindByJAN(jan string) ([]model.Product, error) {
	return s.queryProducts(`SELECT `+productCols+` FROM shopping_list WHERE jan = ? AND jan <> '' ORDER BY id ASC`, jan)
}

// Update overwrites the writable fields of a product except visibility,
// which SetVisible owns.
func (s *ProductStore) Update(id int64, in model.ProductInput) (*model.Product, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_list SET brand = ?, name = ?, price = ?, shop_id = ?, stock = ?, jan = ?, amount = ?,
		 unit = ?, size = ?, quantity_in_pack = ?, updated_at = ? WHERE id = ?`,
		in.Brand, in.Name, in.Price, nullID(in.ShopID), in.Stock, in.JAN, in.Amount,
		in.Unit, in.Size, in.QuantityInPack, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) SetVisible(id int64, visible bool) (*model.Product, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_list SET is_visible = ?, updated_at = ? WHERE id = ?`,
		boolInt(visible), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set visible: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_list WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// StockChange reports the result of AdjustStock.
type StockChange struct {
	Product  *model.Product `json:"product"`
	Previous int64          `json:"previous"`
	Affected int64          `json:"affected"`
}

// ReachedZero reports whether the adjustment took a positive stock down to zero.
func (c StockChange) ReachedZero() bool {
	return c.Previous > 0 && c.Product != nil && c.Product.Stock == 0
}

// AdjustStock adds delta to the product's stock, clamping at zero, and writes
// the result to every row sharing the product's (name, brand). It returns
// nil when the product does not exist.
func (s *ProductStore) AdjustStock(id, delta int64) (*StockChange, error) {
	p, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	next := max(p.Stock+delta, 0)
	if delta > 0 && p.Stock > math.MaxInt64-delta {
		next = math.MaxInt64
	}
	result, err := s.db.Exec(
		`UPDATE shopping_list SET stock = ?, updated_at = ? WHERE name = ? AND brand = ?`,
		next, time.Now().UTC(), p.Name, p.Brand,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &StockChange{Product: updated, Previous: p.Stock, Affected: affected}, nil
}

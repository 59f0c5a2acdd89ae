package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/sokone/internal/model"
)

var (
	// ErrAlreadyInCart is returned when an unchecked cart row already holds
	// the product's (name, shop).
	ErrAlreadyInCart = errors.New("already in list")

	// ErrConfirmationRequired is returned when clearing the whole cart was
	// requested without confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

type CartStore struct {
	db *sql.DB
}

func NewCartStore(db *sql.DB) *CartStore {
	return &CartStore{db: db}
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

func scanCartItem(scanner interface{ Scan(...any) error }) (*model.CartItem, error) {
	var item model.CartItem
	var productID, shopID sql.NullInt64
	var checked int

	err := scanner.Scan(
		&item.ID, &productID, &item.Name, &item.Price, &item.Amount, &item.Unit,
		&shopID, &item.Stock, &checked, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	if productID.Valid {
		item.ProductID = &productID.Int64
	}
	if shopID.Valid {
		item.ShopID = &shopID.Int64
	}
	return &item, nil
}

const cartCols = `id, product_id, name, price, amount, unit, shop_id, stock, checked, created_at`

func getCartItem(q queryer, id int64) (*model.CartItem, error) {
	row := q.QueryRow(`SELECT `+cartCols+` FROM cart_items WHERE id = ?`, id)
	item, err := scanCartItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

func listCartItems(q queryer, where string, args ...any) ([]model.CartItem, error) {
	rows, err := q.Query(`SELECT `+cartCols+` FROM cart_items `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *CartStore) GetByID(id int64) (*model.CartItem, error) {
	return getCartItem(s.db, id)
}

func (s *CartStore) List() ([]model.CartItem, error) {
	return listCartItems(s.db, "")
}

// FindByKey returns the cart row holding (name, shopID), if any.
func (s *CartStore) FindByKey(name string, shopID *int64) (*model.CartItem, error) {
	row := s.db.QueryRow(
		`SELECT `+cartCols+` FROM cart_items WHERE name = ? AND shop_id IS ? ORDER BY checked ASC, id ASC LIMIT 1`,
		name, nullID(shopID),
	)
	item, err := scanCartItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

// AddProduct puts p on the shopping list. A product whose (name, shop) is
// already listed is not inserted again: a checked row is unchecked and
// reported as model.CartReopened, an unchecked row yields ErrAlreadyInCart.
//
// The lookup and the insert are separate statements, so two concurrent
// callers can both insert.
func (s *CartStore) AddProduct(p model.Product) (*model.CartItem, model.CartOutcome, error) {
	existing, err := s.FindByKey(p.Name, p.ShopID)
	if err != nil {
		return nil, "", err
	}

	if existing != nil {
		if !existing.Checked {
			return existing, "", ErrAlreadyInCart
		}
		if _, err := s.db.Exec(`UPDATE cart_items SET checked = 0 WHERE id = ?`, existing.ID); err != nil {
			return nil, "", fmt.Errorf("reopen cart item: %w", err)
		}
		item, err := s.GetByID(existing.ID)
		if err != nil {
			return nil, "", err
		}
		return item, model.CartReopened, nil
	}

	result, err := s.db.Exec(
		`INSERT INTO cart_items (product_id, name, price, amount, unit, shop_id, stock) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price, p.Amount, p.Unit, nullID(p.ShopID), p.Stock,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert cart item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("last insert id: %w", err)
	}
	item, err := s.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	return item, model.CartAdded, nil
}

func (s *CartStore) ToggleChecked(id int64) (*model.CartItem, error) {
	result, err := s.db.Exec(`UPDATE cart_items SET checked = 1 - checked WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

func (s *CartStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM cart_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (s *CartStore) CountChecked() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cart_items WHERE checked = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count checked: %w", err)
	}
	return count, nil
}

// Clear removes the checked items. With nothing checked it empties the whole
// list when confirmAll is set and returns ErrConfirmationRequired otherwise.
func (s *CartStore) Clear(confirmAll bool) (int64, error) {
	checked, err := s.CountChecked()
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM cart_items WHERE checked = 1`
	if checked == 0 {
		if !confirmAll {
			return 0, ErrConfirmationRequired
		}
		query = `DELETE FROM cart_items`
	}

	result, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// PurchaseResult summarizes a purchase confirmation.
type PurchaseResult struct {
	Purchased int64   `json:"purchased"`
	Restocked []int64 `json:"restocked"`
	Unlinked  []int64 `json:"unlinked"`
}

// Purchase confirms every checked item: the linked product's stock goes up
// by one per item and the checked rows are deleted, all in one transaction.
// An item links to its product_id when that row still exists, otherwise to
// the lowest-id product with the same name and shop. Items with no linked
// product are still removed and reported in Unlinked.
func (s *CartStore) Purchase() (*PurchaseResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer tx.Rollback()

	items, err := listCartItems(tx, `WHERE checked = 1`)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res := &PurchaseResult{Restocked: []int64{}, Unlinked: []int64{}}
	for _, item := range items {
		productID, err := linkedProductID(tx, item)
		if err != nil {
			return nil, err
		}
		if productID == 0 {
			res.Unlinked = append(res.Unlinked, item.ID)
			continue
		}
		if _, err := tx.Exec(
			`UPDATE shopping_list SET stock = stock + 1, updated_at = ? WHERE id = ?`,
			now, productID,
		); err != nil {
			return nil, fmt.Errorf("restock product %d: %w", productID, err)
		}
		res.Restocked = append(res.Restocked, productID)
	}

	result, err := tx.Exec(`DELETE FROM cart_items WHERE checked = 1`)
	if err != nil {
		return nil, fmt.Errorf("delete purchased: %w", err)
	}
	if res.Purchased, err = result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	return res, nil
}

func linkedProductID(q queryer, item model.CartItem) (int64, error) {
	var id int64
	if item.ProductID != nil {
		err := q.QueryRow(`SELECT id FROM shopping_list WHERE id = ?`, *item.ProductID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup linked product: %w", err)
		}
	}

	err := q.QueryRow(
		`SELECT id FROM shopping_list WHERE name = ? AND shop_id IS ? ORDER BY id ASC LIMIT 1`,
		item.Name, nullID(item.ShopID),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup product by name: %w", err)
	}
	return id, nil
}

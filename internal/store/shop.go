package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/sokone/internal/model"
)

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

func scanShop(scanner interface{ Scan(...any) error }) (*model.Shop, error) {
	var s model.Shop
	err := scanner.Scan(&s.ID, &s.Name, &s.Location, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const shopCols = `id, name, location, created_at`

func (s *ShopStore) Create(name, location string) (*model.Shop, error) {
	result, err := s.db.Exec(`INSERT INTO shops (name, location) VALUES (?, ?)`, name, location)
	if err != nil {
		return nil, fmt.Errorf("insert shop: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShopStore) GetByID(id int64) (*model.Shop, error) {
	row := s.db.QueryRow(`SELECT `+shopCols+` FROM shops WHERE id = ?`, id)
	shop, err := scanShop(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

func (s *ShopStore) List() ([]model.Shop, error) {
	rows, err := s.db.Query(`SELECT ` + shopCols + ` FROM shops ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *shop)
	}
	return shops, rows.Err()
}

func (s *ShopStore) Update(id int64, name, location string) (*model.Shop, error) {
	_, err := s.db.Exec(`UPDATE shops SET name = ?, location = ? WHERE id = ?`, name, location, id)
	if err != nil {
		return nil, fmt.Errorf("update shop: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the shop row only. Products and cart items keep their
// shop_id and resolve to model.UnknownShopName afterwards.
func (s *ShopStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shops WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/sokone/internal/database"
	"github.com/dukerupert/sokone/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateShop(t *testing.T, ss *ShopStore, name string) *model.Shop {
	t.Helper()
	shop, err := ss.Create(name, "")
	if err != nil {
		t.Fatalf("create shop %q: %v", name, err)
	}
	return shop
}

func mustCreateProduct(t *testing.T, ps *ProductStore, in model.ProductInput) *model.Product {
	t.Helper()
	if in.Unit == "" {
		in.Unit = model.UnitGram
	}
	if in.QuantityInPack == 0 {
		in.QuantityInPack = 1
	}
	p, err := ps.Create(in)
	if err != nil {
		t.Fatalf("create product %q: %v", in.Name, err)
	}
	return p
}

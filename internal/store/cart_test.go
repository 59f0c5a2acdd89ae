package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/sokone/internal/model"
)

func setupCartTest(t *testing.T) (*CartStore, *ProductStore, *ShopStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewCartStore(db), NewProductStore(db), NewShopStore(db)
}

func TestAddProductInsertsSnapshot(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	shop := mustCreateShop(t, ss, "イオン")
	in := modelInput("卵", 248, &shop.ID)
	in.Amount = "10"
	in.Unit = model.UnitPiece
	in.Stock = 3
	p := mustCreateProduct(t, ps, in)

	item, outcome, err := cs.AddProduct(*p)
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if outcome != model.CartAdded {
		t.Errorf("outcome = %q, want %q", outcome, model.CartAdded)
	}
	if item.Name != "卵" || item.Price != 248 || item.Amount != "10" || item.Unit != model.UnitPiece {
		t.Errorf("item = %+v", item)
	}
	if item.Stock != 3 {
		t.Errorf("stock snapshot = %d, want 3", item.Stock)
	}
	if item.ProductID == nil || *item.ProductID != p.ID {
		t.Errorf("product_id = %v, want %d", item.ProductID, p.ID)
	}
	if item.Checked {
		t.Error("new cart item should be unchecked")
	}
}

func TestAddProductTwiceUnchecked(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	shop := mustCreateShop(t, ss, "イオン")
	p := mustCreateProduct(t, ps, modelInput("卵", 248, &shop.ID))

	cs.AddProduct(*p)
	_, _, err := cs.AddProduct(*p)
	if !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("err = %v, want ErrAlreadyInCart", err)
	}

	items, _ := cs.List()
	if len(items) != 1 {
		t.Errorf("expected 1 cart row, got %d", len(items))
	}
}

func TestAddProductTwiceChecked(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	shop := mustCreateShop(t, ss, "イオン")
	p := mustCreateProduct(t, ps, modelInput("卵", 248, &shop.ID))

	first, _, _ := cs.AddProduct(*p)
	cs.ToggleChecked(first.ID)

	item, outcome, err := cs.AddProduct(*p)
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if outcome != model.CartReopened {
		t.Errorf("outcome = %q, want %q", outcome, model.CartReopened)
	}
	if item.ID != first.ID {
		t.Errorf("id = %d, want existing %d", item.ID, first.ID)
	}
	if item.Checked {
		t.Error("checked flag should be cleared")
	}

	items, _ := cs.List()
	if len(items) != 1 {
		t.Errorf("expected 1 cart row, got %d", len(items))
	}
}

func TestAddProductSameNameDifferentShop(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	a := mustCreateShop(t, ss, "A")
	b := mustCreateShop(t, ss, "B")

	pa := mustCreateProduct(t, ps, modelInput("卵", 248, &a.ID))
	pb := mustCreateProduct(t, ps, modelInput("卵", 228, &b.ID))

	if _, _, err := cs.AddProduct(*pa); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, _, err := cs.AddProduct(*pb); err != nil {
		t.Fatalf("add b: %v", err)
	}

	items, _ := cs.List()
	if len(items) != 2 {
		t.Errorf("expected 2 cart rows, got %d", len(items))
	}
}

func TestAddProductWithoutShopDeduplicates(t *testing.T) {
	cs, ps, _ := setupCartTest(t)
	p := mustCreateProduct(t, ps, modelInput("卵", 248, nil))

	cs.AddProduct(*p)
	if _, _, err := cs.AddProduct(*p); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("err = %v, want ErrAlreadyInCart", err)
	}
}

func TestToggleCartChecked(t *testing.T) {
	cs, ps, _ := setupCartTest(t)
	p := mustCreateProduct(t, ps, modelInput("牛乳", 198, nil))
	item, _, _ := cs.AddProduct(*p)

	checked, err := cs.ToggleChecked(item.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !checked.Checked {
		t.Error("expected checked")
	}

	unchecked, _ := cs.ToggleChecked(item.ID)
	if unchecked.Checked {
		t.Error("expected unchecked")
	}

	got, _ := ps.GetByID(p.ID)
	if got.Stock != 0 {
		t.Errorf("toggling must not touch stock, got %d", got.Stock)
	}

	missing, err := cs.ToggleChecked(9999)
	if err != nil {
		t.Fatalf("toggle missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent item")
	}
}

func TestPurchase(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	shop := mustCreateShop(t, ss, "イオン")

	egg := mustCreateProduct(t, ps, modelInput("卵", 248, &shop.ID))
	milk := mustCreateProduct(t, ps, modelInput("牛乳", 198, &shop.ID))
	bread := mustCreateProduct(t, ps, modelInput("食パン", 158, &shop.ID))

	eggItem, _, _ := cs.AddProduct(*egg)
	milkItem, _, _ := cs.AddProduct(*milk)
	cs.AddProduct(*bread)
	cs.ToggleChecked(eggItem.ID)
	cs.ToggleChecked(milkItem.ID)

	res, err := cs.Purchase()
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Purchased != 2 {
		t.Errorf("purchased = %d, want 2", res.Purchased)
	}
	if len(res.Restocked) != 2 {
		t.Errorf("restocked = %v, want 2 entries", res.Restocked)
	}

	for _, p := range []*model.Product{egg, milk} {
		got, _ := ps.GetByID(p.ID)
		if got.Stock != 1 {
			t.Errorf("%s stock = %d, want 1", p.Name, got.Stock)
		}
	}
	got, _ := ps.GetByID(bread.ID)
	if got.Stock != 0 {
		t.Errorf("unchecked product stock = %d, want 0", got.Stock)
	}

	items, _ := cs.List()
	if len(items) != 1 || items[0].Name != "食パン" {
		t.Errorf("remaining = %+v, want only 食パン", items)
	}
}

func TestPurchaseFallsBackToNameAndShop(t *testing.T) {
	cs, ps, ss := setupCartTest(t)
	shop := mustCreateShop(t, ss, "イオン")

	original := mustCreateProduct(t, ps, modelInput("卵", 248, &shop.ID))
	item, _, _ := cs.AddProduct(*original)
	cs.ToggleChecked(item.ID)

	ps.Delete(original.ID)
	replacement := mustCreateProduct(t, ps, modelInput("卵", 258, &shop.ID))

	res, err := cs.Purchase()
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(res.Restocked) != 1 || res.Restocked[0] != replacement.ID {
		t.Errorf("restocked = %v, want [%d]", res.Restocked, replacement.ID)
	}
	got, _ := ps.GetByID(replacement.ID)
	if got.Stock != 1 {
		t.Errorf("stock = %d, want 1", got.Stock)
	}
}

func TestPurchaseUnlinkedItemStillRemoved(t *testing.T) {
	cs, ps, _ := setupCartTest(t)
	p := mustCreateProduct(t, ps, modelInput("卵", 248, nil))
	item, _, _ := cs.AddProduct(*p)
	cs.ToggleChecked(item.ID)
	ps.Delete(p.ID)

	res, err := cs.Purchase()
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Purchased != 1 {
		t.Errorf("purchased = %d, want 1", res.Purchased)
	}
	if len(res.Unlinked) != 1 || res.Unlinked[0] != item.ID {
		t.Errorf("unlinked = %v, want [%d]", res.Unlinked, item.ID)
	}
}

func TestPurchaseNothingChecked(t *testing.T) {
	cs, ps, _ := setupCartTest(t)
	p := mustCreateProduct(t, ps, modelInput("卵", 248, nil))
	cs.AddProduct(*p)

	res, err := cs.Purchase()
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Purchased != 0 {
		t.Errorf("purchased = %d, want 0", res.Purchased)
	}
	items, _ := cs.List()
	if len(items) != 1 {
		t.Errorf("expected cart untouched, got %d rows", len(items))
	}
}

func TestClearCart(t *testing.T) {
	cs, ps, _ := setupCartTest(t)
	egg := mustCreateProduct(t, ps, modelInput("卵", 248, nil))
	milk := mustCreateProduct(t, ps, modelInput("牛乳", 198, nil))
	eggItem, _, _ := cs.AddProduct(*egg)
	cs.AddProduct(*milk)
	cs.ToggleChecked(eggItem.ID)

	count, err := cs.Clear(false)
	if err != nil {
		t.Fatalf("clear checked: %v", err)
	}
	if count != 1 {
		t.Errorf("cleared = %d, want 1", count)
	}

	if _, err := cs.Clear(false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}
	items, _ := cs.List()
	if len(items) != 1 {
		t.Fatalf("expected 1 item before confirmed clear, got %d", len(items))
	}

	count, err = cs.Clear(true)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if count != 1 {
		t.Errorf("cleared = %d, want 1", count)
	}
	items, _ = cs.List()
	if len(items) != 0 {
		t.Errorf("expected empty cart, got %d", len(items))
	}
}

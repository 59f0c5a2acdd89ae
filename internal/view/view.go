// Package view builds the data each screen renders from loaded rows. The
// builders are pure: handlers load rows from the stores and pass them in.
package view

import (
	"sort"
	"strings"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/pricing"
	"github.com/dukerupert/sokone/internal/search"
)

// noBrand stands in for an empty brand in inventory grouping keys.
const noBrand = "no-brand"

// Home is the price-comparison screen.
type Home struct {
	Search string          `json:"search"`
	Groups []pricing.Group `json:"groups"`
}

// BuildHome filters products by query and groups the matches for unit-price
// comparison. An empty query yields no groups.
func BuildHome(query string, products []model.Product, shops []model.Shop) Home {
	matched := search.Products(query, products)
	groups := pricing.Compare(matched, model.NewShopNames(shops))
	if groups == nil {
		groups = []pricing.Group{}
	}
	return Home{Search: query, Groups: groups}
}

// InventoryItem is one master item on the inventory screen.
type InventoryItem struct {
	model.Product
	ShopName     string `json:"shop_name"`
	PriceWithTax int64  `json:"price_with_tax"`
}

// Inventory is the stock screen.
type Inventory struct {
	Items []InventoryItem `json:"items"`
}

// BuildInventory collapses products sharing (name, brand, amount) into one
// master item, keeping the first row seen.
func BuildInventory(products []model.Product, shops []model.Shop) Inventory {
	names := model.NewShopNames(shops)
	seen := make(map[string]bool)
	items := []InventoryItem{}

	for _, p := range products {
		key := inventoryKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, InventoryItem{
			Product:      p,
			ShopName:     names.Resolve(p.ShopID),
			PriceWithTax: pricing.WithTax(p.Price),
		})
	}
	return Inventory{Items: items}
}

func inventoryKey(p model.Product) string {
	brand := p.Brand
	if brand == "" {
		brand = noBrand
	}
	return p.Name + "\x00" + brand + "\x00" + p.Amount
}

// CartGroup holds the cart items bought at one shop.
type CartGroup struct {
	ShopName string           `json:"shop_name"`
	Items    []model.CartItem `json:"items"`
}

// Cart is the shopping-list screen.
type Cart struct {
	Groups       []CartGroup `json:"groups"`
	Total        int         `json:"total"`
	CheckedCount int         `json:"checked_count"`
	CanPurchase  bool        `json:"can_purchase"`
}

// BuildCart groups cart items by resolved shop name in first-seen order.
func BuildCart(items []model.CartItem, shops []model.Shop) Cart {
	names := model.NewShopNames(shops)
	index := make(map[string]int)
	c := Cart{Groups: []CartGroup{}, Total: len(items)}

	for _, item := range items {
		name := names.Resolve(item.ShopID)
		i, ok := index[name]
		if !ok {
			i = len(c.Groups)
			index[name] = i
			c.Groups = append(c.Groups, CartGroup{ShopName: name})
		}
		c.Groups[i].Items = append(c.Groups[i].Items, item)
		if item.Checked {
			c.CheckedCount++
		}
	}
	c.CanPurchase = c.CheckedCount > 0
	return c
}

// Master view modes.
const (
	MasterByShop    = "shop"
	MasterByProduct = "product"
)

// ShopListing is one product in the by-shop master view.
type ShopListing struct {
	model.Shop
	Items []model.Product `json:"items"`
}

// Variant is one shop's offer of a product in the by-product master view.
type Variant struct {
	model.Product
	ShopName     string `json:"shop_name"`
	PriceWithTax int64  `json:"price_with_tax"`
	Cheapest     bool   `json:"cheapest"`
}

// ProductListing groups the variants of a (name, brand) across shops.
type ProductListing struct {
	Name     string    `json:"name"`
	Brand    string    `json:"brand"`
	Unit     string    `json:"unit"`
	Amount   string    `json:"amount"`
	Variants []Variant `json:"variants"`
}

// Master is the product/shop master screen. Only the slice matching View
// is populated.
type Master struct {
	View     string           `json:"view"`
	Search   string           `json:"search"`
	Shops    []ShopListing    `json:"shops,omitempty"`
	Products []ProductListing `json:"products,omitempty"`
}

// BuildMaster builds the by-shop or by-product master view. Searches are
// plain substring matches: shop name in the by-shop view, product name or
// brand in the by-product view.
func BuildMaster(mode, query string, products []model.Product, shops []model.Shop) Master {
	if mode != MasterByProduct {
		mode = MasterByShop
	}
	m := Master{View: mode, Search: query}
	if mode == MasterByShop {
		m.Shops = byShop(query, products, shops)
	} else {
		m.Products = byProduct(query, products, shops)
	}
	return m
}

func byShop(query string, products []model.Product, shops []model.Shop) []ShopListing {
	known := make(map[int64]int, len(shops))
	listings := make([]ShopListing, 0, len(shops)+1)
	for _, s := range shops {
		known[s.ID] = len(listings)
		listings = append(listings, ShopListing{Shop: s, Items: []model.Product{}})
	}

	unknown := ShopListing{Shop: model.Shop{Name: model.UnknownShopName}, Items: []model.Product{}}
	for _, p := range products {
		if p.ShopID != nil {
			if i, ok := known[*p.ShopID]; ok {
				listings[i].Items = append(listings[i].Items, p)
				continue
			}
		}
		unknown.Items = append(unknown.Items, p)
	}
	if len(unknown.Items) > 0 {
		listings = append(listings, unknown)
	}

	out := []ShopListing{}
	for _, l := range listings {
		if query != "" && len(l.Items) == 0 {
			continue
		}
		if !strings.Contains(l.Name, query) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func byProduct(query string, products []model.Product, shops []model.Shop) []ProductListing {
	names := model.NewShopNames(shops)
	index := make(map[string]int)
	var listings []ProductListing

	for _, p := range products {
		key := p.Name + "\x00" + p.Brand
		i, ok := index[key]
		if !ok {
			i = len(listings)
			index[key] = i
			listings = append(listings, ProductListing{Name: p.Name, Brand: p.Brand, Unit: p.Unit, Amount: p.Amount})
		}
		listings[i].Variants = append(listings[i].Variants, Variant{
			Product:      p,
			ShopName:     names.Resolve(p.ShopID),
			PriceWithTax: pricing.WithTax(p.Price),
		})
	}

	out := []ProductListing{}
	for _, l := range listings {
		if !strings.Contains(l.Name, query) && !strings.Contains(l.Brand, query) {
			continue
		}
		sort.SliceStable(l.Variants, func(a, b int) bool {
			return l.Variants[a].Price < l.Variants[b].Price
		})
		l.Variants[0].Cheapest = true
		out = append(out, l)
	}
	return out
}

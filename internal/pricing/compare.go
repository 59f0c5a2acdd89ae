package pricing

import (
	"sort"

	"github.com/dukerupert/sokone/internal/model"
)

// Offer is one product listing priced for comparison.
type Offer struct {
	model.Product
	UnitPrice
	ShopName string `json:"shop_name"`
	Cheapest bool   `json:"cheapest"`
}

// Group collects the offers sharing a product name.
type Group struct {
	Name   string  `json:"name"`
	Offers []Offer `json:"offers"`
}

// Compare groups products by name in first-seen order, sorts each group
// ascending by unit price and flags the first offer as the cheapest.
func Compare(products []model.Product, shops model.ShopNames) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, p := range products {
		offer := Offer{
			Product:   p,
			UnitPrice: PerUnit(p.Price, p.Amount, p.Unit),
			ShopName:  shops.Resolve(p.ShopID),
		}
		i, ok := index[p.Name]
		if !ok {
			i = len(groups)
			index[p.Name] = i
			groups = append(groups, Group{Name: p.Name})
		}
		groups[i].Offers = append(groups[i].Offers, offer)
	}

	for i := range groups {
		offers := groups[i].Offers
		sort.SliceStable(offers, func(a, b int) bool {
			return offers[a].UnitPrice.Value < offers[b].UnitPrice.Value
		})
		offers[0].Cheapest = true
	}
	return groups
}

package domain

import "github.com/shopspring/decimal"

// VariantDimension is one named option axis of a catalog item together
// with its offered values, e.g. "Size" -> ["S","M","L"]. Order matters:
// the UI renders dimensions in the order they are defined.
type VariantDimension struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// CatalogItem is a sellable product definition. Items are identified
// by name within the catalog.
type CatalogItem struct {
	Name      string             `json:"name"`
	UnitPrice decimal.Decimal    `json:"unit_price"`
	Variants  []VariantDimension `json:"variants"`
}

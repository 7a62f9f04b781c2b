package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// VariantSelection is one chosen product dimension on a cart line,
// e.g. Key "Size", AllowedValues ["S","M","L"], SelectedValue "M".
// SelectedValue is not required to be a member of AllowedValues:
// legacy data with custom input is preserved as-is, never normalized.
type VariantSelection struct {
	Key           string   `json:"key"`
	AllowedValues []string `json:"allowed_values"`
	SelectedValue string   `json:"selected_value"`
}

// CartLine is one entry in a cart or receipt. The type itself does not
// enforce the positive-quantity/positive-total invariants; transient
// invalid states are representable and must be rejected by Validate.
type CartLine struct {
	ID        string             `json:"id"`
	ItemName  string             `json:"item_name"`
	Quantity  int                `json:"quantity"`
	Variants  []VariantSelection `json:"variants"`
	LineTotal decimal.Decimal    `json:"line_total"`
}

// VariantsByKey flattens the variant sequence into a key -> selected
// value map. If a key repeats the last occurrence wins.
func (l CartLine) VariantsByKey() map[string]string {
	m := make(map[string]string, len(l.Variants))
	for _, v := range l.Variants {
		m[v.Key] = v.SelectedValue
	}
	return m
}

// UnitPrice derives the per-unit price from the line total. Returns
// zero for a non-positive quantity instead of dividing by it.
func (l CartLine) UnitPrice() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.LineTotal.Div(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate checks the checkout-eligibility invariant of a single line.
// Checks run in a fixed order: name, then quantity, then price.
func (l CartLine) Validate() error {
	if strings.TrimSpace(l.ItemName) == "" {
		return fmt.Errorf("item name: %w", ErrInvalidName)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("item %q: %w", l.ItemName, ErrInvalidQuantity)
	}
	if !l.LineTotal.IsPositive() {
		return fmt.Errorf("item %q: %w", l.ItemName, ErrInvalidPrice)
	}
	return nil
}

// VariantsEqual reports whether two variant sequences are identical:
// same length, same order, and full field equality per element.
func VariantsEqual(a, b []VariantSelection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || a[i].SelectedValue != b[i].SelectedValue {
			return false
		}
		if len(a[i].AllowedValues) != len(b[i].AllowedValues) {
			return false
		}
		for j := range a[i].AllowedValues {
			if a[i].AllowedValues[j] != b[i].AllowedValues[j] {
				return false
			}
		}
	}
	return true
}

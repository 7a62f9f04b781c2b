// Package cart implements the pure operations on a working cart.
// A cart is a domain.Receipt in PENDING status; every operation takes
// the cart by value and returns a new value, so a rejected operation
// always leaves the caller's cart untouched.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// AddLine validates the new line and either merges it into an existing
// line or appends it. Lines merge when the item name and the full
// variant sequence match exactly: quantity and line total are summed,
// everything else on the existing line is kept.
func AddLine(c domain.Receipt, line domain.CartLine) (domain.Receipt, error) {
	if err := line.Validate(); err != nil {
		return c, err
	}

	lines := c.CloneLines()
	for i := range lines {
		if lines[i].ItemName == line.ItemName && domain.VariantsEqual(lines[i].Variants, line.Variants) {
			lines[i].Quantity += line.Quantity
			lines[i].LineTotal = lines[i].LineTotal.Add(line.LineTotal)
			c.Lines = lines
			return c, nil
		}
	}

	c.Lines = append(lines, line)
	return c, nil
}

// RemoveLine removes exactly the line with the given line's id.
func RemoveLine(c domain.Receipt, line domain.CartLine) (domain.Receipt, error) {
	for i := range c.Lines {
		if c.Lines[i].ID == line.ID {
			lines := make([]domain.CartLine, 0, len(c.Lines)-1)
			lines = append(lines, c.Lines[:i]...)
			lines = append(lines, c.Lines[i+1:]...)
			c.Lines = lines
			return c, nil
		}
	}
	return c, fmt.Errorf("line %q: %w", line.ID, domain.ErrNotFound)
}

// UpdateQuantity sets a new quantity on the identified line and
// recomputes its total from the derived unit price. A line that is
// already invalid (quantity <= 0) cannot be repaired through this
// path; it must be removed and re-added.
func UpdateQuantity(c domain.Receipt, lineID string, quantity int) (domain.Receipt, error) {
	if quantity <= 0 {
		return c, fmt.Errorf("new quantity %d: %w", quantity, domain.ErrInvalidQuantity)
	}

	idx := -1
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return c, fmt.Errorf("line %q: %w", lineID, domain.ErrNotFound)
	}
	if c.Lines[idx].Quantity <= 0 {
		return c, fmt.Errorf("line %q: %w", lineID, domain.ErrCorruptState)
	}

	lines := c.CloneLines()
	unitPrice := lines[idx].UnitPrice()
	lines[idx].Quantity = quantity
	lines[idx].LineTotal = unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	c.Lines = lines
	return c, nil
}

// Clear empties the line sequence. Cart-level fields such as a buyer
// name typed ahead of checkout are preserved.
func Clear(c domain.Receipt) domain.Receipt {
	c.Lines = nil
	return c
}

// Total sums the line totals; zero for an empty cart.
func Total(c domain.Receipt) decimal.Decimal {
	return c.TotalPrice()
}

// ItemCount sums the quantities across lines. This is distinct from
// Receipt.ItemCount, which counts lines.
func ItemCount(c domain.Receipt) int {
	count := 0
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Validate checks that the cart is eligible for checkout: at least one
// line, and every line passing the per-line checks. Lines are scanned
// in order and the first fault wins; within a line the check order is
// name, quantity, price.
func Validate(c domain.Receipt) error {
	if len(c.Lines) == 0 {
		return domain.ErrEmptyCart
	}
	for i, l := range c.Lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return nil
}

// ContainsItem reports whether a line exists with the given item name
// and exactly the given key -> selected value map (same keys, same
// values, not a subset match).
func ContainsItem(c domain.Receipt, itemName string, variantsByKey map[string]string) bool {
	for _, l := range c.Lines {
		if l.ItemName != itemName {
			continue
		}
		got := l.VariantsByKey()
		if len(got) != len(variantsByKey) {
			continue
		}
		match := true
		for k, v := range variantsByKey {
			actual, ok := got[k]
			if !ok || actual != v {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// LineByID looks up a line by its identifier.
func LineByID(c domain.Receipt, lineID string) (domain.CartLine, error) {
	for _, l := range c.Lines {
		if l.ID == lineID {
			return l, nil
		}
	}
	return domain.CartLine{}, fmt.Errorf("line %q: %w", lineID, domain.ErrNotFound)
}

// NewCart returns an empty working cart.
func NewCart() domain.Receipt {
	return domain.Receipt{
		BuyerName:     domain.DefaultBuyerName,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.StatusPending,
	}
}

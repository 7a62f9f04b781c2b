// Package export renders receipt history into tabular CSV reports.
// Four aggregation views are produced, each with a header row and a
// trailing grand-total row, plus a combined document that stitches all
// four together under section markers.
package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

const (
	sectionDetailed           = "=== DETAILED SALES ==="
	sectionByItem             = "=== SALES BY ITEM ==="
	sectionByItemWithVariants = "=== SALES BY ITEM AND VARIANTS ==="
	sectionByItemPerVariant   = "=== SALES BY ITEM PER VARIANT ==="

	noValue        = "N/A"
	grandTotalText = "Grand Total"
	timeLayout     = "2006-01-02 15:04:05"
)

// Detailed renders one row per cart line across all receipts.
func Detailed(receipts []domain.Receipt) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := []string{"Date Time", "Buyer", "Item", "Variants", "Quantity", "Unit Price", "Payment Method", "Total Price"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write detailed header: %w", err)
	}

	for _, r := range receipts {
		buyer := strings.TrimSpace(r.BuyerName)
		if buyer == "" {
			buyer = noValue
		}
		for _, l := range r.Lines {
			row := []string{
				r.Timestamp.Format(timeLayout),
				buyer,
				l.ItemName,
				renderVariants(l.Variants),
				strconv.Itoa(l.Quantity),
				l.UnitPrice().StringFixed(2),
				r.PaymentMethod.String(),
				l.LineTotal.StringFixed(2),
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("write detailed row: %w", err)
			}
		}
	}

	total := grandTotal(receipts)
	if err := w.Write([]string{grandTotalText, "", "", "", "", "", "", total.StringFixed(2)}); err != nil {
		return "", fmt.Errorf("write detailed grand total: %w", err)
	}

	w.Flush()
	return b.String(), w.Error()
}

// ByItem aggregates solely by item name, across all receipts and
// regardless of variant selection.
func ByItem(receipts []domain.Receipt) (string, error) {
	type group struct {
		name     string
		quantity int
		total    decimal.Decimal
	}

	var groups []*group
	index := make(map[string]*group)
	for _, r := range receipts {
		for _, l := range r.Lines {
			g, ok := index[l.ItemName]
			if !ok {
				g = &group{name: l.ItemName, total: decimal.Zero}
				index[l.ItemName] = g
				groups = append(groups, g)
			}
			g.quantity += l.Quantity
			g.total = g.total.Add(l.LineTotal)
		}
	}

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"Item", "Total Quantity", "Total Price"}); err != nil {
		return "", fmt.Errorf("write by-item header: %w", err)
	}

	totalQuantity := 0
	for _, g := range groups {
		totalQuantity += g.quantity
		if err := w.Write([]string{g.name, strconv.Itoa(g.quantity), g.total.StringFixed(2)}); err != nil {
			return "", fmt.Errorf("write by-item row: %w", err)
		}
	}

	total := grandTotal(receipts)
	if err := w.Write([]string{grandTotalText, strconv.Itoa(totalQuantity), total.StringFixed(2)}); err != nil {
		return "", fmt.Errorf("write by-item grand total: %w", err)
	}

	w.Flush()
	return b.String(), w.Error()
}

// ByItemWithVariants aggregates by (item name, full variant sequence):
// the same item with different selections lands in different rows.
func ByItemWithVariants(receipts []domain.Receipt) (string, error) {
	type group struct {
		name     string
		variants []domain.VariantSelection
		quantity int
		total    decimal.Decimal
	}

	var groups []*group
	for _, r := range receipts {
		for _, l := range r.Lines {
			var g *group
			for _, candidate := range groups {
				if candidate.name == l.ItemName && domain.VariantsEqual(candidate.variants, l.Variants) {
					g = candidate
					break
				}
			}
			if g == nil {
				g = &group{name: l.ItemName, variants: l.Variants, total: decimal.Zero}
				groups = append(groups, g)
			}
			g.quantity += l.Quantity
			g.total = g.total.Add(l.LineTotal)
		}
	}

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"Item", "Total Quantity", "Total Price"}); err != nil {
		return "", fmt.Errorf("write by-item-variants header: %w", err)
	}

	totalQuantity := 0
	for _, g := range groups {
		totalQuantity += g.quantity
		label := g.name
		if len(g.variants) > 0 {
			label = fmt.Sprintf("%s (%s)", g.name, renderVariants(g.variants))
		}
		if err := w.Write([]string{label, strconv.Itoa(g.quantity), g.total.StringFixed(2)}); err != nil {
			return "", fmt.Errorf("write by-item-variants row: %w", err)
		}
	}

	total := grandTotal(receipts)
	if err := w.Write([]string{grandTotalText, strconv.Itoa(totalQuantity), total.StringFixed(2)}); err != nil {
		return "", fmt.Errorf("write by-item-variants grand total: %w", err)
	}

	w.Flush()
	return b.String(), w.Error()
}

// ByItemPerVariant aggregates each item along one variant dimension at
// a time: every distinct variant key present on any of the item's
// lines gets its own titled sub-table summing quantity and price per
// selected value. Lines with no variants roll up into a single
// untitled row carrying only the item name.
func ByItemPerVariant(receipts []domain.Receipt) (string, error) {
	type valueGroup struct {
		value    string
		quantity int
		total    decimal.Decimal
	}
	type keyGroup struct {
		key    string
		values []*valueGroup
	}
	type itemGroup struct {
		name string
		keys []*keyGroup
		// plainQuantity/plainTotal aggregate the item's variantless lines.
		plainQuantity int
		plainTotal    decimal.Decimal
		hasPlain      bool
	}

	var items []*itemGroup
	itemIndex := make(map[string]*itemGroup)

	for _, r := range receipts {
		for _, l := range r.Lines {
			item, ok := itemIndex[l.ItemName]
			if !ok {
				item = &itemGroup{name: l.ItemName, plainTotal: decimal.Zero}
				itemIndex[l.ItemName] = item
				items = append(items, item)
			}

			if len(l.Variants) == 0 {
				item.hasPlain = true
				item.plainQuantity += l.Quantity
				item.plainTotal = item.plainTotal.Add(l.LineTotal)
				continue
			}

			for _, v := range l.Variants {
				var kg *keyGroup
				for _, candidate := range item.keys {
					if candidate.key == v.Key {
						kg = candidate
						break
					}
				}
				if kg == nil {
					kg = &keyGroup{key: v.Key}
					item.keys = append(item.keys, kg)
				}

				var vg *valueGroup
				for _, candidate := range kg.values {
					if candidate.value == v.SelectedValue {
						vg = candidate
						break
					}
				}
				if vg == nil {
					vg = &valueGroup{value: v.SelectedValue, total: decimal.Zero}
					kg.values = append(kg.values, vg)
				}
				vg.quantity += l.Quantity
				vg.total = vg.total.Add(l.LineTotal)
			}
		}
	}

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"Item / Variant", "Total Quantity", "Total Price"}); err != nil {
		return "", fmt.Errorf("write per-variant header: %w", err)
	}

	for _, item := range items {
		if item.hasPlain {
			row := []string{item.name, strconv.Itoa(item.plainQuantity), item.plainTotal.StringFixed(2)}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("write per-variant row: %w", err)
			}
		}
		for _, kg := range item.keys {
			title := fmt.Sprintf("%s (by %s)", item.name, kg.key)
			if err := w.Write([]string{title, "", ""}); err != nil {
				return "", fmt.Errorf("write per-variant title: %w", err)
			}
			for _, vg := range kg.values {
				row := []string{
					fmt.Sprintf("%s: %s", kg.key, vg.value),
					strconv.Itoa(vg.quantity),
					vg.total.StringFixed(2),
				}
				if err := w.Write(row); err != nil {
					return "", fmt.Errorf("write per-variant row: %w", err)
				}
			}
		}
	}

	// The grand total comes from the underlying lines, not the
	// sub-tables: a line with two variant keys appears in two
	// sub-tables but must count once.
	totalQuantity := 0
	for _, r := range receipts {
		for _, l := range r.Lines {
			totalQuantity += l.Quantity
		}
	}
	total := grandTotal(receipts)
	if err := w.Write([]string{grandTotalText, strconv.Itoa(totalQuantity), total.StringFixed(2)}); err != nil {
		return "", fmt.Errorf("write per-variant grand total: %w", err)
	}

	w.Flush()
	return b.String(), w.Error()
}

// Combined concatenates all four views under their section markers.
func Combined(receipts []domain.Receipt) (string, error) {
	sections := []struct {
		marker string
		render func([]domain.Receipt) (string, error)
	}{
		{sectionDetailed, Detailed},
		{sectionByItem, ByItem},
		{sectionByItemWithVariants, ByItemWithVariants},
		{sectionByItemPerVariant, ByItemPerVariant},
	}

	var b strings.Builder
	for i, s := range sections {
		view, err := s.render(receipts)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.marker)
		b.WriteString("\n")
		b.WriteString(view)
	}
	return b.String(), nil
}

// renderVariants joins selections as "key: value" pairs.
func renderVariants(variants []domain.VariantSelection) string {
	if len(variants) == 0 {
		return noValue
	}
	pairs := make([]string, len(variants))
	for i, v := range variants {
		pairs[i] = fmt.Sprintf("%s: %s", v.Key, v.SelectedValue)
	}
	return strings.Join(pairs, "; ")
}

func grandTotal(receipts []domain.Receipt) decimal.Decimal {
	total := decimal.Zero
	for _, r := range receipts {
		for _, l := range r.Lines {
			total = total.Add(l.LineTotal)
		}
	}
	return total
}

package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// Storage-boundary record shapes. Enum fields travel as plain strings
// and are parsed back fail-closed: a row with an unknown status or
// payment method is a read fault, not a silent default.

type variantRecord struct {
	Key           string   `json:"key" bson:"key"`
	AllowedValues []string `json:"allowed_values" bson:"allowed_values"`
	SelectedValue string   `json:"selected_value" bson:"selected_value"`
}

type lineRecord struct {
	ID       string          `json:"id" bson:"id"`
	ItemName string          `json:"item_name" bson:"item_name"`
	Quantity int             `json:"quantity" bson:"quantity"`
	Variants []variantRecord `json:"variants,omitempty" bson:"variants,omitempty"`
	// Options is the legacy flat key->value shape written by old
	// installs. Read once and folded into Variants; never written.
	Options   map[string]string `json:"options,omitempty" bson:"options,omitempty"`
	LineTotal string            `json:"line_total" bson:"line_total"`
}

type receiptRecord struct {
	ID            string       `json:"id" bson:"_id"`
	BuyerName     string       `json:"buyer_name" bson:"buyer_name"`
	Lines         []lineRecord `json:"lines" bson:"lines"`
	PaymentMethod string       `json:"payment_method" bson:"payment_method"`
	Status        string       `json:"status" bson:"status"`
	Timestamp     time.Time    `json:"timestamp" bson:"timestamp"`
}

type dimensionRecord struct {
	Name   string   `json:"name" bson:"name"`
	Values []string `json:"values" bson:"values"`
}

type catalogItemRecord struct {
	Name      string            `json:"name" bson:"name"`
	UnitPrice string            `json:"unit_price" bson:"unit_price"`
	Variants  []dimensionRecord `json:"variants,omitempty" bson:"variants,omitempty"`
}

func lineToRecord(l domain.CartLine) lineRecord {
	rec := lineRecord{
		ID:        l.ID,
		ItemName:  l.ItemName,
		Quantity:  l.Quantity,
		LineTotal: l.LineTotal.String(),
	}
	for _, v := range l.Variants {
		rec.Variants = append(rec.Variants, variantRecord(v))
	}
	return rec
}

func lineFromRecord(rec lineRecord) (domain.CartLine, error) {
	total, err := decimal.NewFromString(rec.LineTotal)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("line %q: bad line total %q: %w", rec.ID, rec.LineTotal, domain.ErrCorruptState)
	}
	line := domain.CartLine{
		ID:        rec.ID,
		ItemName:  rec.ItemName,
		Quantity:  rec.Quantity,
		LineTotal: total,
	}
	for _, v := range rec.Variants {
		line.Variants = append(line.Variants, domain.VariantSelection(v))
	}
	if line.Variants == nil && len(rec.Options) > 0 {
		line.Variants = variantsFromLegacyOptions(rec.Options)
	}
	return line, nil
}

// variantsFromLegacyOptions lifts the flat key->value option map into
// the richer variant shape. The map carries no allowed-values list and
// no ordering, so keys are sorted for a deterministic sequence.
func variantsFromLegacyOptions(options map[string]string) []domain.VariantSelection {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	variants := make([]domain.VariantSelection, 0, len(keys))
	for _, k := range keys {
		variants = append(variants, domain.VariantSelection{
			Key:           k,
			SelectedValue: options[k],
		})
	}
	return variants
}

func receiptToRecord(r domain.Receipt) receiptRecord {
	rec := receiptRecord{
		ID:            r.ID,
		BuyerName:     r.BuyerName,
		PaymentMethod: r.PaymentMethod.String(),
		Status:        r.Status.String(),
		Timestamp:     r.Timestamp,
	}
	for _, l := range r.Lines {
		rec.Lines = append(rec.Lines, lineToRecord(l))
	}
	return rec
}

func receiptFromRecord(rec receiptRecord) (domain.Receipt, error) {
	payment, err := domain.ParsePaymentMethod(rec.PaymentMethod)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("receipt %q: %v: %w", rec.ID, err, domain.ErrCorruptState)
	}
	status, err := domain.ParseReceiptStatus(rec.Status)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("receipt %q: %v: %w", rec.ID, err, domain.ErrCorruptState)
	}

	r := domain.Receipt{
		ID:            rec.ID,
		BuyerName:     rec.BuyerName,
		PaymentMethod: payment,
		Status:        status,
		Timestamp:     rec.Timestamp,
	}
	for _, l := range rec.Lines {
		line, err := lineFromRecord(l)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("receipt %q: %w", rec.ID, err)
		}
		r.Lines = append(r.Lines, line)
	}
	return r, nil
}

func catalogItemToRecord(item domain.CatalogItem) catalogItemRecord {
	rec := catalogItemRecord{
		Name:      item.Name,
		UnitPrice: item.UnitPrice.String(),
	}
	for _, d := range item.Variants {
		rec.Variants = append(rec.Variants, dimensionRecord(d))
	}
	return rec
}

func catalogItemFromRecord(rec catalogItemRecord) (domain.CatalogItem, error) {
	price, err := decimal.NewFromString(rec.UnitPrice)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("item %q: bad unit price %q: %w", rec.Name, rec.UnitPrice, err)
	}
	item := domain.CatalogItem{
		Name:      rec.Name,
		UnitPrice: price,
	}
	for _, d := range rec.Variants {
		item.Variants = append(item.Variants, domain.VariantDimension(d))
	}
	return item, nil
}

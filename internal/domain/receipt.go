package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentEWallet    PaymentMethod = "E_WALLET"
	PaymentZelle      PaymentMethod = "ZELLE"
	PaymentVenmo      PaymentMethod = "VENMO"
)

func (p PaymentMethod) String() string {
	return string(p)
}

// ParsePaymentMethod maps a stored string back to a payment method.
// Unknown strings are rejected, never defaulted.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentEWallet, PaymentZelle, PaymentVenmo:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type ReceiptStatus string

const (
	StatusPending      ReceiptStatus = "PENDING"
	StatusCheckedOut   ReceiptStatus = "CHECKED_OUT"
	StatusSaveForLater ReceiptStatus = "SAVE_FOR_LATER"
)

func (s ReceiptStatus) String() string {
	return string(s)
}

// IsCommitted reports whether the status marks a receipt that belongs
// in history rather than a working cart.
func (s ReceiptStatus) IsCommitted() bool {
	return s == StatusCheckedOut || s == StatusSaveForLater
}

// ParseReceiptStatus maps a stored string back to a status.
// Unknown strings are rejected, never defaulted.
func ParseReceiptStatus(s string) (ReceiptStatus, error) {
	switch ReceiptStatus(s) {
	case StatusPending, StatusCheckedOut, StatusSaveForLater:
		return ReceiptStatus(s), nil
	}
	return "", fmt.Errorf("unknown receipt status %q", s)
}

// DefaultBuyerName is the sentinel used when no buyer name was set.
const DefaultBuyerName = "NA"

// Receipt is a transaction record. The working cart is simply a
// Receipt in PENDING status that has not been appended to history;
// once committed it is immutable except through explicit removal.
type Receipt struct {
	ID            string        `json:"id"`
	BuyerName     string        `json:"buyer_name"`
	Lines         []CartLine    `json:"lines"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        ReceiptStatus `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
}

// TotalPrice sums the line totals.
func (r Receipt) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// ItemCount is the number of lines on the receipt, not the summed
// quantity. Cart-level quantity counting lives in the cart package.
func (r Receipt) ItemCount() int {
	return len(r.Lines)
}

// CloneLines returns an independent copy of the line slice so callers
// can derive a new value without sharing backing storage.
func (r Receipt) CloneLines() []CartLine {
	if r.Lines == nil {
		return nil
	}
	lines := make([]CartLine, len(r.Lines))
	copy(lines, r.Lines)
	return lines
}

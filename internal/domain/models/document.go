package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TotalTolerance is the largest accepted difference between a declared total and the sum of
// its lines.
const TotalTolerance = 0.01

// MaxMinorUnits is the largest amount, in minor units, that fits the twelve-digit amount
// fields of the wire protocols.
const MaxMinorUnits = 999_999_999_999

// validAmount reports whether v is a finite, non-negative amount that fits the wire.
func validAmount(v float64) bool {
	return v >= 0 && math.Round(v*100) <= MaxMinorUnits
}

// LineItem is one sold position.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	// VatRate is a percentage ("23", "8", "5", "0") or "zw" for exempt. Empty means the
	// standard rate.
	VatRate string `json:"vatRate,omitempty"`
}

// Amount returns quantity times unit price rounded to grosze.
func (i LineItem) Amount() float64 {
	return Round2(i.Quantity * i.UnitPrice)
}

// PaymentType is how a fiscal document was paid.
type PaymentType string

const (
	PaymentCash     PaymentType = "CASH"
	PaymentCard     PaymentType = "CARD"
	PaymentTransfer PaymentType = "TRANSFER"
	PaymentVoucher  PaymentType = "VOUCHER"
)

// Valid reports whether p is a known payment type.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentVoucher:
		return true
	}
	return false
}

// Receipt is a fiscal sales receipt.
type Receipt struct {
	CorrelationID string      `json:"correlationId"`
	Items         []LineItem  `json:"items"`
	Total         float64     `json:"total"`
	PaymentType   PaymentType `json:"paymentType"`
	HeaderLines   []string    `json:"headerLines,omitempty"`
	FooterLines   []string    `json:"footerLines,omitempty"`
	// EReceiptEmail requests an electronic copy where the printer supports it.
	EReceiptEmail string `json:"eReceiptEmail,omitempty"`
}

// Buyer identifies the invoice recipient.
type Buyer struct {
	TaxID   string `json:"taxId"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Invoice is a fiscal VAT invoice.
type Invoice struct {
	CorrelationID string      `json:"correlationId"`
	Items         []LineItem  `json:"items"`
	Total         float64     `json:"total"`
	PaymentType   PaymentType `json:"paymentType"`
	Buyer         Buyer       `json:"buyer"`
	FooterLines   []string    `json:"footerLines,omitempty"`
}

// ReportType selects the fiscal report.
type ReportType string

const (
	ReportX        ReportType = "X"
	ReportZ        ReportType = "Z"
	ReportPeriodic ReportType = "PERIODIC"
)

// ReportRequest asks for an X, Z or periodic report. A periodic report takes either an
// explicit From/To range or a Month/Year pair.
type ReportRequest struct {
	CorrelationID string     `json:"correlationId"`
	Type          ReportType `json:"type"`
	From          time.Time  `json:"from,omitempty"`
	To            time.Time  `json:"to,omitempty"`
	Month         int        `json:"month,omitempty"`
	Year          int        `json:"year,omitempty"`
}

// Range returns the inclusive day range of a periodic report.
func (r ReportRequest) Range() (time.Time, time.Time, error) {
	if !r.From.IsZero() || !r.To.IsZero() {
		if r.From.IsZero() || r.To.IsZero() {
			return time.Time{}, time.Time{}, Validation("periodic report needs both from and to")
		}
		from, to := truncateDay(r.From), truncateDay(r.To)
		if to.Before(from) {
			return time.Time{}, time.Time{}, Validation("report range ends before it starts (%s > %s)",
				from.Format(time.DateOnly), to.Format(time.DateOnly))
		}
		return from, to, nil
	}
	if r.Month < 1 || r.Month > 12 || r.Year < 2000 {
		return time.Time{}, time.Time{}, Validation("periodic report needs a range or a valid month/year (got %d/%d)", r.Month, r.Year)
	}
	from := time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.Local)
	return from, from.AddDate(0, 1, -1), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StornoRequest corrects a previously printed document.
type StornoRequest struct {
	CorrelationID         string     `json:"correlationId"`
	OriginalReceiptNumber string     `json:"originalReceiptNumber"`
	Reason                string     `json:"reason"`
	Note                  string     `json:"note,omitempty"`
	Amount                float64    `json:"amount"`
	Items                 []LineItem `json:"items,omitempty"`
}

// Validate checks the fields every vendor needs before a storno may be opened.
func (s StornoRequest) Validate() error {
	switch {
	case strings.TrimSpace(s.OriginalReceiptNumber) == "":
		return Validation("storno requires the original receipt number")
	case strings.TrimSpace(s.Reason) == "":
		return Validation("storno requires a reason")
	case !(s.Amount > 0) || !validAmount(s.Amount):
		return Validation("storno amount must be positive and at most %s (got %.2f)", maxAmount(), s.Amount)
	}
	return validateItems(s.Items, false)
}

// Validate checks the receipt and fills a zero Total from its lines.
func (r *Receipt) Validate() error {
	if r.PaymentType == "" {
		r.PaymentType = PaymentCash
	}
	if !r.PaymentType.Valid() {
		return Validation("unknown payment type %q", r.PaymentType)
	}
	if err := validateItems(r.Items, true); err != nil {
		return err
	}
	total, err := checkTotal(r.Items, r.Total)
	if err != nil {
		return err
	}
	r.Total = total
	return nil
}

// Validate checks the invoice and fills a zero Total from its lines.
func (inv *Invoice) Validate() error {
	if inv.PaymentType == "" {
		inv.PaymentType = PaymentTransfer
	}
	if !inv.PaymentType.Valid() {
		return Validation("unknown payment type %q", inv.PaymentType)
	}
	if strings.TrimSpace(inv.Buyer.TaxID) == "" || strings.TrimSpace(inv.Buyer.Name) == "" {
		return Validation("invoice requires buyer tax id and name")
	}
	if err := validateItems(inv.Items, true); err != nil {
		return err
	}
	total, err := checkTotal(inv.Items, inv.Total)
	if err != nil {
		return err
	}
	inv.Total = total
	return nil
}

func validateItems(items []LineItem, required bool) error {
	if required && len(items) == 0 {
		return Validation("document has no items")
	}
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.Name) == "":
			return Validation("item %d has no name", i+1)
		case !(it.Quantity > 0) || math.IsInf(it.Quantity, 0):
			return Validation("item %d (%s): quantity must be positive", i+1, it.Name)
		case !validAmount(it.UnitPrice) || !validAmount(it.Amount()):
			return Validation("item %d (%s): invalid unit price", i+1, it.Name)
		}
	}
	return nil
}

// SumItems returns the sum of line amounts.
func SumItems(items []LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Amount()
	}
	return Round2(sum)
}

func checkTotal(items []LineItem, declared float64) (float64, error) {
	if !validAmount(declared) {
		return 0, Validation("invalid document total %v", declared)
	}
	sum := SumItems(items)
	if !validAmount(sum) {
		return 0, Validation("sum of items exceeds %s", maxAmount())
	}
	if declared == 0 {
		if sum <= 0 {
			return 0, Validation("document total must be positive")
		}
		return sum, nil
	}
	if math.Abs(declared-sum) > TotalTolerance+1e-9 {
		return 0, Validation("total %.2f does not match sum of items %.2f", declared, sum)
	}
	return declared, nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TxnType is a card terminal transaction type.
type TxnType string

const (
	TxnSale    TxnType = "SALE"
	TxnPreAuth TxnType = "PREAUTH"
	TxnCapture TxnType = "CAPTURE"
	TxnVoid    TxnType = "VOID"
	TxnRefund  TxnType = "REFUND"
)

// NeedsOriginal reports whether t references an earlier transaction.
func (t TxnType) NeedsOriginal() bool {
	return t == TxnCapture || t == TxnVoid
}

// PaymentRequest is one card terminal transaction. Amount is in major currency units.
type PaymentRequest struct {
	CorrelationID         string  `json:"correlationId"`
	Type                  TxnType `json:"type"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency,omitempty"`
	Reference             string  `json:"reference,omitempty"`
	OriginalTransactionID string  `json:"originalTransactionId,omitempty"`
	AuthCode              string  `json:"authCode,omitempty"`
}

// Validate rejects requests that must not reach the terminal.
func (p PaymentRequest) Validate() error {
	switch p.Type {
	case TxnSale, TxnPreAuth, TxnCapture, TxnVoid, TxnRefund:
	default:
		return Validation("unknown transaction type %q", p.Type)
	}
	if p.Type.NeedsOriginal() && strings.TrimSpace(p.OriginalTransactionID) == "" {
		return Validation("%s requires the original transaction id", p.Type)
	}
	if !validAmount(p.Amount) {
		return Validation("%s amount must be between 0 and %s (got %v)", p.Type, maxAmount(), p.Amount)
	}
	if p.Type != TxnVoid && p.Amount == 0 {
		return Validation("%s amount must be positive", p.Type)
	}
	return nil
}

func maxAmount() string {
	return fmt.Sprintf("%d.%02d", MaxMinorUnits/100, MaxMinorUnits%100)
}

// MinorUnits converts a major-unit amount to an integral count of minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatMinor renders minor units as the twelve-digit zero-padded string terminals expect.
func FormatMinor(minor int64) string {
	return fmt.Sprintf("%012d", minor)
}

// BatchCloseRequest asks the terminal to settle.
type BatchCloseRequest struct {
	CorrelationID string `json:"correlationId"`
}

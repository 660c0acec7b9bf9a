package models

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"fiscalbridge/pkg/frame"
	"fiscalbridge/pkg/transport"
)

func TestReceiptValidate(t *testing.T) {
	items := []LineItem{
		{Name: "Nocleg", Quantity: 1, UnitPrice: 120.00, VatRate: "8"},
		{Name: "Śniadanie", Quantity: 2, UnitPrice: 35.50, VatRate: "8"},
	}
	tests := []struct {
		name      string
		receipt   Receipt
		wantCode  string
		wantTotal float64
	}{
		{"zero total computed", Receipt{Items: items}, "", 191.00},
		{"matching total", Receipt{Items: items, Total: 191.00, PaymentType: PaymentCard}, "", 191.00},
		{"within tolerance", Receipt{Items: items, Total: 191.01}, "", 191.01},
		{"mismatching total", Receipt{Items: items, Total: 200}, CodeValidation, 0},
		{"no items", Receipt{}, CodeValidation, 0},
		{"bad payment", Receipt{Items: items, PaymentType: "BITCOIN"}, CodeValidation, 0},
		{"zero quantity", Receipt{Items: []LineItem{{Name: "X", UnitPrice: 1}}}, CodeValidation, 0},
		{"negative price", Receipt{Items: []LineItem{{Name: "X", Quantity: 1, UnitPrice: -1}}}, CodeValidation, 0},
		{"NaN total", Receipt{Items: items, Total: math.NaN()}, CodeValidation, 0},
		{"infinite total", Receipt{Items: items, Total: math.Inf(1)}, CodeValidation, 0},
		{"negative total", Receipt{Items: items, Total: -191}, CodeValidation, 0},
		{"infinite quantity", Receipt{Items: []LineItem{{Name: "X", Quantity: math.Inf(1), UnitPrice: 1}}}, CodeValidation, 0},
		{"NaN price", Receipt{Items: []LineItem{{Name: "X", Quantity: 1, UnitPrice: math.NaN()}}}, CodeValidation, 0},
		{"line over twelve digits", Receipt{Items: []LineItem{{Name: "X", Quantity: 1000, UnitPrice: 1e10}}}, CodeValidation, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.receipt
			err := r.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if r.Total != tt.wantTotal {
					t.Errorf("total: got %.2f, want %.2f", r.Total, tt.wantTotal)
				}
				if r.PaymentType == "" {
					t.Error("payment type not defaulted")
				}
				return
			}
			if CodeOf(err) != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestInvoiceValidateRequiresBuyer(t *testing.T) {
	inv := Invoice{Items: []LineItem{{Name: "Sala", Quantity: 1, UnitPrice: 500}}}
	if CodeOf(inv.Validate()) != CodeValidation {
		t.Error("expected validation error without buyer")
	}
	inv.Buyer = Buyer{TaxID: "5260250274", Name: "ACME Sp. z o.o."}
	if err := inv.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.PaymentType != PaymentTransfer {
		t.Errorf("default payment: %s", inv.PaymentType)
	}
}

func TestStornoValidate(t *testing.T) {
	valid := StornoRequest{OriginalReceiptNumber: "12345", Reason: "01", Amount: 10}
	tests := []struct {
		name   string
		mutate func(*StornoRequest)
		ok     bool
	}{
		{"valid", func(*StornoRequest) {}, true},
		{"zero amount", func(s *StornoRequest) { s.Amount = 0 }, false},
		{"negative amount", func(s *StornoRequest) { s.Amount = -5 }, false},
		{"NaN amount", func(s *StornoRequest) { s.Amount = math.NaN() }, false},
		{"infinite amount", func(s *StornoRequest) { s.Amount = math.Inf(1) }, false},
		{"amount over twelve digits", func(s *StornoRequest) { s.Amount = 1e10 }, false},
		{"missing reason", func(s *StornoRequest) { s.Reason = " " }, false},
		{"missing original", func(s *StornoRequest) { s.OriginalReceiptNumber = "" }, false},
		{"bad line", func(s *StornoRequest) { s.Items = []LineItem{{Name: "", Quantity: 1}} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && CodeOf(err) != CodeValidation {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestReportRange(t *testing.T) {
	from, to, err := ReportRequest{Type: ReportPeriodic, Month: 2, Year: 2024}.Range()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.Format(time.DateOnly) != "2024-02-01" || to.Format(time.DateOnly) != "2024-02-29" {
		t.Errorf("got %s..%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	d := func(s string) time.Time {
		v, _ := time.Parse(time.DateOnly, s)
		return v
	}
	if _, _, err := (ReportRequest{From: d("2024-03-10"), To: d("2024-03-01")}).Range(); CodeOf(err) != CodeValidation {
		t.Errorf("reversed range: %v", err)
	}
	if _, _, err := (ReportRequest{From: d("2024-03-10")}).Range(); CodeOf(err) != CodeValidation {
		t.Errorf("open range: %v", err)
	}
	if _, _, err := (ReportRequest{Month: 13, Year: 2024}).Range(); CodeOf(err) != CodeValidation {
		t.Errorf("bad month: %v", err)
	}
}

func TestPaymentValidate(t *testing.T) {
	tests := []struct {
		name string
		req  PaymentRequest
		ok   bool
	}{
		{"sale", PaymentRequest{Type: TxnSale, Amount: 10}, true},
		{"sale without amount", PaymentRequest{Type: TxnSale}, false},
		{"capture without original", PaymentRequest{Type: TxnCapture, Amount: 10}, false},
		{"capture", PaymentRequest{Type: TxnCapture, Amount: 10, OriginalTransactionID: "T1"}, true},
		{"void without original", PaymentRequest{Type: TxnVoid}, false},
		{"void", PaymentRequest{Type: TxnVoid, OriginalTransactionID: "T1"}, true},
		{"void with amount", PaymentRequest{Type: TxnVoid, Amount: 10, OriginalTransactionID: "T1"}, true},
		{"void negative", PaymentRequest{Type: TxnVoid, Amount: -10, OriginalTransactionID: "T1"}, false},
		{"void NaN", PaymentRequest{Type: TxnVoid, Amount: math.NaN(), OriginalTransactionID: "T1"}, false},
		{"sale NaN", PaymentRequest{Type: TxnSale, Amount: math.NaN()}, false},
		{"sale infinite", PaymentRequest{Type: TxnSale, Amount: math.Inf(1)}, false},
		{"refund negative", PaymentRequest{Type: TxnRefund, Amount: -1}, false},
		{"sale at field limit", PaymentRequest{Type: TxnSale, Amount: 9_999_999_999.99}, true},
		{"sale over twelve digits", PaymentRequest{Type: TxnSale, Amount: 1e11}, false},
		{"unknown type", PaymentRequest{Type: "CASHBACK", Amount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok != (err == nil) {
				t.Errorf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}

func TestMinorUnits(t *testing.T) {
	if got := FormatMinor(MinorUnits(195.50)); got != "000000019550" {
		t.Errorf("got %s", got)
	}
	if got := MinorUnits(0.29); got != 29 {
		t.Errorf("float rounding: got %d", got)
	}
}

func TestResultFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"typed", NewError(CodeReceiptNotFound, "no such receipt"), CodeReceiptNotFound},
		{"wrapped typed", fmt.Errorf("storno: %w", NotSupported("elzab", "storno")), CodeNotSupported},
		{"timeout", fmt.Errorf("x failed after 3 attempts: %w", transport.ErrTimeout), CodeTimeout},
		{"refused", transport.ErrClosed, CodeConnection},
		{"checksum", frame.ErrChecksum, CodeConnection},
		{"other", errors.New("printer on fire"), CodeDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ResultFromError(tt.err)
			if r.Success {
				t.Fatal("failure reported as success")
			}
			if r.Error == nil || r.Error.Code != tt.code {
				t.Fatalf("got %+v, want code %s", r.Error, tt.code)
			}
			if r.Error.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

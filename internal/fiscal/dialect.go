package fiscal

import (
	"strings"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/errmap"
	"fiscalbridge/pkg/frame"
	"fiscalbridge/pkg/transport"
)

// Step is one command of a document sequence.
type Step string

const (
	StepReceiptOpen    Step = "receiptOpen"
	StepHeader         Step = "header"
	StepSaleLine       Step = "saleLine"
	StepPayment        Step = "payment"
	StepFooter         Step = "footer"
	StepEReceipt       Step = "eReceipt"
	StepReceiptClose   Step = "receiptClose"
	StepInvoiceOpen    Step = "invoiceOpen"
	StepBuyer          Step = "buyer"
	StepInvoiceLine    Step = "invoiceLine"
	StepInvoiceClose   Step = "invoiceClose"
	StepXReport        Step = "xReport"
	StepZReport        Step = "zReport"
	StepPeriodicReport Step = "periodicReport"
	StepStornoOpen     Step = "stornoOpen"
	StepStornoLine     Step = "stornoLine"
	StepStornoClose    Step = "stornoClose"
	StepStatus         Step = "status"
)

// Dialect is the per-vendor data that parameterizes the generic frame driver.
type Dialect struct {
	Vendor errmap.Vendor
	Codec  frame.Codec
	// Commands maps each supported step to its command byte. A document whose required steps
	// are missing is not supported by the vendor.
	Commands map[Step]byte
	// DateLayout formats periodic report bounds.
	DateLayout string
	Payments   map[models.PaymentType]string
}

// Has reports whether every step is in the command table.
func (d Dialect) Has(steps ...Step) bool {
	for _, s := range steps {
		if _, ok := d.Commands[s]; !ok {
			return false
		}
	}
	return true
}

// Elzab speaks comma-separated Windows-1250 frames and has no storno command.
func Elzab() Dialect {
	return Dialect{
		Vendor: errmap.Elzab,
		Codec:  frame.Codec{Separator: ',', CodePage: transport.CodePageWindows1250},
		Commands: map[Step]byte{
			StepReceiptOpen:    0x10,
			StepSaleLine:       0x11,
			StepPayment:        0x12,
			StepReceiptClose:   0x13,
			StepFooter:         0x14,
			StepInvoiceOpen:    0x20,
			StepBuyer:          0x21,
			StepInvoiceLine:    0x22,
			StepInvoiceClose:   0x23,
			StepXReport:        0x30,
			StepZReport:        0x31,
			StepPeriodicReport: 0x32,
			StepStatus:         0x40,
		},
		DateLayout: "020106",
		Payments: map[models.PaymentType]string{
			models.PaymentCash:     "0",
			models.PaymentCard:     "1",
			models.PaymentTransfer: "2",
			models.PaymentVoucher:  "3",
		},
	}
}

// Novitus speaks semicolon-separated CP852 frames.
func Novitus() Dialect {
	return Dialect{
		Vendor: errmap.Novitus,
		Codec:  frame.Codec{Separator: ';', CodePage: transport.CodePage852},
		Commands: map[Step]byte{
			StepReceiptOpen:    0x60,
			StepHeader:         0x66,
			StepSaleLine:       0x61,
			StepPayment:        0x62,
			StepReceiptClose:   0x63,
			StepFooter:         0x64,
			StepEReceipt:       0x65,
			StepInvoiceOpen:    0x70,
			StepBuyer:          0x71,
			StepInvoiceLine:    0x72,
			StepInvoiceClose:   0x73,
			StepXReport:        0x80,
			StepZReport:        0x81,
			StepPeriodicReport: 0x82,
			StepStornoOpen:     0x90,
			StepStornoLine:     0x91,
			StepStornoClose:    0x92,
			StepStatus:         0xA0,
		},
		DateLayout: "02.01.2006",
		Payments: map[models.PaymentType]string{
			models.PaymentCash:     "G",
			models.PaymentCard:     "K",
			models.PaymentTransfer: "P",
			models.PaymentVoucher:  "B",
		},
	}
}

// Posnet speaks semicolon-separated Windows-1250 frames.
func Posnet() Dialect {
	return Dialect{
		Vendor: errmap.Posnet,
		Codec:  frame.Codec{Separator: ';', CodePage: transport.CodePageWindows1250},
		Commands: map[Step]byte{
			StepReceiptOpen:    'A',
			StepSaleLine:       'B',
			StepPayment:        'C',
			StepReceiptClose:   'D',
			StepFooter:         'E',
			StepEReceipt:       'F',
			StepHeader:         'H',
			StepInvoiceOpen:    'I',
			StepBuyer:          'J',
			StepInvoiceLine:    'K',
			StepInvoiceClose:   'L',
			StepPeriodicReport: 'P',
			StepStornoOpen:     'S',
			StepStornoLine:     'T',
			StepStornoClose:    'U',
			StepXReport:        'X',
			StepZReport:        'Z',
			StepStatus:         '?',
		},
		DateLayout: "2006-01-02",
		Payments: map[models.PaymentType]string{
			models.PaymentCash:     "0",
			models.PaymentCard:     "2",
			models.PaymentTransfer: "8",
			models.PaymentVoucher:  "3",
		},
	}
}

// DialectFor returns the dialect of a fiscal driver name.
func DialectFor(name string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(errmap.Elzab):
		return Elzab(), true
	case string(errmap.Novitus):
		return Novitus(), true
	case string(errmap.Posnet):
		return Posnet(), true
	}
	return Dialect{}, false
}

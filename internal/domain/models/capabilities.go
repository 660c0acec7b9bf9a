package models

// Operation names a caller-facing fiscal operation.
type Operation string

const (
	OpReceipt        Operation = "printReceipt"
	OpInvoice        Operation = "printInvoice"
	OpXReport        Operation = "printXReport"
	OpZReport        Operation = "printZReport"
	OpPeriodicReport Operation = "printPeriodicReport"
	OpStorno         Operation = "printStorno"
	OpStatus         Operation = "status"
)

// Capabilities is the fixed set of operations a driver implements.
type Capabilities struct {
	Name           string `json:"name"`
	Receipt        bool   `json:"printReceipt"`
	Invoice        bool   `json:"printInvoice"`
	XReport        bool   `json:"printXReport"`
	ZReport        bool   `json:"printZReport"`
	PeriodicReport bool   `json:"printPeriodicReport"`
	Storno         bool   `json:"printStorno"`
	Status         bool   `json:"status"`
}

// Supports reports whether op is implemented.
func (c Capabilities) Supports(op Operation) bool {
	switch op {
	case OpReceipt:
		return c.Receipt
	case OpInvoice:
		return c.Invoice
	case OpXReport:
		return c.XReport
	case OpZReport:
		return c.ZReport
	case OpPeriodicReport:
		return c.PeriodicReport
	case OpStorno:
		return c.Storno
	case OpStatus:
		return c.Status
	}
	return false
}

// ReportOperation maps a report type to its operation.
func ReportOperation(t ReportType) Operation {
	switch t {
	case ReportZ:
		return OpZReport
	case ReportPeriodic:
		return OpPeriodicReport
	}
	return OpXReport
}

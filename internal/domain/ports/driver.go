package ports

import (
	"context"

	"fiscalbridge/internal/domain/models"
)

// FiscalDriver prints fiscal documents on one printer. Every call is one complete device
// transaction; a driver holds no connection between calls.
//
// Operations missing from Capabilities return a NOT_SUPPORTED error without touching the
// device. Errors are *models.Error or wrap transport sentinels.
type FiscalDriver interface {
	Capabilities() models.Capabilities
	PrintReceipt(ctx context.Context, r models.Receipt) (models.Result, error)
	PrintInvoice(ctx context.Context, inv models.Invoice) (models.Result, error)
	PrintReport(ctx context.Context, req models.ReportRequest) (models.Result, error)
	PrintStorno(ctx context.Context, req models.StornoRequest) (models.Result, error)
	Status(ctx context.Context) (models.Result, error)
}

// Terminal creates sessions with a card payment terminal.
type Terminal interface {
	Name() string
	// Initialize connects and handshakes. The returned Session is owned by the caller, who
	// must Disconnect it.
	Initialize(ctx context.Context) (Session, error)
}

// Session is an initialized terminal connection. It serves one request at a time.
type Session interface {
	Process(ctx context.Context, req models.PaymentRequest) (models.Result, error)
	CloseBatch(ctx context.Context, req models.BatchCloseRequest) (models.Result, error)
	Status(ctx context.Context) (models.Result, error)
	// Cancel asks the terminal to abort the transaction in progress. It is best effort.
	Cancel(ctx context.Context) error
	Disconnect() error
}

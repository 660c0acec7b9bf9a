package terminal

import (
	"context"
	"fmt"
	"sync"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
)

// Mock is a terminal that approves everything and keeps batch totals in memory.
type Mock struct {
	log ports.Logger
}

// NewMock returns a mock terminal. A nil logger discards output.
func NewMock(log ports.Logger) *Mock {
	if log == nil {
		log = ports.NopLogger{}
	}
	return &Mock{log: log.WithField("terminal", "mock")}
}

var _ ports.Terminal = (*Mock)(nil)

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Initialize(ctx context.Context) (ports.Session, error) {
	return &mockSession{log: m.log, open: true}, nil
}

type mockSession struct {
	log ports.Logger

	mu     sync.Mutex
	open   bool
	seq    int
	batch  int
	count  int
	credit int64
	debit  int64
}

func (s *mockSession) Process(ctx context.Context, req models.PaymentRequest) (models.Result, error) {
	if err := req.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return models.ResultFromError(ErrSessionClosed), ErrSessionClosed
	}
	s.seq++
	s.count++
	switch req.Type {
	case models.TxnRefund, models.TxnVoid:
		s.debit += models.MinorUnits(req.Amount)
	case models.TxnSale, models.TxnCapture:
		s.credit += models.MinorUnits(req.Amount)
	}
	details := &models.PaymentDetails{
		TransactionID: fmt.Sprintf("MOCK-TXN-%06d", s.seq),
		AuthCode:      fmt.Sprintf("%06d", 100000+s.seq),
		CardNumber:    "************0000",
		CardType:      "MOCK",
		ResponseCode:  "00",
	}
	res := models.Ok(details.TransactionID)
	res.Payment = details
	s.log.Info("%s %.2f approved, transaction %s", req.Type, req.Amount, details.TransactionID)
	return res, nil
}

func (s *mockSession) CloseBatch(ctx context.Context, req models.BatchCloseRequest) (models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return models.ResultFromError(ErrSessionClosed), ErrSessionClosed
	}
	s.batch++
	batch := &models.BatchDetails{
		BatchNumber:      fmt.Sprintf("%04d", s.batch),
		TransactionCount: s.count,
		CreditTotal:      float64(s.credit) / 100,
		DebitTotal:       float64(s.debit) / 100,
	}
	s.count, s.credit, s.debit = 0, 0, 0
	res := models.Ok(batch.BatchNumber)
	res.Batch = batch
	return res, nil
}

func (s *mockSession) Status(ctx context.Context) (models.Result, error) {
	return models.Result{Success: true, Status: "mock ready"}, nil
}

func (s *mockSession) Cancel(ctx context.Context) error { return nil }

func (s *mockSession) Disconnect() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

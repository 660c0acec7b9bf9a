package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/fiscal"
	"fiscalbridge/internal/profile"
	"fiscalbridge/internal/terminal"
	"fiscalbridge/pkg/retry"
	"fiscalbridge/pkg/transport"
)

type countingDialer struct {
	dials atomic.Int32
}

func (c *countingDialer) Dial(context.Context) (transport.Conn, error) {
	c.dials.Add(1)
	return nil, transport.ErrConnection
}

func (c *countingDialer) Address() string { return "nowhere:0" }

func sampleReceipt() models.Receipt {
	return models.Receipt{
		Items: []models.LineItem{
			{Name: "Nocleg", Quantity: 1, UnitPrice: 120.00, VatRate: "8"},
			{Name: "Śniadanie", Quantity: 2, UnitPrice: 35.50, VatRate: "8"},
		},
		PaymentType: models.PaymentCash,
	}
}

func TestReceiptEndToEnd(t *testing.T) {
	t.Run("mock printer", func(t *testing.T) {
		svc := New(Deps{Enabled: true, Fiscal: fiscal.NewMock(profile.Profile{}, nil)})
		res := svc.PrintReceipt(context.Background(), sampleReceipt())
		if !res.Success {
			t.Fatalf("receipt failed: %+v", res.Error)
		}
		if !strings.HasPrefix(res.DocumentNumber, fiscal.MockVendor+"-") {
			t.Errorf("document number = %q, want %s prefix", res.DocumentNumber, fiscal.MockVendor)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		dialer := &countingDialer{}
		drv := fiscal.New(fiscal.Config{Dialect: fiscal.Posnet(), Dialer: dialer, Retry: retry.Policy{MaxAttempts: 3}})
		svc := New(Deps{Enabled: false, Fiscal: drv})
		res := svc.PrintReceipt(context.Background(), sampleReceipt())
		if !res.Success || res.DocumentNumber != "" || res.Error != nil {
			t.Errorf("result = %+v, want bare success", res)
		}
		if n := dialer.dials.Load(); n != 0 {
			t.Errorf("dialed %d times while disabled", n)
		}
	})
}

func TestDisabledSkipsEveryFiscalOperation(t *testing.T) {
	svc := New(Deps{Enabled: false, FiscalErr: models.NewError(models.CodeConfig, "POSNET_HOST missing")})
	ctx := context.Background()
	results := map[string]models.Result{
		"receipt":  svc.PrintReceipt(ctx, models.Receipt{}),
		"invoice":  svc.PrintInvoice(ctx, models.Invoice{}),
		"x":        svc.PrintXReport(ctx, ""),
		"z":        svc.PrintZReport(ctx, ""),
		"periodic": svc.PrintPeriodicReport(ctx, models.ReportRequest{}),
		"storno":   svc.PrintStorno(ctx, models.StornoRequest{}),
	}
	for name, res := range results {
		if !res.Success || res.DocumentNumber != "" {
			t.Errorf("%s: result = %+v, want bare success", name, res)
		}
	}
}

func TestConfigErrorSurfaces(t *testing.T) {
	svc := New(Deps{Enabled: true, FiscalErr: models.NewError(models.CodeConfig, "POSNET_HOST missing")})
	res := svc.PrintXReport(context.Background(), "")
	if res.Success || res.Error.Code != models.CodeConfig {
		t.Fatalf("result = %+v, want %s", res, models.CodeConfig)
	}

	res = svc.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 10})
	if res.Success || res.Error.Code != models.CodeConfig {
		t.Errorf("terminal result = %+v, want %s", res, models.CodeConfig)
	}
}

type limitedDriver struct {
	ports.FiscalDriver
	calls atomic.Int32
}

func (d *limitedDriver) Capabilities() models.Capabilities {
	return models.Capabilities{Name: "ELZAB", Receipt: true, XReport: true}
}

func (d *limitedDriver) PrintInvoice(context.Context, models.Invoice) (models.Result, error) {
	d.calls.Add(1)
	return models.Ok("1"), nil
}

func (d *limitedDriver) PrintStorno(context.Context, models.StornoRequest) (models.Result, error) {
	d.calls.Add(1)
	return models.Ok("1"), nil
}

func TestUnsupportedOperationNeverReachesDriver(t *testing.T) {
	drv := &limitedDriver{}
	svc := New(Deps{Enabled: true, Fiscal: drv})
	ctx := context.Background()
	for _, res := range []models.Result{
		svc.PrintInvoice(ctx, models.Invoice{}),
		svc.PrintStorno(ctx, models.StornoRequest{}),
	} {
		if res.Success || res.Error.Code != models.CodeNotSupported {
			t.Errorf("result = %+v, want %s", res, models.CodeNotSupported)
		}
	}
	if n := drv.calls.Load(); n != 0 {
		t.Errorf("driver called %d times", n)
	}
}

type recordingDriver struct {
	*fiscal.Mock
	mu  sync.Mutex
	ids []string
}

func (d *recordingDriver) PrintReport(ctx context.Context, req models.ReportRequest) (models.Result, error) {
	d.mu.Lock()
	d.ids = append(d.ids, req.CorrelationID)
	d.mu.Unlock()
	return d.Mock.PrintReport(ctx, req)
}

func TestLongReportsSignalBusy(t *testing.T) {
	svc := New(Deps{Enabled: true, Fiscal: fiscal.NewMock(profile.Profile{}, nil)})
	var events []bool
	svc.OnLongOperation(func(busy bool) { events = append(events, busy) })
	ctx := context.Background()

	svc.PrintXReport(ctx, "")
	svc.PrintReceipt(ctx, sampleReceipt())
	if len(events) != 0 {
		t.Fatalf("short operations signalled busy: %v", events)
	}
	svc.PrintZReport(ctx, "")
	svc.PrintPeriodicReport(ctx, models.ReportRequest{Month: 3, Year: 2024})
	if want := []bool{true, false, true, false}; fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestCorrelationIDs(t *testing.T) {
	drv := &recordingDriver{Mock: fiscal.NewMock(profile.Profile{}, nil)}
	svc := New(Deps{Enabled: true, Fiscal: drv})
	svc.PrintXReport(context.Background(), "")
	svc.PrintXReport(context.Background(), "night-audit-7")
	if len(drv.ids) != 2 {
		t.Fatalf("calls = %d", len(drv.ids))
	}
	if drv.ids[0] == "" || len(drv.ids[0]) != 36 {
		t.Errorf("generated id = %q, want a uuid", drv.ids[0])
	}
	if drv.ids[1] != "night-audit-7" {
		t.Errorf("caller id = %q was replaced", drv.ids[1])
	}
}

type fakeTerminal struct {
	inits atomic.Int32
	fail  error
	last  *fakeSession
}

func (f *fakeTerminal) Name() string { return "fake" }

func (f *fakeTerminal) Initialize(context.Context) (ports.Session, error) {
	f.inits.Add(1)
	f.last = &fakeSession{fail: f.fail}
	return f.last, nil
}

type fakeSession struct {
	fail         error
	processed    int
	disconnected bool
	cancelled    bool
}

func (s *fakeSession) Process(_ context.Context, req models.PaymentRequest) (models.Result, error) {
	s.processed++
	if s.fail != nil {
		return models.ResultFromError(s.fail), s.fail
	}
	res := models.Ok("T1")
	res.Payment = &models.PaymentDetails{TransactionID: "T1", ResponseCode: string(req.Type)}
	return res, nil
}

func (s *fakeSession) CloseBatch(context.Context, models.BatchCloseRequest) (models.Result, error) {
	return models.Ok("0001"), nil
}

func (s *fakeSession) Status(context.Context) (models.Result, error) {
	return models.Result{Success: true, Status: "ready"}, nil
}

func (s *fakeSession) Cancel(context.Context) error {
	s.cancelled = true
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.disconnected = true
	return nil
}

func TestTerminalSessionReused(t *testing.T) {
	term := &fakeTerminal{}
	svc := New(Deps{Terminal: term})
	ctx := context.Background()

	tests := []struct {
		name string
		call func(models.PaymentRequest) models.Result
		want models.TxnType
	}{
		{"sale", func(r models.PaymentRequest) models.Result { return svc.ProcessPayment(ctx, r) }, models.TxnSale},
		{"preauth", func(r models.PaymentRequest) models.Result { return svc.ProcessPreAuth(ctx, r) }, models.TxnPreAuth},
		{"capture", func(r models.PaymentRequest) models.Result { return svc.ProcessCapture(ctx, r) }, models.TxnCapture},
		{"void", func(r models.PaymentRequest) models.Result { return svc.ProcessVoid(ctx, r) }, models.TxnVoid},
		{"refund", func(r models.PaymentRequest) models.Result { return svc.ProcessRefund(ctx, r) }, models.TxnRefund},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.call(models.PaymentRequest{Amount: 50, OriginalTransactionID: "T0"})
			if !res.Success || res.Payment.ResponseCode != string(tt.want) {
				t.Errorf("result = %+v, want %s", res, tt.want)
			}
		})
	}
	if n := term.inits.Load(); n != 1 {
		t.Errorf("initialized %d times, want 1", n)
	}
	if res := svc.CloseBatch(ctx, models.BatchCloseRequest{}); !res.Success {
		t.Errorf("close batch: %+v", res.Error)
	}
	if res := svc.CancelPayment(ctx); !res.Success || !term.last.cancelled {
		t.Errorf("cancel: %+v", res)
	}
	if err := svc.Close(); err != nil || !term.last.disconnected {
		t.Errorf("Close: %v, disconnected=%v", err, term.last.disconnected)
	}
}

func TestTerminalFaultDropsSession(t *testing.T) {
	term := &fakeTerminal{fail: terminal.ErrSessionClosed}
	svc := New(Deps{Terminal: term})
	ctx := context.Background()

	res := svc.ProcessPayment(ctx, models.PaymentRequest{Amount: 10})
	if res.Success || res.Error.Code != models.CodeConnection {
		t.Fatalf("result = %+v, want %s", res, models.CodeConnection)
	}
	first := term.last
	if !first.disconnected {
		t.Error("broken session kept")
	}
	svc.ProcessPayment(ctx, models.PaymentRequest{Amount: 10})
	if n := term.inits.Load(); n != 2 {
		t.Errorf("initialized %d times, want 2", n)
	}
	if first.processed != 1 {
		t.Errorf("transaction repeated on the broken session: %d", first.processed)
	}
}

func TestAbandonedRequestDropsSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline", fmt.Errorf("SALE: %w", context.DeadlineExceeded)},
		{"cancelled", fmt.Errorf("SALE: %w", context.Canceled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := &fakeTerminal{fail: tt.err}
			svc := New(Deps{Terminal: term})

			res := svc.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 10})
			if res.Success {
				t.Fatal("abandoned payment reported success")
			}
			first := term.last
			if !first.disconnected {
				t.Error("abandoned session kept")
			}

			term.fail = nil
			res = svc.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 10})
			if !res.Success {
				t.Errorf("next payment = %+v, want success on a fresh session", res.Error)
			}
			if n := term.inits.Load(); n != 2 {
				t.Errorf("initialized %d times, want 2", n)
			}
			if first.processed != 1 {
				t.Errorf("abandoned session reused: %d transactions", first.processed)
			}
		})
	}
}

func TestDeclineKeepsSession(t *testing.T) {
	term := &fakeTerminal{fail: models.NewError("51", "Brak środków")}
	svc := New(Deps{Terminal: term})
	res := svc.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 10})
	if res.Success || res.Error.Code != "51" {
		t.Fatalf("result = %+v", res)
	}
	if term.last.disconnected {
		t.Error("session dropped after a decline")
	}
}

func TestPaymentValidatedBeforeSession(t *testing.T) {
	term := &fakeTerminal{}
	svc := New(Deps{Terminal: term})
	res := svc.ProcessRefund(context.Background(), models.PaymentRequest{Amount: 0})
	if res.Success || res.Error.Code != models.CodeValidation {
		t.Fatalf("result = %+v", res)
	}
	if term.inits.Load() != 0 {
		t.Error("terminal initialized for an invalid request")
	}
}

func TestCancelWithoutSession(t *testing.T) {
	svc := New(Deps{Terminal: terminal.NewMock(nil)})
	if res := svc.CancelPayment(context.Background()); res.Success {
		t.Error("cancel succeeded without a session")
	}
}

func TestMockTerminalBatch(t *testing.T) {
	svc := New(Deps{Terminal: terminal.NewMock(nil)})
	ctx := context.Background()
	svc.ProcessPayment(ctx, models.PaymentRequest{Amount: 100})
	svc.ProcessRefund(ctx, models.PaymentRequest{Amount: 25})
	res := svc.CloseBatch(ctx, models.BatchCloseRequest{})
	if !res.Success || res.Batch == nil {
		t.Fatalf("close batch: %+v", res)
	}
	if res.Batch.TransactionCount != 2 || res.Batch.CreditTotal != 100 || res.Batch.DebitTotal != 25 {
		t.Errorf("batch = %+v", res.Batch)
	}
}

func TestContextCancelledBeforePrint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := New(Deps{Enabled: true, Fiscal: fiscal.NewMock(profile.Profile{}, nil)})
	res := svc.PrintReceipt(ctx, sampleReceipt())
	if res.Success || res.Error.Code != models.CodeConnection {
		t.Errorf("result = %+v", res)
	}
}

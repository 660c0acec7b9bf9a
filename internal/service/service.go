// Package service is the caller-facing facade over one fiscal printer and one card
// terminal. It applies the fiscal enabled switch, assigns correlation ids and serializes
// requests per device.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/pkg/transport"
)

// Deps are the devices behind a Service. A nil device with a non-nil error makes every
// call on that device fail with the error, which is how an unusable configuration
// surfaces to callers.
type Deps struct {
	// Enabled false turns every fiscal operation into an immediate success without a
	// document number. Terminal operations are unaffected.
	Enabled     bool
	Fiscal      ports.FiscalDriver
	FiscalErr   error
	Terminal    ports.Terminal
	TerminalErr error
	Logger      ports.Logger
}

// Service dispatches operations to the configured devices.
type Service struct {
	deps Deps
	log  ports.Logger

	printer sync.Mutex // one document at a time
	pos     sync.Mutex // one terminal request at a time

	sessMu  sync.Mutex
	session ports.Session

	busy func(bool)
}

// New returns a Service over deps.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = ports.NopLogger{}
	}
	if deps.Fiscal == nil && deps.FiscalErr == nil {
		deps.FiscalErr = models.NewError(models.CodeConfig, "no fiscal driver configured")
	}
	if deps.Terminal == nil && deps.TerminalErr == nil {
		deps.TerminalErr = models.NewError(models.CodeConfig, "no payment terminal configured")
	}
	return &Service{deps: deps, log: log.WithField("component", "service")}
}

// Enabled reports whether fiscal printing reaches the printer.
func (s *Service) Enabled() bool { return s.deps.Enabled }

// Capabilities returns the fiscal driver capabilities, or the zero value when no driver is
// usable.
func (s *Service) Capabilities() models.Capabilities {
	if s.deps.Fiscal == nil {
		return models.Capabilities{}
	}
	return s.deps.Fiscal.Capabilities()
}

// OnLongOperation registers fn to run with true before and false after a Z or periodic
// report, which hold the printer for a long time. It must be called before the Service is
// used.
func (s *Service) OnLongOperation(fn func(busy bool)) { s.busy = fn }

func correlate(id *string) string {
	if *id == "" {
		*id = uuid.NewString()
	}
	return *id
}

// fiscal gates op and runs call with the printer held.
func (s *Service) fiscal(ctx context.Context, op models.Operation, id string, call func(ports.FiscalDriver) (models.Result, error)) models.Result {
	log := s.log.WithField("op", op).WithField("correlationId", id)
	if !s.deps.Enabled {
		log.Debug("fiscal printing disabled, skipped")
		return models.Result{Success: true}
	}
	if s.deps.Fiscal == nil {
		log.Error("%v", s.deps.FiscalErr)
		return models.ResultFromError(s.deps.FiscalErr)
	}
	caps := s.deps.Fiscal.Capabilities()
	if !caps.Supports(op) {
		return models.ResultFromError(models.NotSupported(caps.Name, string(op)))
	}
	if err := ctx.Err(); err != nil {
		return models.ResultFromError(err)
	}

	s.printer.Lock()
	defer s.printer.Unlock()
	if s.busy != nil && (op == models.OpZReport || op == models.OpPeriodicReport) {
		s.busy(true)
		defer s.busy(false)
	}
	res, err := call(s.deps.Fiscal)
	if err != nil && res.Success {
		res = models.ResultFromError(err)
	}
	return res
}

// PrintReceipt prints a sales receipt.
func (s *Service) PrintReceipt(ctx context.Context, r models.Receipt) models.Result {
	id := correlate(&r.CorrelationID)
	return s.fiscal(ctx, models.OpReceipt, id, func(d ports.FiscalDriver) (models.Result, error) {
		return d.PrintReceipt(ctx, r)
	})
}

// PrintInvoice prints a VAT invoice where the printer supports one.
func (s *Service) PrintInvoice(ctx context.Context, inv models.Invoice) models.Result {
	id := correlate(&inv.CorrelationID)
	return s.fiscal(ctx, models.OpInvoice, id, func(d ports.FiscalDriver) (models.Result, error) {
		return d.PrintInvoice(ctx, inv)
	})
}

// PrintXReport prints the informational X report.
func (s *Service) PrintXReport(ctx context.Context, correlationID string) models.Result {
	return s.PrintReport(ctx, models.ReportRequest{CorrelationID: correlationID, Type: models.ReportX})
}

// PrintZReport prints the daily closure. It is never repeated after being sent.
func (s *Service) PrintZReport(ctx context.Context, correlationID string) models.Result {
	return s.PrintReport(ctx, models.ReportRequest{CorrelationID: correlationID, Type: models.ReportZ})
}

// PrintPeriodicReport prints the report for a date range or a month.
func (s *Service) PrintPeriodicReport(ctx context.Context, req models.ReportRequest) models.Result {
	req.Type = models.ReportPeriodic
	return s.PrintReport(ctx, req)
}

// PrintReport prints the report req.Type selects.
func (s *Service) PrintReport(ctx context.Context, req models.ReportRequest) models.Result {
	if req.Type == "" {
		req.Type = models.ReportX
	}
	id := correlate(&req.CorrelationID)
	return s.fiscal(ctx, models.ReportOperation(req.Type), id, func(d ports.FiscalDriver) (models.Result, error) {
		return d.PrintReport(ctx, req)
	})
}

// PrintStorno prints a correction of an earlier document.
func (s *Service) PrintStorno(ctx context.Context, req models.StornoRequest) models.Result {
	id := correlate(&req.CorrelationID)
	return s.fiscal(ctx, models.OpStorno, id, func(d ports.FiscalDriver) (models.Result, error) {
		return d.PrintStorno(ctx, req)
	})
}

// FiscalStatus queries the printer.
func (s *Service) FiscalStatus(ctx context.Context) models.Result {
	return s.fiscal(ctx, models.OpStatus, "", func(d ports.FiscalDriver) (models.Result, error) {
		return d.Status(ctx)
	})
}

// ProcessPayment runs a sale.
func (s *Service) ProcessPayment(ctx context.Context, req models.PaymentRequest) models.Result {
	req.Type = models.TxnSale
	return s.Process(ctx, req)
}

// ProcessPreAuth reserves an amount on the card.
func (s *Service) ProcessPreAuth(ctx context.Context, req models.PaymentRequest) models.Result {
	req.Type = models.TxnPreAuth
	return s.Process(ctx, req)
}

// ProcessCapture completes a pre-authorization.
func (s *Service) ProcessCapture(ctx context.Context, req models.PaymentRequest) models.Result {
	req.Type = models.TxnCapture
	return s.Process(ctx, req)
}

// ProcessVoid reverses an earlier transaction.
func (s *Service) ProcessVoid(ctx context.Context, req models.PaymentRequest) models.Result {
	req.Type = models.TxnVoid
	return s.Process(ctx, req)
}

// ProcessRefund returns money to the card.
func (s *Service) ProcessRefund(ctx context.Context, req models.PaymentRequest) models.Result {
	req.Type = models.TxnRefund
	return s.Process(ctx, req)
}

// Process runs the transaction req.Type names.
func (s *Service) Process(ctx context.Context, req models.PaymentRequest) models.Result {
	correlate(&req.CorrelationID)
	if err := req.Validate(); err != nil {
		return models.ResultFromError(err)
	}
	return s.withSession(ctx, func(sess ports.Session) (models.Result, error) {
		return sess.Process(ctx, req)
	})
}

// CloseBatch settles the terminal.
func (s *Service) CloseBatch(ctx context.Context, req models.BatchCloseRequest) models.Result {
	correlate(&req.CorrelationID)
	return s.withSession(ctx, func(sess ports.Session) (models.Result, error) {
		return sess.CloseBatch(ctx, req)
	})
}

// TerminalStatus queries the terminal.
func (s *Service) TerminalStatus(ctx context.Context) models.Result {
	return s.withSession(ctx, func(sess ports.Session) (models.Result, error) {
		return sess.Status(ctx)
	})
}

// CancelPayment asks the terminal to abort the transaction in progress. It does not wait
// for that transaction and has nothing to cancel without an open session.
func (s *Service) CancelPayment(ctx context.Context) models.Result {
	s.sessMu.Lock()
	sess := s.session
	s.sessMu.Unlock()
	if sess == nil {
		return models.ResultFromError(models.NewError(models.CodeValidation, "no terminal session to cancel"))
	}
	if err := sess.Cancel(ctx); err != nil {
		return models.ResultFromError(err)
	}
	return models.Result{Success: true}
}

// withSession runs call on the terminal session, initializing one first when needed. A
// transport fault or an abandoned request drops the session so that the next request starts
// a fresh one. The request itself is never repeated.
func (s *Service) withSession(ctx context.Context, call func(ports.Session) (models.Result, error)) models.Result {
	if s.deps.Terminal == nil {
		return models.ResultFromError(s.deps.TerminalErr)
	}
	s.pos.Lock()
	defer s.pos.Unlock()

	sess, err := s.openSession(ctx)
	if err != nil {
		return models.ResultFromError(err)
	}
	res, err := call(sess)
	if err != nil {
		if res.Success {
			res = models.ResultFromError(err)
		}
		if sessionLost(err) {
			s.log.Warn("terminal session dropped: %v", err)
			s.dropSession(sess)
		}
	}
	return res
}

// sessionLost reports whether err leaves the session unusable. A request abandoned on
// cancellation or deadline closes the connection under it.
func sessionLost(err error) bool {
	return transport.IsTransient(err) ||
		errors.Is(err, transport.ErrConnection) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) openSession(ctx context.Context) (ports.Session, error) {
	s.sessMu.Lock()
	sess := s.session
	s.sessMu.Unlock()
	if sess != nil {
		return sess, nil
	}
	sess, err := s.deps.Terminal.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	s.sessMu.Lock()
	s.session = sess
	s.sessMu.Unlock()
	return sess, nil
}

func (s *Service) dropSession(sess ports.Session) {
	s.sessMu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.sessMu.Unlock()
	if err := sess.Disconnect(); err != nil {
		s.log.Debug("disconnect: %v", err)
	}
}

// Close disconnects the terminal session, if any.
func (s *Service) Close() error {
	s.sessMu.Lock()
	sess := s.session
	s.session = nil
	s.sessMu.Unlock()
	if sess == nil {
		return nil
	}
	return sess.Disconnect()
}

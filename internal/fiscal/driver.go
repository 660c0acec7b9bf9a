// Package fiscal drives Polish fiscal printers. One generic driver runs the document
// sequences for every byte-checksum dialect; the dialects differ only in data.
package fiscal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/errmap"
	"fiscalbridge/internal/profile"
	"fiscalbridge/pkg/frame"
	"fiscalbridge/pkg/retry"
	"fiscalbridge/pkg/transport"
)

const defaultTimeout = 5 * time.Second

// Config wires a Driver to one printer.
type Config struct {
	Dialect Dialect
	Dialer  transport.Dialer
	// Timeout bounds each request/response exchange.
	Timeout time.Duration
	// Profile limits the printed content. A zero profile selects the vendor default.
	Profile profile.Profile
	Retry   retry.Policy
	Logger  ports.Logger
}

// Driver implements ports.FiscalDriver over a framed connection. It keeps no connection
// between calls and is safe to share, although a printer serves one document at a time.
type Driver struct {
	cfg  Config
	log  ports.Logger
	caps models.Capabilities
}

// New returns a driver for cfg.
func New(cfg Config) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Profile.Model == "" {
		cfg.Profile = profile.NewRegistry().Get(string(cfg.Dialect.Vendor))
	}
	log := cfg.Logger
	if log == nil {
		log = ports.NopLogger{}
	}
	log = log.WithField("vendor", cfg.Dialect.Vendor)
	d := cfg.Dialect
	return &Driver{
		cfg: cfg,
		log: log,
		caps: models.Capabilities{
			Name:           string(d.Vendor),
			Receipt:        d.Has(StepReceiptOpen, StepSaleLine, StepPayment, StepReceiptClose),
			Invoice:        d.Has(StepInvoiceOpen, StepBuyer, StepInvoiceLine, StepInvoiceClose) && cfg.Profile.SupportsInvoice,
			XReport:        d.Has(StepXReport),
			ZReport:        d.Has(StepZReport),
			PeriodicReport: d.Has(StepPeriodicReport),
			Storno:         d.Has(StepStornoOpen, StepStornoClose),
			Status:         d.Has(StepStatus),
		},
	}
}

var _ ports.FiscalDriver = (*Driver)(nil)

// Capabilities returns the operations the dialect and profile allow.
func (d *Driver) Capabilities() models.Capabilities { return d.caps }

// Profile returns the effective capability profile.
func (d *Driver) Profile() profile.Profile { return d.cfg.Profile }

// PrintReceipt prints r: Open, header lines, one SaleLine per item, Payment, footer lines,
// the optional e-receipt address and Close. The sequence is replayed from Open on transport
// faults until Close has been sent.
func (d *Driver) PrintReceipt(ctx context.Context, r models.Receipt) (models.Result, error) {
	if err := d.check(models.OpReceipt); err != nil {
		return models.ResultFromError(err), err
	}
	if err := r.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	p := d.cfg.Profile
	warnings := p.Validate(r.Items, r.HeaderLines, r.FooterLines)
	header := p.FitLines(r.HeaderLines, p.MaxHeaderLines)
	if len(header) > 0 && !d.cfg.Dialect.Has(StepHeader) {
		warnings = append(warnings, fmt.Sprintf("%s: header lines are not supported, skipped", d.caps.Name))
		header = nil
	}
	footer := p.FitLines(r.FooterLines, p.MaxFooterLines)
	email := r.EReceiptEmail
	if email != "" && (!p.SupportsEReceipt || !d.cfg.Dialect.Has(StepEReceipt)) {
		warnings = append(warnings, fmt.Sprintf("model %s: e-receipt is not supported, printing paper only", p.Model))
		email = ""
	}
	pay := d.cfg.Dialect.Payments[r.PaymentType]

	return d.run(ctx, models.OpReceipt, r.CorrelationID, warnings, func(ctx context.Context, s *session, commit *retry.Commit) (string, error) {
		if _, err := s.send(ctx, StepReceiptOpen, strconv.Itoa(len(r.Items))); err != nil {
			return "", err
		}
		for _, l := range header {
			if _, err := s.send(ctx, StepHeader, l); err != nil {
				return "", err
			}
		}
		for _, it := range r.Items {
			if _, err := s.send(ctx, StepSaleLine, s.line(it)...); err != nil {
				return "", err
			}
		}
		if _, err := s.send(ctx, StepPayment, pay, formatAmount(r.Total)); err != nil {
			return "", err
		}
		for _, l := range footer {
			if _, err := s.send(ctx, StepFooter, l); err != nil {
				return "", err
			}
		}
		if email != "" {
			if _, err := s.send(ctx, StepEReceipt, email); err != nil {
				return "", err
			}
		}
		commit.Mark(string(StepReceiptClose))
		resp, err := s.send(ctx, StepReceiptClose, formatAmount(r.Total))
		return resp.DocumentNumber, err
	})
}

// PrintInvoice prints inv: Open, Buyer, one InvoiceLine per item, footer lines and Close.
func (d *Driver) PrintInvoice(ctx context.Context, inv models.Invoice) (models.Result, error) {
	if err := d.check(models.OpInvoice); err != nil {
		return models.ResultFromError(err), err
	}
	if err := inv.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	p := d.cfg.Profile
	warnings := p.Validate(inv.Items, nil, inv.FooterLines)
	footer := p.FitLines(inv.FooterLines, p.MaxFooterLines)
	pay := d.cfg.Dialect.Payments[inv.PaymentType]

	return d.run(ctx, models.OpInvoice, inv.CorrelationID, warnings, func(ctx context.Context, s *session, commit *retry.Commit) (string, error) {
		if _, err := s.send(ctx, StepInvoiceOpen, strconv.Itoa(len(inv.Items))); err != nil {
			return "", err
		}
		b := inv.Buyer
		if _, err := s.send(ctx, StepBuyer, b.TaxID, p.Truncate(b.Name, profile.Line), p.Truncate(b.Address, profile.Line)); err != nil {
			return "", err
		}
		for _, it := range inv.Items {
			if _, err := s.send(ctx, StepInvoiceLine, s.line(it)...); err != nil {
				return "", err
			}
		}
		for _, l := range footer {
			if _, err := s.send(ctx, StepFooter, l); err != nil {
				return "", err
			}
		}
		commit.Mark(string(StepInvoiceClose))
		resp, err := s.send(ctx, StepInvoiceClose, pay, formatAmount(inv.Total))
		return resp.DocumentNumber, err
	})
}

// PrintReport prints an X, Z or periodic report. A Z report closes the fiscal day, so it is
// never repeated once its command has been written.
func (d *Driver) PrintReport(ctx context.Context, req models.ReportRequest) (models.Result, error) {
	op := models.ReportOperation(req.Type)
	if err := d.check(op); err != nil {
		return models.ResultFromError(err), err
	}
	var (
		step   Step
		fields []string
	)
	switch req.Type {
	case models.ReportX, "":
		step = StepXReport
	case models.ReportZ:
		step = StepZReport
	case models.ReportPeriodic:
		from, to, err := req.Range()
		if err != nil {
			return models.ResultFromError(err), err
		}
		step = StepPeriodicReport
		fields = []string{from.Format(d.cfg.Dialect.DateLayout), to.Format(d.cfg.Dialect.DateLayout)}
	default:
		err := models.Validation("unknown report type %q", req.Type)
		return models.ResultFromError(err), err
	}

	return d.run(ctx, op, req.CorrelationID, nil, func(ctx context.Context, s *session, commit *retry.Commit) (string, error) {
		if step == StepZReport {
			commit.Mark(string(step))
		}
		resp, err := s.send(ctx, step, fields...)
		return resp.DocumentNumber, err
	})
}

// PrintStorno voids a previously printed document. Requests missing the original number,
// the reason or a positive amount are rejected before any connection is made.
func (d *Driver) PrintStorno(ctx context.Context, req models.StornoRequest) (models.Result, error) {
	if err := d.check(models.OpStorno); err != nil {
		return models.ResultFromError(err), err
	}
	if err := req.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	p := d.cfg.Profile
	warnings := p.Validate(req.Items, nil, nil)
	if len(req.Items) > 0 && !d.cfg.Dialect.Has(StepStornoLine) {
		warnings = append(warnings, fmt.Sprintf("%s: storno lines are not supported, voiding by amount", d.caps.Name))
	}

	return d.run(ctx, models.OpStorno, req.CorrelationID, warnings, func(ctx context.Context, s *session, commit *retry.Commit) (string, error) {
		resp, err := s.exchange(ctx, StepStornoOpen, req.OriginalReceiptNumber, p.Truncate(req.Reason, profile.Line),
			p.Truncate(req.Note, profile.Line))
		if err != nil {
			return "", err
		}
		if !resp.Success {
			return "", errmap.TranslateStornoOpen(d.cfg.Dialect.Vendor, resp.Code)
		}
		if d.cfg.Dialect.Has(StepStornoLine) {
			for _, it := range req.Items {
				if _, err := s.send(ctx, StepStornoLine, s.line(it)...); err != nil {
					return "", err
				}
			}
		}
		commit.Mark(string(StepStornoClose))
		resp, err = s.send(ctx, StepStornoClose, formatAmount(req.Amount))
		return resp.DocumentNumber, err
	})
}

// Status queries the printer state. The raw reply fields are returned in Result.Status.
func (d *Driver) Status(ctx context.Context) (models.Result, error) {
	if err := d.check(models.OpStatus); err != nil {
		return models.ResultFromError(err), err
	}
	var status string
	res, err := d.run(ctx, models.OpStatus, "", nil, func(ctx context.Context, s *session, _ *retry.Commit) (string, error) {
		resp, err := s.send(ctx, StepStatus)
		status = strings.Join(resp.Fields, string(d.cfg.Dialect.Codec.Separator))
		return "", err
	})
	if err == nil {
		res.Status = status
	}
	return res, err
}

func (d *Driver) check(op models.Operation) error {
	if !d.caps.Supports(op) {
		return models.NotSupported(d.caps.Name, string(op))
	}
	if d.cfg.Dialer == nil {
		return models.NewError(models.CodeConfig, "%s: no connection configured", d.caps.Name)
	}
	return nil
}

// run executes one document as an atomic sequence over a fresh connection per attempt.
func (d *Driver) run(ctx context.Context, op models.Operation, correlationID string, warnings []string,
	body func(ctx context.Context, s *session, commit *retry.Commit) (string, error)) (models.Result, error) {
	log := d.log.WithField("op", op)
	if correlationID != "" {
		log = log.WithField("correlationId", correlationID)
	}
	for _, w := range warnings {
		log.Warn("%s", w)
	}

	policy := d.cfg.Retry
	if policy.Logf == nil {
		policy.Logf = log.Warn
	}
	seq := retry.AtomicRetryableSequence[string]{
		Name:   string(op),
		Policy: policy,
		Run: func(ctx context.Context, commit *retry.Commit) (string, error) {
			return transport.WithConnection(ctx, d.cfg.Dialer, func(conn transport.Conn) (string, error) {
				s := &session{
					d:    d,
					conn: conn,
					log:  log,
					ex: transport.Exchanger{
						Timeout:  d.cfg.Timeout,
						Complete: frame.Complete,
						Logf:     log.Debug,
					},
				}
				return body(ctx, s, commit)
			})
		},
	}
	start := time.Now()
	doc, err := seq.Execute(ctx)
	if err != nil {
		res := models.ResultFromError(err)
		res.Warnings = warnings
		log.Error("%s failed after %s: %s %s", op, time.Since(start).Round(time.Millisecond), res.Error.Code, res.Error.Message)
		return res, err
	}
	res := models.Ok(doc)
	res.Warnings = warnings
	log.Info("%s done in %s, document %q", op, time.Since(start).Round(time.Millisecond), doc)
	return res, nil
}

// session is one open connection during one attempt.
type session struct {
	d    *Driver
	conn transport.Conn
	ex   transport.Exchanger
	log  ports.Logger
}

// exchange sends one step and returns the classified reply. A damaged reply is reported as a
// connection fault so the attempt can be repeated.
func (s *session) exchange(ctx context.Context, step Step, fields ...string) (frame.Response, error) {
	dialect := s.d.cfg.Dialect
	cmd, ok := dialect.Commands[step]
	if !ok {
		return frame.Response{}, models.NotSupported(s.d.caps.Name, string(step))
	}
	clean := make([]string, len(fields))
	for i, f := range fields {
		clean[i] = sanitize(f, dialect.Codec.Separator)
	}
	req, err := dialect.Codec.Encode(cmd, clean)
	if err != nil {
		return frame.Response{}, models.Validation("%s: %v", step, err)
	}
	raw, err := s.ex.Do(ctx, s.conn, req)
	if err != nil {
		return frame.Response{}, fmt.Errorf("%s: %w", step, err)
	}
	f, err := dialect.Codec.Decode(frame.Trim(raw))
	if err != nil {
		return frame.Response{}, fmt.Errorf("%s: %w: %w", step, transport.ErrConnection, err)
	}
	return frame.Classify(f.Fields), nil
}

// send is exchange with device-reported failures translated into errors.
func (s *session) send(ctx context.Context, step Step, fields ...string) (frame.Response, error) {
	resp, err := s.exchange(ctx, step, fields...)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		e := errmap.Translate(s.d.cfg.Dialect.Vendor, resp.Code)
		s.log.Warn("%s rejected: %s %s", step, e.Code, e.Message)
		return resp, e
	}
	return resp, nil
}

func (s *session) line(it models.LineItem) []string {
	return []string{
		s.d.cfg.Profile.Truncate(it.Name, profile.ItemName),
		formatQuantity(it.Quantity),
		formatAmount(it.UnitPrice),
		vatGroup(it.VatRate),
		formatAmount(it.Amount()),
	}
}

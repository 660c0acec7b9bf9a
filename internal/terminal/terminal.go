// Package terminal talks to card payment terminals. A Terminal is a factory for sessions;
// the caller owns each Session from Initialize until Disconnect.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/errmap"
	"fiscalbridge/pkg/retry"
	"fiscalbridge/pkg/transport"
	"fiscalbridge/pkg/xmlmsg"
)

const (
	defaultTimeout        = 5 * time.Second
	defaultPaymentTimeout = 2 * time.Minute
	// DefaultCurrency is the ISO 4217 numeric code of the Polish zloty.
	DefaultCurrency = "985"
)

var approvalCodes = map[string]bool{"00": true, "000": true, "APPROVED": true}

// ErrSessionClosed is returned by a Session after Disconnect or a lost connection.
var ErrSessionClosed = fmt.Errorf("%w: terminal session closed, initialize again", transport.ErrConnection)

// Config wires a Terminal to one device.
type Config struct {
	Vendor errmap.Vendor
	Dialer transport.Dialer
	// Timeout bounds initialization, status, batch close and cancel exchanges.
	Timeout time.Duration
	// PaymentTimeout bounds a transaction, which waits for the cardholder.
	PaymentTimeout time.Duration
	TerminalID     string
	MerchantID     string
	Currency       string
	// Retry applies to Initialize only. Transactions are never repeated.
	Retry  retry.Policy
	Logger ports.Logger
}

// Terminal creates sessions with one Ingenico or Verifone terminal.
type Terminal struct {
	cfg   Config
	proto protocol
	log   ports.Logger
}

var _ ports.Terminal = (*Terminal)(nil)

// New validates cfg and selects the wire protocol for its vendor.
func New(cfg Config) (*Terminal, error) {
	var proto protocol
	switch cfg.Vendor {
	case errmap.Ingenico:
		proto = tlvProtocol{terminalID: cfg.TerminalID}
	case errmap.Verifone:
		proto = xmlProtocol{codec: xmlmsg.Codec{TerminalID: cfg.TerminalID, MerchantID: cfg.MerchantID}}
	default:
		return nil, models.NewError(models.CodeConfig, "unknown terminal vendor %q", cfg.Vendor)
	}
	if cfg.Dialer == nil {
		return nil, models.NewError(models.CodeConfig, "%s: no connection configured", cfg.Vendor)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	log := cfg.Logger
	if log == nil {
		log = ports.NopLogger{}
	}
	return &Terminal{cfg: cfg, proto: proto, log: log.WithField("terminal", cfg.Vendor)}, nil
}

// Name returns the vendor name.
func (t *Terminal) Name() string { return string(t.cfg.Vendor) }

// Initialize connects and sends INIT. Connection faults are retried under the configured
// policy; a refusal by the terminal is not.
func (t *Terminal) Initialize(ctx context.Context) (ports.Session, error) {
	policy := t.cfg.Retry
	if policy.Logf == nil {
		policy.Logf = t.log.Warn
	}
	s, err := retry.Do(ctx, policy, "initialize", func(ctx context.Context, attempt int) (*session, error) {
		conn, err := t.cfg.Dialer.Dial(ctx)
		if err != nil {
			return nil, err
		}
		reply, err := t.roundTrip(ctx, conn, cmdInit, nil, t.cfg.Timeout)
		if err == nil {
			err = t.checkReply(cmdInit, reply, false)
		}
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &session{t: t, conn: conn, log: t.log}, nil
	})
	if err != nil {
		t.log.Error("initialize %s failed: %v", t.cfg.Dialer.Address(), err)
		return nil, err
	}
	t.log.Info("session open with %s", t.cfg.Dialer.Address())
	return s, nil
}

func (t *Terminal) roundTrip(ctx context.Context, conn transport.Conn, cmd command, params map[string]string, timeout time.Duration) (map[string]string, error) {
	req, err := t.proto.encode(cmd, params)
	if err != nil {
		return nil, models.Validation("%s: %v", cmd, err)
	}
	ex := transport.Exchanger{Timeout: timeout, Complete: t.proto.complete, Logf: t.log.Debug}
	raw, err := ex.Do(ctx, conn, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	reply, err := t.proto.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", cmd, transport.ErrConnection, err)
	}
	return reply, nil
}

// checkReply turns a non-approval response code into a translated error. When required is
// false a reply without a code counts as approved.
func (t *Terminal) checkReply(cmd command, reply map[string]string, required bool) error {
	code := strings.TrimSpace(reply[xmlmsg.FieldResponseCode])
	if code == "" {
		if required {
			return models.NewError(models.CodeDevice, "%s: terminal reply has no response code", cmd)
		}
		return nil
	}
	if approved(code) {
		return nil
	}
	e := errmap.Translate(t.cfg.Vendor, code)
	if _, _, known := errmap.Lookup(t.cfg.Vendor, code); !known {
		if msg := strings.TrimSpace(reply[xmlmsg.FieldResponseMessage]); msg != "" {
			e.Message = msg
		}
	}
	return e
}

func approved(code string) bool {
	return approvalCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// session is an initialized connection. Requests are serialized by mu; Cancel uses its own
// connection and never waits for mu.
type session struct {
	t   *Terminal
	log ports.Logger

	mu   sync.Mutex
	conn transport.Conn
}

var _ ports.Session = (*session)(nil)

// request runs one exchange on the session connection. Any transport fault drops the
// connection, since the terminal state is unknown afterwards.
func (s *session) request(ctx context.Context, cmd command, params map[string]string, timeout time.Duration) (map[string]string, error) {
	if s.conn == nil {
		return nil, ErrSessionClosed
	}
	reply, err := s.t.roundTrip(ctx, s.conn, cmd, params, timeout)
	if err != nil {
		var me *models.Error
		if !errors.As(err, &me) {
			s.conn.Close()
			s.conn = nil
		}
		return nil, err
	}
	return reply, nil
}

// Process runs one card transaction. It is sent exactly once: a lost reply leaves the
// outcome to be reconciled by batch close.
func (s *session) Process(ctx context.Context, req models.PaymentRequest) (models.Result, error) {
	if err := req.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	params := map[string]string{
		xmlmsg.FieldAmount:          models.FormatMinor(models.MinorUnits(req.Amount)),
		xmlmsg.FieldCurrency:        firstNonEmpty(req.Currency, s.t.cfg.Currency),
		xmlmsg.FieldTransactionType: string(req.Type),
	}
	if req.Reference != "" {
		params[xmlmsg.FieldReference] = req.Reference
	}
	if req.OriginalTransactionID != "" {
		params[xmlmsg.FieldOrigTxnID] = req.OriginalTransactionID
	}
	if req.AuthCode != "" {
		params[xmlmsg.FieldAuthCode] = req.AuthCode
	}
	log := s.log.WithField("op", req.Type)
	if req.CorrelationID != "" {
		log = log.WithField("correlationId", req.CorrelationID)
	}

	s.mu.Lock()
	reply, err := s.request(ctx, commandFor(req.Type), params, s.t.cfg.PaymentTimeout)
	s.mu.Unlock()
	if err != nil {
		log.Error("%s %.2f failed: %v", req.Type, req.Amount, err)
		return models.ResultFromError(err), err
	}

	details := &models.PaymentDetails{
		TransactionID: reply[xmlmsg.FieldTransactionID],
		AuthCode:      reply[xmlmsg.FieldAuthCode],
		CardNumber:    reply[xmlmsg.FieldCardNumber],
		CardType:      reply[xmlmsg.FieldCardType],
		ResponseCode:  reply[xmlmsg.FieldResponseCode],
	}
	if err := s.t.checkReply(commandFor(req.Type), reply, true); err != nil {
		res := models.ResultFromError(err)
		res.Payment = details
		log.Warn("%s %.2f declined: %s %s", req.Type, req.Amount, res.Error.Code, res.Error.Message)
		return res, err
	}
	res := models.Ok(details.TransactionID)
	res.Payment = details
	log.Info("%s %.2f approved, transaction %s", req.Type, req.Amount, details.TransactionID)
	return res, nil
}

// CloseBatch settles the terminal and reports its totals.
func (s *session) CloseBatch(ctx context.Context, req models.BatchCloseRequest) (models.Result, error) {
	s.mu.Lock()
	reply, err := s.request(ctx, cmdBatchClose, nil, s.t.cfg.Timeout)
	s.mu.Unlock()
	if err == nil {
		err = s.t.checkReply(cmdBatchClose, reply, false)
	}
	if err != nil {
		s.log.Error("batch close failed: %v", err)
		return models.ResultFromError(err), err
	}

	batch := &models.BatchDetails{BatchNumber: reply[xmlmsg.FieldBatchNumber]}
	var warnings []string
	number := func(field string) int64 {
		raw := strings.TrimSpace(reply[field])
		if raw == "" {
			return 0
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("batch close: unreadable %s %q", field, raw))
		}
		return n
	}
	batch.TransactionCount = int(number(xmlmsg.FieldTxnCount))
	batch.CreditTotal = float64(number(xmlmsg.FieldCreditTotal)) / 100
	batch.DebitTotal = float64(number(xmlmsg.FieldDebitTotal)) / 100

	res := models.Ok(batch.BatchNumber)
	res.Batch = batch
	res.Warnings = warnings
	s.log.WithField("correlationId", req.CorrelationID).Info("batch %s closed: %d transactions, credit %.2f, debit %.2f",
		batch.BatchNumber, batch.TransactionCount, batch.CreditTotal, batch.DebitTotal)
	return res, nil
}

// Status asks the terminal for its state.
func (s *session) Status(ctx context.Context) (models.Result, error) {
	s.mu.Lock()
	reply, err := s.request(ctx, cmdStatus, nil, s.t.cfg.Timeout)
	s.mu.Unlock()
	if err == nil {
		err = s.t.checkReply(cmdStatus, reply, false)
	}
	if err != nil {
		return models.ResultFromError(err), err
	}
	return models.Result{
		Success: true,
		Status:  firstNonEmpty(reply[xmlmsg.FieldStatus], reply[xmlmsg.FieldResponseMessage], "ready"),
	}, nil
}

// Cancel sends CANCEL over a separate short-lived connection so that a transaction waiting
// on the session connection is not disturbed. It is best effort: the terminal may already
// have completed the transaction.
func (s *session) Cancel(ctx context.Context) error {
	_, err := transport.WithConnection(ctx, s.t.cfg.Dialer, func(conn transport.Conn) (struct{}, error) {
		reply, err := s.t.roundTrip(ctx, conn, cmdCancel, nil, s.t.cfg.Timeout)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.t.checkReply(cmdCancel, reply, false)
	})
	if err != nil {
		s.log.Warn("cancel failed: %v", err)
		return err
	}
	s.log.Info("cancel sent")
	return nil
}

// Disconnect closes the session. It is safe to call more than once.
func (s *session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.log.Info("session closed")
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

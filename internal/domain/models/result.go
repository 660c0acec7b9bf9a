package models

import (
	"context"
	"errors"
	"fmt"

	"fiscalbridge/pkg/frame"
	"fiscalbridge/pkg/transport"
)

// Error codes surfaced to callers. Device faults that are not listed here carry the raw
// vendor code instead.
const (
	CodeConfig          = "CONFIG_ERROR"
	CodeConnection      = "CONNECTION_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeReceiptNotFound = "RECEIPT_NOT_FOUND"
	CodeAlreadyStornoed = "ALREADY_STORNOED"
	CodeNotSupported    = "NOT_SUPPORTED"
	CodeDevice          = "DEVICE_ERROR"
)

// Error is the typed error returned by drivers and terminals.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation is shorthand for a VALIDATION_ERROR.
func Validation(format string, args ...any) *Error {
	return NewError(CodeValidation, format, args...)
}

// NotSupported is returned for operations the selected device does not implement.
func NotSupported(device, op string) *Error {
	return NewError(CodeNotSupported, "%s does not support %s", device, op)
}

// ErrorInfo is the serializable part of an Error.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PaymentDetails is what a terminal reports about an approved or declined transaction.
type PaymentDetails struct {
	TransactionID string `json:"transactionId,omitempty"`
	AuthCode      string `json:"authCode,omitempty"`
	CardNumber    string `json:"cardNumber,omitempty"`
	CardType      string `json:"cardType,omitempty"`
	ResponseCode  string `json:"responseCode,omitempty"`
}

// BatchDetails are the settlement totals reported by a batch close.
type BatchDetails struct {
	BatchNumber      string  `json:"batchNumber,omitempty"`
	TransactionCount int     `json:"transactionCount"`
	CreditTotal      float64 `json:"creditTotal"`
	DebitTotal       float64 `json:"debitTotal"`
}

// Result is returned for every document. Success=false always carries Error with a
// non-empty code.
type Result struct {
	Success        bool            `json:"success"`
	DocumentNumber string          `json:"documentNumber,omitempty"`
	Error          *ErrorInfo      `json:"error,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	Payment        *PaymentDetails `json:"payment,omitempty"`
	Batch          *BatchDetails   `json:"batch,omitempty"`
	// Status is free-form device state from status queries.
	Status string `json:"status,omitempty"`
}

// Ok returns a successful Result.
func Ok(documentNumber string) Result {
	return Result{Success: true, DocumentNumber: documentNumber}
}

// ResultFromError converts err into a failed Result. Errors that are not *Error are
// classified by the transport sentinels they wrap.
func ResultFromError(err error) Result {
	e := AsError(err)
	msg := e.Message
	if e.Cause != nil && (e.Code == CodeConnection || e.Code == CodeTimeout) {
		msg += ": " + e.Cause.Error()
	}
	return Result{Error: &ErrorInfo{Code: e.Code, Message: msg}}
}

// AsError returns err as an *Error, classifying foreign errors.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e
	}
	switch {
	case err == nil:
		return NewError(CodeDevice, "unknown failure")
	case errors.Is(err, transport.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Message: "device did not answer in time", Cause: err}
	case errors.Is(err, frame.ErrCorruptFrame):
		return &Error{Code: CodeConnection, Message: "corrupt response from device", Cause: err}
	case errors.Is(err, transport.ErrConnection), errors.Is(err, context.Canceled):
		return &Error{Code: CodeConnection, Message: "cannot communicate with device", Cause: err}
	}
	return &Error{Code: CodeDevice, Message: err.Error(), Cause: err}
}

// CodeOf returns the taxonomy code of err.
func CodeOf(err error) string {
	return AsError(err).Code
}

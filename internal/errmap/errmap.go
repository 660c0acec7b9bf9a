// Package errmap translates raw device error codes into the uniform error taxonomy.
package errmap

import (
	"fmt"
	"strings"

	"fiscalbridge/internal/domain/models"
)

// Vendor selects a translation table.
type Vendor string

const (
	Elzab    Vendor = "elzab"
	Novitus  Vendor = "novitus"
	Posnet   Vendor = "posnet"
	Ingenico Vendor = "ingenico"
	Verifone Vendor = "verifone"
)

// Kind classifies a device code beyond its message.
type Kind int

const (
	KindGeneric Kind = iota
	KindNotFound
	KindAlreadyVoided
	// KindDecline is an issuer decision on a card transaction.
	KindDecline
)

type entry struct {
	msg  string
	kind Kind
}

type table map[string]entry

var tables = map[Vendor]table{
	Elzab:    elzabCodes,
	Novitus:  novitusCodes,
	Posnet:   posnetCodes,
	Ingenico: ingenicoCodes,
	Verifone: verifoneCodes,
}

// IsTerminal reports whether v is a card terminal vendor.
func (v Vendor) IsTerminal() bool {
	return v == Ingenico || v == Verifone
}

// Known reports whether v has a table.
func (v Vendor) Known() bool {
	_, ok := tables[v]
	return ok
}

// UnknownMessage is the catch-all message for codes missing from every table.
func UnknownMessage(code string) string {
	if code == "" {
		return "Nieznany błąd urządzenia"
	}
	return fmt.Sprintf("Nieznany błąd urządzenia (%s)", code)
}

// Lookup finds raw in the vendor table and, for terminals, in the issuer response codes.
// Numeric codes match regardless of leading zeros.
func Lookup(v Vendor, raw string) (msg string, kind Kind, ok bool) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", KindGeneric, false
	}
	t := tables[v]
	for _, c := range candidates(code) {
		if e, found := t[c]; found {
			return e.msg, e.kind, true
		}
	}
	if v.IsTerminal() {
		for _, c := range issuerCandidates(code) {
			if e, found := issuerCodes[c]; found {
				return e.msg, e.kind, true
			}
		}
	}
	return "", KindGeneric, false
}

// Translate returns the device error for raw. The code is the vendor's own; unknown codes
// keep it and get the numbered catch-all message. An empty code becomes DEVICE_ERROR.
func Translate(v Vendor, raw string) *models.Error {
	code := strings.TrimSpace(raw)
	if code == "" {
		return &models.Error{Code: models.CodeDevice, Message: UnknownMessage("")}
	}
	msg, _, ok := Lookup(v, code)
	if !ok {
		msg = UnknownMessage(code)
	}
	return &models.Error{Code: code, Message: msg}
}

// TranslateStornoOpen is Translate for the first step of a storno, where "document not
// found" and "already voided" get their own taxonomy codes.
func TranslateStornoOpen(v Vendor, raw string) *models.Error {
	e := Translate(v, raw)
	switch _, kind, _ := Lookup(v, raw); kind {
	case KindNotFound:
		e.Message = fmt.Sprintf("%s (%s)", e.Message, e.Code)
		e.Code = models.CodeReceiptNotFound
	case KindAlreadyVoided:
		e.Message = fmt.Sprintf("%s (%s)", e.Message, e.Code)
		e.Code = models.CodeAlreadyStornoed
	}
	return e
}

func candidates(code string) []string {
	out := []string{code}
	if up := strings.ToUpper(code); up != code {
		out = append(out, up)
	}
	if isNumeric(code) {
		if trimmed := strings.TrimLeft(code, "0"); trimmed != code && trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// issuerCandidates normalizes numeric codes to the two-digit ISO form.
func issuerCandidates(code string) []string {
	if !isNumeric(code) {
		return nil
	}
	trimmed := strings.TrimLeft(code, "0")
	switch len(trimmed) {
	case 0:
		return []string{"00"}
	case 1:
		return []string{"0" + trimmed}
	case 2:
		return []string{trimmed}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

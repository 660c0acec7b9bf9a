// Package xmlmsg implements the length-prefixed XML message spoken by Verifone-style terminals.
//
//	HHHH<Message><MessageId/><Command/><TerminalId/><MerchantId/><Parameters>...</Parameters></Message>
//
// HHHH is the byte length of the XML body as four upper-case hex digits. Replies are not parsed
// as a document: vendors disagree on element names, so each known field is located by a
// case-insensitive search over a list of synonyms and the first match wins.
package xmlmsg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fiscalbridge/pkg/frame"
)

const (
	prefixLen = 4
	// MaxBodyLen is the largest body a four-digit hex prefix can describe.
	MaxBodyLen = 0xFFFF
)

var (
	ErrFraming = fmt.Errorf("%w: xml length prefix", frame.ErrCorruptFrame)
	// ErrInvalidName is returned by Encode for a parameter name that is not an XML element name.
	ErrInvalidName = errors.New("xmlmsg: invalid element name")
)

// Canonical field names. Encode writes them as-is; Decode maps every synonym onto them.
const (
	FieldAmount          = "Amount"
	FieldCurrency        = "Currency"
	FieldTransactionType = "TransactionType"
	FieldReference       = "Reference"
	FieldOrigTxnID       = "OriginalTransactionId"
	FieldTransactionID   = "TransactionId"
	FieldAuthCode        = "AuthCode"
	FieldResponseCode    = "ResponseCode"
	FieldResponseMessage = "ResponseMessage"
	FieldCardNumber      = "CardNumber"
	FieldCardType        = "CardType"
	FieldBatchNumber     = "BatchNumber"
	FieldTxnCount        = "TransactionCount"
	FieldCreditTotal     = "CreditTotal"
	FieldDebitTotal      = "DebitTotal"
	FieldStatus          = "Status"
)

var synonyms = map[string][]string{
	FieldAmount:          {"Amount", "TransactionAmount", "Amt"},
	FieldCurrency:        {"Currency", "CurrencyCode"},
	FieldTransactionType: {"TransactionType", "TxnType"},
	FieldReference:       {"Reference", "ReferenceId", "RefId", "OrderId"},
	FieldOrigTxnID:       {"OriginalTransactionId", "OriginalTxnId", "OrigTxnId"},
	FieldTransactionID:   {"TransactionId", "TxnId", "TransId"},
	FieldAuthCode:        {"AuthCode", "AuthorizationCode", "ApprovalCode"},
	FieldResponseCode:    {"ResponseCode", "ResultCode", "RespCode"},
	FieldResponseMessage: {"ResponseMessage", "ResultMessage", "RespMsg", "ResponseText"},
	FieldCardNumber:      {"CardNumber", "MaskedPan", "Pan"},
	FieldCardType:        {"CardType", "CardBrand", "Scheme"},
	FieldBatchNumber:     {"BatchNumber", "BatchId", "BatchNo"},
	FieldTxnCount:        {"TransactionCount", "TxnCount"},
	FieldCreditTotal:     {"CreditTotal", "TotalCredit"},
	FieldDebitTotal:      {"DebitTotal", "TotalDebit"},
	FieldStatus:          {"Status", "TerminalStatus"},
}

// Message is one request or reply.
type Message struct {
	MessageID  string
	Command    string
	TerminalID string
	MerchantID string
	Params     map[string]string
}

// Get returns a parameter by canonical name.
func (m Message) Get(name string) string {
	return m.Params[name]
}

// Codec stamps outgoing messages with the terminal and merchant identity.
type Codec struct {
	TerminalID string
	MerchantID string
}

// Encode builds a request with a fresh message id.
func (c Codec) Encode(command string, params map[string]string) ([]byte, error) {
	return EncodeMessage(Message{
		MessageID:  uuid.New().String(),
		Command:    command,
		TerminalID: c.TerminalID,
		MerchantID: c.MerchantID,
		Params:     params,
	})
}

// EncodeMessage serializes m. Parameters are written in name order.
func EncodeMessage(m Message) ([]byte, error) {
	names := make([]string, 0, len(m.Params))
	for n := range m.Params {
		if !validName(n) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, n)
		}
		names = append(names, n)
	}
	sort.Strings(names)

	var b bytes.Buffer
	b.WriteString("<Message>")
	writeElem(&b, "MessageId", m.MessageID)
	writeElem(&b, "Command", m.Command)
	writeElem(&b, "TerminalId", m.TerminalID)
	writeElem(&b, "MerchantId", m.MerchantID)
	b.WriteString("<Parameters>")
	for _, n := range names {
		writeElem(&b, n, m.Params[n])
	}
	b.WriteString("</Parameters></Message>")

	if b.Len() > MaxBodyLen {
		return nil, fmt.Errorf("xmlmsg: body too long (%d bytes)", b.Len())
	}
	out := make([]byte, 0, prefixLen+b.Len())
	out = fmt.Appendf(out, "%04X", b.Len())
	return append(out, b.Bytes()...), nil
}

func writeElem(b *bytes.Buffer, name, value string) {
	b.WriteString("<" + name + ">")
	xml.EscapeText(b, []byte(value))
	b.WriteString("</" + name + ">")
}

// Decode checks the length prefix and extracts the envelope, every direct child of
// Parameters under its own name, and every known field under its canonical name.
func Decode(data []byte) (Message, error) {
	if len(data) < prefixLen {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFraming, len(data))
	}
	n, err := strconv.ParseUint(string(data[:prefixLen]), 16, 16)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %q", ErrFraming, data[:prefixLen])
	}
	if len(data)-prefixLen != int(n) {
		return Message{}, fmt.Errorf("%w: declared %d, got %d", ErrFraming, n, len(data)-prefixLen)
	}
	body := string(data[prefixLen:])
	lower := asciiLower(body)

	m := Message{
		MessageID:  find(body, lower, "MessageId", "MsgId"),
		Command:    find(body, lower, "Command", "MessageType"),
		TerminalID: find(body, lower, "TerminalId", "Tid"),
		MerchantID: find(body, lower, "MerchantId", "Mid"),
		Params:     parameters(body, lower),
	}
	for canon, names := range synonyms {
		if v, ok := lookup(body, lower, names...); ok {
			m.Params[canon] = v
		}
	}
	return m, nil
}

// Complete reports whether buf holds the whole body announced by its prefix. A prefix that is
// not hex is reported complete so that Decode can reject it without waiting for a timeout.
func Complete(buf []byte) bool {
	if len(buf) < prefixLen {
		return false
	}
	n, err := strconv.ParseUint(string(buf[:prefixLen]), 16, 16)
	if err != nil {
		return true
	}
	return len(buf) >= prefixLen+int(n)
}

func find(body, lower string, names ...string) string {
	v, _ := lookup(body, lower, names...)
	return v
}

// lookup returns the text of the first element whose name matches one of names,
// ignoring ASCII case. lower is body passed through asciiLower.
func lookup(body, lower string, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := element(body, lower, asciiLower(name)); ok {
			return v, true
		}
	}
	return "", false
}

func element(body, lower, name string) (string, bool) {
	open := "<" + name
	for i := 0; ; {
		j := strings.Index(lower[i:], open)
		if j < 0 {
			return "", false
		}
		start := i + j + len(open)
		if start >= len(lower) {
			return "", false
		}
		switch lower[start] {
		case '/':
			return "", true // <Name/>
		case '>', ' ', '\t', '\r', '\n':
		default:
			i = start
			continue
		}
		gt := strings.IndexByte(lower[start:], '>')
		if gt < 0 {
			return "", false
		}
		if lower[start+gt-1] == '/' {
			return "", true
		}
		valStart := start + gt + 1
		end := strings.Index(lower[valStart:], "</"+name)
		if end < 0 {
			return "", false
		}
		return html.UnescapeString(body[valStart : valStart+end]), true
	}
}

// parameters collects <Name>value</Name> children of the Parameters element.
func parameters(body, lower string) map[string]string {
	out := make(map[string]string)
	start := strings.Index(lower, "<parameters>")
	end := strings.Index(lower, "</parameters>")
	if start < 0 || end < start {
		return out
	}
	section := body[start+len("<parameters>") : end]
	for len(section) > 0 {
		lt := strings.IndexByte(section, '<')
		if lt < 0 {
			break
		}
		section = section[lt+1:]
		gt := strings.IndexByte(section, '>')
		if gt < 0 {
			break
		}
		tag := section[:gt]
		section = section[gt+1:]
		if strings.HasSuffix(tag, "/") {
			name := strings.TrimSpace(strings.TrimSuffix(tag, "/"))
			if _, ok := out[name]; !ok && validName(name) {
				out[name] = ""
			}
			continue
		}
		name, _, _ := strings.Cut(tag, " ")
		if !validName(name) {
			continue
		}
		closing := strings.Index(section, "</"+name+">")
		if closing < 0 {
			break
		}
		if _, ok := out[name]; !ok {
			out[name] = html.UnescapeString(section[:closing])
		}
		section = section[closing+len(name)+3:]
	}
	return out
}

// asciiLower lowers A-Z only, so byte offsets stay valid for the original string.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func validName(n string) bool {
	if n == "" {
		return false
	}
	for i, c := range n {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && (c == '-' || c == '.' || ('0' <= c && c <= '9')):
		default:
			return false
		}
	}
	return true
}

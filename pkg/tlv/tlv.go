// Package tlv implements the binary tag/length/value message used by card payment terminals.
//
//	STX | length(2, big-endian) | command(1) | tag length value ... | ETX | LRC(1)
//
// length counts the command byte and the encoded triples. LRC is the XOR of every byte after
// STX up to and including ETX. A tag is one byte; a length is one byte when it fits in seven
// bits, otherwise two bytes with the high bit set.
package tlv

import (
	"encoding/binary"
	"fmt"
	"sort"

	"fiscalbridge/pkg/frame"
)

const (
	STX = 0x02
	ETX = 0x03

	// MaxValueLen is the longest value a two-byte length can describe.
	MaxValueLen = 0x7FFF

	headerLen  = 3 // STX + length
	trailerLen = 2 // ETX + LRC
	minLen     = headerLen + 1 + trailerLen
)

var (
	ErrChecksum = fmt.Errorf("%w: tlv LRC mismatch", frame.ErrCorruptFrame)
	ErrFraming  = fmt.Errorf("%w: tlv envelope", frame.ErrCorruptFrame)
	ErrLength   = fmt.Errorf("%w: tlv tag length mismatch", frame.ErrCorruptFrame)
)

// Tag identifies a field.
type Tag byte

const (
	TagAmount      Tag = 0x01
	TagCurrency    Tag = 0x02
	TagTxnType     Tag = 0x03
	TagReference   Tag = 0x04
	TagOrigTxnID   Tag = 0x05
	TagAuthCode    Tag = 0x06
	TagCardNumber  Tag = 0x07
	TagRespCode    Tag = 0x08
	TagRespMessage Tag = 0x09
	TagTxnID       Tag = 0x0A
	TagTerminalID  Tag = 0x0B
	TagBatchNumber Tag = 0x0C
	TagTxnCount    Tag = 0x0D
	TagCreditTotal Tag = 0x0E
	TagDebitTotal  Tag = 0x0F
	TagCardType    Tag = 0x10
)

// Command is the message type byte.
type Command byte

const (
	CmdSale       Command = 0x10
	CmdPreAuth    Command = 0x11
	CmdCapture    Command = 0x12
	CmdVoid       Command = 0x13
	CmdRefund     Command = 0x14
	CmdBatchClose Command = 0x20
	CmdStatus     Command = 0x30
	CmdCancel     Command = 0x40
	CmdInit       Command = 0x50
)

var commandNames = map[Command]string{
	CmdSale:       "SALE",
	CmdPreAuth:    "PREAUTH",
	CmdCapture:    "CAPTURE",
	CmdVoid:       "VOID",
	CmdRefund:     "REFUND",
	CmdBatchClose: "BATCH",
	CmdStatus:     "STATUS",
	CmdCancel:     "CANCEL",
	CmdInit:       "INIT",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CMD(0x%02X)", byte(c))
}

// Message is a decoded terminal message.
type Message struct {
	Command Command
	Fields  map[Tag]string
}

// Get returns the value of t or "" when the tag is absent.
func (m Message) Get(t Tag) string {
	return m.Fields[t]
}

// Encode builds a complete message. Tags are written in ascending order so the encoding of a
// given field set is stable.
func Encode(cmd Command, fields map[Tag]string) ([]byte, error) {
	tags := make([]Tag, 0, len(fields))
	for t := range fields {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	body := []byte{byte(cmd)}
	for _, t := range tags {
		v := fields[t]
		if len(v) > MaxValueLen {
			return nil, fmt.Errorf("tlv: value of tag 0x%02X too long (%d bytes)", byte(t), len(v))
		}
		body = append(body, byte(t))
		if len(v) <= 0x7F {
			body = append(body, byte(len(v)))
		} else {
			body = binary.BigEndian.AppendUint16(body, 0x8000|uint16(len(v)))
		}
		body = append(body, v...)
	}
	if len(body) > 0xFFFF {
		return nil, fmt.Errorf("tlv: message too long (%d bytes)", len(body))
	}

	buf := make([]byte, 0, headerLen+len(body)+trailerLen)
	buf = append(buf, STX)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(body)))
	buf = append(buf, body...)
	buf = append(buf, ETX)
	buf = append(buf, lrc(buf[1:]))
	return buf, nil
}

// Decode validates the envelope and LRC and walks the triples. A repeated tag keeps its first
// value.
func Decode(data []byte) (Message, error) {
	if len(data) < minLen || data[0] != STX {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFraming, len(data))
	}
	n := int(binary.BigEndian.Uint16(data[1:3]))
	if n == 0 || len(data) != headerLen+n+trailerLen {
		return Message{}, fmt.Errorf("%w: declared %d, got %d", ErrFraming, n, len(data)-headerLen-trailerLen)
	}
	if data[headerLen+n] != ETX {
		return Message{}, fmt.Errorf("%w: missing ETX", ErrFraming)
	}
	if got, want := data[len(data)-1], lrc(data[1:len(data)-1]); got != want {
		return Message{}, fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, got, want)
	}

	body := data[headerLen : headerLen+n]
	m := Message{Command: Command(body[0]), Fields: make(map[Tag]string)}
	for p := 1; p < len(body); {
		if p+2 > len(body) {
			return Message{}, fmt.Errorf("%w: truncated header at %d", ErrLength, p)
		}
		tag := Tag(body[p])
		l := int(body[p+1])
		p += 2
		if l&0x80 != 0 {
			if p >= len(body) {
				return Message{}, fmt.Errorf("%w: truncated length of tag 0x%02X", ErrLength, byte(tag))
			}
			l = (l&0x7F)<<8 | int(body[p])
			p++
		}
		if p+l > len(body) {
			return Message{}, fmt.Errorf("%w: tag 0x%02X wants %d bytes, %d left", ErrLength, byte(tag), l, len(body)-p)
		}
		if _, dup := m.Fields[tag]; !dup {
			m.Fields[tag] = string(body[p : p+l])
		}
		p += l
	}
	return m, nil
}

// Complete reports whether buf holds the whole message announced by its length prefix.
func Complete(buf []byte) bool {
	buf = Trim(buf)
	if len(buf) < headerLen || buf[0] != STX {
		return false
	}
	n := int(binary.BigEndian.Uint16(buf[1:3]))
	return len(buf) >= headerLen+n+trailerLen
}

// Trim drops noise before STX and anything after the announced message end.
func Trim(buf []byte) []byte {
	for i, b := range buf {
		if b == STX {
			buf = buf[i:]
			if len(buf) >= headerLen {
				if end := headerLen + int(binary.BigEndian.Uint16(buf[1:3])) + trailerLen; len(buf) > end {
					buf = buf[:end]
				}
			}
			return buf
		}
	}
	return buf
}

func lrc(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

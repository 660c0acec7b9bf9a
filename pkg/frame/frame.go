// Package frame implements the byte-checksum frame family spoken by Polish fiscal printers:
//
//	STX | command(1) | payload | checksum(1) | ETX
//
// The payload is a list of text fields joined by a vendor separator and transcoded into the
// vendor code page. The checksum is the XOR of the command byte and every payload byte.
package frame

import (
	"errors"
	"fmt"
	"strings"

	"fiscalbridge/pkg/transport"
)

const (
	STX = 0x02
	ETX = 0x03

	minFrameLen = 4 // STX, command, checksum, ETX
)

var (
	// ErrCorruptFrame is the parent of every framing and checksum failure. It signals a damaged
	// transmission, never a device-reported business error.
	ErrCorruptFrame = errors.New("frame: corrupt frame")
	ErrChecksum     = fmt.Errorf("%w: checksum mismatch", ErrCorruptFrame)
	ErrFraming      = fmt.Errorf("%w: missing STX/ETX", ErrCorruptFrame)
	// ErrInvalidField is returned by Encode for fields that cannot be framed losslessly.
	ErrInvalidField = errors.New("frame: field contains a reserved byte")
)

// Frame is a decoded message.
type Frame struct {
	Command byte
	Fields  []string
}

// Codec encodes and decodes frames for one dialect.
type Codec struct {
	Separator byte
	CodePage  string
}

// Checksum returns the XOR of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Encode builds a complete frame. Fields may not contain the separator, STX or ETX.
func (c Codec) Encode(command byte, fields []string) ([]byte, error) {
	for i, f := range fields {
		if strings.IndexByte(f, c.Separator) >= 0 || strings.ContainsAny(f, "\x02\x03") {
			return nil, fmt.Errorf("%w: field %d %q", ErrInvalidField, i, f)
		}
	}
	payload, err := transport.EncodeText(c.CodePage, strings.Join(fields, string(c.Separator)))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(payload)+minFrameLen)
	buf = append(buf, STX, command)
	buf = append(buf, payload...)
	buf = append(buf, Checksum(buf[1:]), ETX)
	return buf, nil
}

// Unwrap validates the envelope and checksum and returns the command and raw payload.
func Unwrap(data []byte) (byte, []byte, error) {
	if len(data) < minFrameLen {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrFraming, len(data))
	}
	if data[0] != STX || data[len(data)-1] != ETX {
		return 0, nil, ErrFraming
	}
	body := data[1 : len(data)-2]
	got := data[len(data)-2]
	if want := Checksum(body); got != want {
		return 0, nil, fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, got, want)
	}
	return body[0], body[1:], nil
}

// Decode unwraps a frame and splits its payload into fields. An empty payload decodes to no
// fields, so a frame carrying one empty field reads back as a frame with none.
func (c Codec) Decode(data []byte) (Frame, error) {
	cmd, payload, err := Unwrap(data)
	if err != nil {
		return Frame{}, err
	}
	text, err := transport.DecodeText(c.CodePage, payload)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Command: cmd}
	if text != "" {
		f.Fields = strings.Split(text, string(c.Separator))
	}
	return f, nil
}

// Complete reports whether buf holds one whole frame. It is used as the transport framer.
// A checksum byte that happens to equal ETX is not mistaken for the end of the frame because
// the trailing checksum must also match.
func Complete(buf []byte) bool {
	if len(buf) < minFrameLen || buf[len(buf)-1] != ETX {
		return false
	}
	start := 0
	for start < len(buf) && buf[start] != STX {
		start++
	}
	if len(buf)-start < minFrameLen {
		return false
	}
	return Checksum(buf[start+1:len(buf)-2]) == buf[len(buf)-2]
}

// Trim drops any leading noise before STX, as some printers emit an ACK byte first.
func Trim(buf []byte) []byte {
	for i, b := range buf {
		if b == STX {
			return buf[i:]
		}
	}
	return buf
}

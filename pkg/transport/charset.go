package transport

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Code page labels used by Polish fiscal printers.
const (
	CodePageUTF8        = "utf-8"
	CodePageWindows1250 = "windows-1250"
	CodePage852         = "cp852"
)

// lookupEncoding resolves a code page label. A nil encoding means UTF-8 passthrough.
func lookupEncoding(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "cp852", "ibm852", "852":
		// Not a WHATWG label, so html/charset does not know it.
		return charmap.CodePage852, nil
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("transport: unknown code page %q", label)
	}
	return enc, nil
}

// EncodeText converts s from UTF-8 into the given code page. Characters the code page cannot
// represent are replaced instead of failing the whole document.
func EncodeText(label, s string) ([]byte, error) {
	enc, err := lookupEncoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(s), nil
	}
	res, _, err := transform.Bytes(encoding.ReplaceUnsupported(enc.NewEncoder()), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("transport: encode to %s: %w", label, err)
	}
	return res, nil
}

// DecodeText converts data from the given code page into UTF-8.
func DecodeText(label string, data []byte) (string, error) {
	enc, err := lookupEncoding(label)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(data), nil
	}
	res, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("transport: decode from %s: %w", label, err)
	}
	return string(res), nil
}

package frame

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

var dialects = map[string]Codec{
	"elzab":   {Separator: ',', CodePage: "windows-1250"},
	"novitus": {Separator: ';', CodePage: "cp852"},
	"utf8":    {Separator: ';'},
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		command byte
		fields  []string
	}{
		{"no fields", 0x30, nil},
		{"single field", 'X', []string{"1"}},
		{"sale line", 0x11, []string{"Nocleg pokój 12", "1", "120.00", "A"}},
		{"polish text", 'S', []string{"Śniadanie", "2", "35.50", "B"}},
		{"empty inner field", 'O', []string{"ABC", "", "7"}},
	}
	for dname, c := range dialects {
		for _, tt := range tests {
			t.Run(dname+"/"+tt.name, func(t *testing.T) {
				raw, err := c.Encode(tt.command, tt.fields)
				if err != nil {
					t.Fatalf("encode: %v", err)
				}
				if !Complete(raw) {
					t.Error("encoded frame not recognised as complete")
				}
				f, err := c.Decode(raw)
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if f.Command != tt.command {
					t.Errorf("command: got %02X, want %02X", f.Command, tt.command)
				}
				if !reflect.DeepEqual(f.Fields, tt.fields) {
					t.Errorf("fields: got %q, want %q", f.Fields, tt.fields)
				}
			})
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := dialects["novitus"]
	a, _ := c.Encode('R', []string{"120.00", "CASH"})
	b, _ := c.Encode('R', []string{"120.00", "CASH"})
	if !bytes.Equal(a, b) {
		t.Errorf("encoding differs: % X vs % X", a, b)
	}
	if Checksum(a[1:len(a)-2]) != a[len(a)-2] {
		t.Error("stored checksum does not match recomputed checksum")
	}
}

func TestSingleBitCorruptionIsDetected(t *testing.T) {
	c := dialects["elzab"]
	raw, err := c.Encode(0x13, []string{"155.50", "0", "Dziękujemy"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			bad := append([]byte(nil), raw...)
			bad[i] ^= 1 << bit
			if _, err := c.Decode(bad); !errors.Is(err, ErrCorruptFrame) {
				t.Fatalf("byte %d bit %d: expected corrupt frame error, got %v", i, bit, err)
			}
		}
	}
}

func TestEncodeRejectsReservedBytes(t *testing.T) {
	c := dialects["novitus"]
	for _, f := range []string{"a;b", "x\x03", "\x02"} {
		if _, err := c.Encode('S', []string{f}); !errors.Is(err, ErrInvalidField) {
			t.Errorf("field %q: expected ErrInvalidField, got %v", f, err)
		}
	}
}

func TestDecodeFramingErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", []byte{STX, ETX}, ErrFraming},
		{"no stx", []byte{'A', 'B', 'A' ^ 'B', ETX}, ErrFraming},
		{"no etx", []byte{STX, 'A', 'A', 0x00}, ErrFraming},
		{"bad checksum", []byte{STX, 'A', '0', 0x00, ETX}, ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dialects["utf8"].Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompleteAndTrim(t *testing.T) {
	raw, _ := dialects["utf8"].Encode('Z', []string{"0", "42"})
	if Complete(raw[:len(raw)-1]) {
		t.Error("partial frame reported complete")
	}
	noisy := append([]byte{0x06}, raw...)
	if !Complete(noisy) {
		t.Error("frame after ACK byte not recognised")
	}
	if !bytes.Equal(Trim(noisy), raw) {
		t.Error("Trim did not drop leading noise")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   Response
	}{
		{"zero with number", []string{"0", "12345"}, Response{Success: true, DocumentNumber: "12345"}},
		{"double zero", []string{"00", "77"}, Response{Success: true, DocumentNumber: "77"}},
		{"ok without number", []string{"OK", "done"}, Response{Success: true}},
		{"vendor code", []string{"14", "—"}, Response{Code: "14"}},
		{"err prefix", []string{"ERR", "3"}, Response{Code: "3"}},
		{"bare number", []string{"9001"}, Response{Success: true, DocumentNumber: "9001"}},
		{"empty", nil, Response{Success: true}},
		{"unknown shape", []string{"READY"}, Response{Success: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.fields)
			if got.Success != tt.want.Success || got.DocumentNumber != tt.want.DocumentNumber || got.Code != tt.want.Code {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

package transport

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
)

const defaultBaudRate = 9600

// SerialDialer opens an RS-232 port per Dial. Fiscal printers keep no session state across
// reopenings of the port, so it is used exactly like a per-document TCP socket.
type SerialDialer struct {
	PortName string
	BaudRate int
}

// Address returns the port name.
func (d SerialDialer) Address() string {
	return d.PortName
}

// Dial opens the port in 8N1 mode.
func (d SerialDialer) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	baud := d.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConnection, d.PortName, err)
	}
	return &serialConn{port: p}, nil
}

type serialConn struct {
	port serial.Port
}

func (c *serialConn) Read(p []byte) (int, error) {
	return c.port.Read(p)
}

// Write drops whatever stale bytes are still buffered from a previous exchange first.
func (c *serialConn) Write(p []byte) (int, error) {
	if err := c.port.ResetInputBuffer(); err != nil {
		return 0, err
	}
	return c.port.Write(p)
}

func (c *serialConn) Close() error {
	return c.port.Close()
}

func (c *serialConn) SetTimeout(d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	return c.port.SetReadTimeout(d)
}

// SerialPorts lists the serial ports present on the host, sorted by name.
func SerialPorts() ([]string, error) {
	list, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.Strings(list)
	return list, nil
}

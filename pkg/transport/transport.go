// Package transport carries framed request/response exchanges to fiscal printers and payment
// terminals over TCP or a serial line.
//
// Exactly one request/response pair is in flight per connection. Connections used through
// WithConnection are closed on every exit path.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	defaultTimeout = 5 * time.Second
	readChunkSize  = 512
)

var (
	// ErrConnection covers refused, reset and otherwise unusable connections.
	ErrConnection = errors.New("transport: connection failed")
	// ErrTimeout is returned when the device did not answer within the exchange timeout.
	ErrTimeout = errors.New("transport: timeout waiting for response")
	// ErrClosed is returned when the remote side closed the stream before sending anything.
	ErrClosed = fmt.Errorf("%w: closed by remote before response", ErrConnection)
)

// IsTransient reports whether err is a connection or timeout failure, i.e. a failure after
// which the device is known not to have completed the request.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout)
}

// Conn is a single open link to a device.
type Conn interface {
	io.ReadWriteCloser
	// SetTimeout bounds all subsequent reads and writes to d from now.
	SetTimeout(d time.Duration) error
}

// Dialer opens connections to one device.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
	Address() string
}

// TCPDialer opens a fresh TCP connection per Dial.
type TCPDialer struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Address returns host:port.
func (d TCPDialer) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Dial connects with the dialer's connect timeout.
func (d TCPDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	nd := net.Dialer{Timeout: timeout}
	c, err := nd.DialContext(ctx, "tcp", d.Address())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(fmt.Errorf("dial %s: %w", d.Address(), err))
	}
	return &tcpConn{Conn: c}, nil
}

type tcpConn struct {
	net.Conn
}

func (c *tcpConn) SetTimeout(d time.Duration) error {
	return c.Conn.SetDeadline(time.Now().Add(d))
}

// WithConnection opens one connection, runs op on it and closes it afterwards, whatever the
// outcome. Cancelling ctx closes the connection, which unblocks any pending read.
func WithConnection[T any](ctx context.Context, d Dialer, op func(Conn) (T, error)) (T, error) {
	var zero T
	conn, err := d.Dial(ctx)
	if err != nil {
		return zero, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	res, err := op(conn)
	if err != nil && ctx.Err() != nil {
		return zero, ctx.Err()
	}
	return res, err
}

// Framer reports whether buf already holds a complete response message.
type Framer func(buf []byte) bool

// Exchanger writes one request and collects the response.
type Exchanger struct {
	Timeout  time.Duration
	Complete Framer
	// Logf receives hex dumps of both directions when set.
	Logf func(format string, args ...interface{})
}

// Do sends req over conn and reads until Complete accepts the accumulated input, the remote
// end closes the stream or the timeout fires, whichever happens first.
func (e Exchanger) Do(ctx context.Context, conn Conn, req []byte) ([]byte, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := conn.SetTimeout(timeout); err != nil {
		return nil, classify(fmt.Errorf("set timeout: %w", err))
	}
	if dl, ok := conn.(interface{ SetDeadline(time.Time) error }); ok {
		stop := context.AfterFunc(ctx, func() { dl.SetDeadline(time.Now()) })
		defer stop()
	}

	e.logf(">> TX % X", req)
	if _, err := conn.Write(req); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(fmt.Errorf("write: %w", err))
	}

	deadline := time.Now().Add(timeout)
	acc := make([]byte, 0, readChunkSize)
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if e.Complete == nil || e.Complete(acc) {
				e.logf("<< RX % X", acc)
				return acc, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(acc) > 0 {
					e.logf("<< RX (eof) % X", acc)
					return acc, nil
				}
				return nil, ErrClosed
			}
			return nil, classify(fmt.Errorf("read: %w", err))
		}
		// Serial ports report an expired read timeout as a zero-length read.
		if n == 0 && !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
	}
}

func (e Exchanger) logf(format string, args ...interface{}) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

// classify maps a raw I/O error onto ErrTimeout or ErrConnection, keeping the original text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

package connection

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/pkg/transport"
)

func TestSystemPortsSorted(t *testing.T) {
	s := &Service{listPorts: func() ([]string, error) { return []string{"COM3", "COM1", "/dev/ttyS0"}, nil }}
	got, err := s.SystemPorts()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/dev/ttyS0", "COM1", "COM3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ports = %v, want %v", got, want)
	}

	s.listPorts = func() ([]string, error) { return nil, errors.New("no access") }
	if _, err := s.SystemPorts(); err == nil {
		t.Error("expected the listing error")
	}
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	s := NewService()
	tests := []struct {
		name string
		port int
		ok   bool
	}{
		{"listening", addr.Port, true},
		{"closed", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := tt.port
			if !tt.ok {
				ln.Close()
				port = addr.Port
			}
			res := s.Probe(context.Background(), transport.TCPDialer{Host: "127.0.0.1", Port: port, Timeout: time.Second})
			if res.Result.Success != tt.ok {
				t.Fatalf("probe = %+v", res)
			}
			if !tt.ok && res.Result.Error.Code != models.CodeConnection {
				t.Errorf("code = %s", res.Result.Error.Code)
			}
		})
	}
}

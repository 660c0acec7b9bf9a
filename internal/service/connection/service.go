package connection

import (
	"context"
	"sort"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/pkg/transport"
)

// Service answers operator questions about how devices are attached.
type Service struct {
	listPorts func() ([]string, error)
}

// NewService returns a Service that lists ports through go.bug.st/serial.
func NewService() *Service {
	return &Service{listPorts: transport.SerialPorts}
}

// SystemPorts returns the serial ports present on this machine, sorted.
func (s *Service) SystemPorts() ([]string, error) {
	ports, err := s.listPorts()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}

// ProbeResult is the outcome of a connection attempt.
type ProbeResult struct {
	Address string        `json:"address"`
	Elapsed time.Duration `json:"elapsed"`
	Result  models.Result `json:"result"`
}

// Probe opens and closes one connection through d. No bytes are sent.
func (s *Service) Probe(ctx context.Context, d transport.Dialer) ProbeResult {
	start := time.Now()
	out := ProbeResult{Address: d.Address()}
	conn, err := d.Dial(ctx)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Result = models.ResultFromError(err)
		return out
	}
	conn.Close()
	out.Result = models.Result{Success: true, Status: "reachable"}
	return out
}

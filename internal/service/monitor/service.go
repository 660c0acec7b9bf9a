// Package monitor polls a device status query in the background and keeps the last answer.
package monitor

import (
	"context"
	"sync"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
)

// Probe queries the device once.
type Probe func(ctx context.Context) models.Result

// Status is the last known device state.
type Status struct {
	Online     bool      `json:"online"`
	Status     string    `json:"status,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Config holds the polling settings.
type Config struct {
	Name         string
	PollInterval time.Duration
	// Timeout bounds a single probe. Zero means PollInterval.
	Timeout time.Duration
}

// Service runs Probe every PollInterval until stopped.
type Service struct {
	probe  Probe
	config Config
	log    ports.Logger

	mutex    sync.Mutex
	status   Status
	cancel   context.CancelFunc
	done     chan struct{}
	isPaused bool
}

// NewService creates a monitor. It does nothing until Start.
func NewService(probe Probe, cfg Config, log ports.Logger) *Service {
	if log == nil {
		log = ports.NopLogger{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.PollInterval
	}
	return &Service{probe: probe, config: cfg, log: log.WithField("monitor", cfg.Name)}
}

// Start probes once immediately and then on every tick. Starting a running monitor
// restarts it.
func (s *Service) Start(ctx context.Context) {
	s.Stop()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.log.Info("status polling started every %v", s.config.PollInterval)
}

// Stop ends polling and waits for an in-flight probe to finish.
func (s *Service) Stop() {
	s.mutex.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mutex.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("status polling stopped")
}

// Pause suspends probing without stopping the ticker. The last known state is kept.
func (s *Service) Pause() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.isPaused = true
}

// Resume undoes Pause.
func (s *Service) Resume() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.isPaused = false
}

// Current returns the last known state.
func (s *Service) Current() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mutex.Lock()
			paused := s.isPaused
			s.mutex.Unlock()
			if !paused {
				s.check(ctx)
			}
		}
	}
}

// check runs one probe and records the outcome.
func (s *Service) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	res := s.probe(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	next := Status{Online: res.Success, Status: res.Status, LastUpdate: time.Now()}
	if res.Error != nil {
		next.ErrorCode, next.Message = res.Error.Code, res.Error.Message
	}

	s.mutex.Lock()
	changed := next.Online != s.status.Online || s.status.LastUpdate.IsZero()
	s.status = next
	s.mutex.Unlock()

	if !changed {
		return
	}
	if next.Online {
		s.log.Info("device online: %s", next.Status)
	} else {
		s.log.Warn("device offline: %s %s", next.ErrorCode, next.Message)
	}
}

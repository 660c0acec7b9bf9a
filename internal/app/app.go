// Package app assembles the devices, the service and the status monitor from configuration.
package app

import (
	"context"
	"strings"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/errmap"
	"fiscalbridge/internal/fiscal"
	"fiscalbridge/internal/infrastructure/config"
	"fiscalbridge/internal/service"
	"fiscalbridge/internal/service/monitor"
	"fiscalbridge/internal/terminal"
)

// App is one configured process.
type App struct {
	Config  *config.Config
	Service *service.Service
	// Monitor is nil when status polling is off or the printer is not usable.
	Monitor *monitor.Service
	Log     ports.Logger
}

// New builds the App. A device that cannot be built from cfg does not fail New: its
// configuration error is returned by every operation on that device instead.
func New(cfg *config.Config, log ports.Logger) *App {
	if log == nil {
		log = ports.NopLogger{}
	}
	deps := service.Deps{Enabled: cfg.Enabled, Logger: log}
	deps.Fiscal, deps.FiscalErr = FiscalDriver(cfg, log)
	if deps.FiscalErr != nil && cfg.Enabled {
		log.Error("fiscal printer unusable: %v", deps.FiscalErr)
	}
	deps.Terminal, deps.TerminalErr = Terminal(cfg, log)
	if deps.TerminalErr != nil {
		log.Error("payment terminal unusable: %v", deps.TerminalErr)
	}

	a := &App{Config: cfg, Service: service.New(deps), Log: log}
	if cfg.Enabled && deps.Fiscal != nil && cfg.StatusPoll > 0 && deps.Fiscal.Capabilities().Status {
		a.Monitor = monitor.NewService(a.Service.FiscalStatus, monitor.Config{
			Name:         deps.Fiscal.Capabilities().Name,
			PollInterval: cfg.StatusPoll,
		}, log)
		a.Service.OnLongOperation(func(busy bool) {
			if busy {
				a.Monitor.Pause()
			} else {
				a.Monitor.Resume()
			}
		})
	}
	return a
}

// Start begins background work.
func (a *App) Start(ctx context.Context) {
	if a.Monitor != nil {
		a.Monitor.Start(ctx)
	}
}

// Close stops background work and releases the terminal session.
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	return a.Service.Close()
}

// FiscalDriver builds the configured fiscal driver.
func FiscalDriver(cfg *config.Config, log ports.Logger) (ports.FiscalDriver, error) {
	if cfg.FiscalDriver == config.DriverMock {
		p, err := cfg.PosnetProfile()
		if err != nil {
			return nil, err
		}
		return fiscal.NewMock(p, log), nil
	}
	dialect, ok := fiscal.DialectFor(cfg.FiscalDriver)
	if !ok {
		return nil, models.NewError(models.CodeConfig, "unknown fiscal driver %q", cfg.FiscalDriver)
	}
	dialer, err := cfg.FiscalDevice().Dialer()
	if err != nil {
		return nil, err
	}
	fc := fiscal.Config{
		Dialect: dialect,
		Dialer:  dialer,
		Timeout: cfg.FiscalDevice().Timeout,
		Retry:   cfg.Retry,
		Logger:  log,
	}
	if cfg.FiscalDriver == config.DriverPosnet {
		if fc.Profile, err = cfg.PosnetProfile(); err != nil {
			return nil, err
		}
	}
	return fiscal.New(fc), nil
}

// Terminal builds the configured payment terminal.
func Terminal(cfg *config.Config, log ports.Logger) (ports.Terminal, error) {
	if cfg.TerminalDriver == config.TerminalMock {
		return terminal.NewMock(log), nil
	}
	dialer, err := cfg.TerminalDevice().Dialer()
	if err != nil {
		return nil, err
	}
	t, err := terminal.New(terminal.Config{
		Vendor:         errmap.Vendor(strings.ToLower(cfg.TerminalDriver)),
		Dialer:         dialer,
		Timeout:        cfg.TerminalDevice().Timeout,
		PaymentTimeout: cfg.PaymentTimeout,
		TerminalID:     cfg.TerminalID,
		MerchantID:     cfg.MerchantID,
		Currency:       cfg.Currency,
		Retry:          cfg.Retry,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

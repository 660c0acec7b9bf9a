package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/fiscal"
	"fiscalbridge/internal/infrastructure/config"
	"fiscalbridge/pkg/retry"
)

func baseConfig() *config.Config {
	return &config.Config{
		Enabled:        true,
		FiscalDriver:   config.DriverMock,
		TerminalDriver: config.TerminalMock,
		PosnetModel:    "thermal",
		Retry:          retry.Policy{MaxAttempts: 1},
	}
}

func receipt() models.Receipt {
	return models.Receipt{
		Items: []models.LineItem{
			{Name: "Nocleg", Quantity: 1, UnitPrice: 120},
			{Name: "Śniadanie", Quantity: 2, UnitPrice: 35.5},
		},
		PaymentType: models.PaymentCash,
	}
}

func TestNewWithMocks(t *testing.T) {
	a := New(baseConfig(), nil)
	defer a.Close()

	res := a.Service.PrintReceipt(context.Background(), receipt())
	if !res.Success || !strings.HasPrefix(res.DocumentNumber, fiscal.MockVendor) {
		t.Errorf("receipt = %+v", res)
	}
	pay := a.Service.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 191})
	if !pay.Success {
		t.Errorf("payment = %+v", pay.Error)
	}
}

func TestMissingAddressIsConfigError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*config.Config)
		call  func(*App) models.Result
	}{
		{
			name:  "posnet",
			setup: func(c *config.Config) { c.FiscalDriver = config.DriverPosnet },
			call:  func(a *App) models.Result { return a.Service.PrintReceipt(context.Background(), receipt()) },
		},
		{
			name:  "novitus",
			setup: func(c *config.Config) { c.FiscalDriver = config.DriverNovitus; c.Novitus.Host = "10.0.0.1" },
			call:  func(a *App) models.Result { return a.Service.PrintXReport(context.Background(), "") },
		},
		{
			name:  "ingenico",
			setup: func(c *config.Config) { c.TerminalDriver = config.TerminalIngenico },
			call: func(a *App) models.Result {
				return a.Service.ProcessPayment(context.Background(), models.PaymentRequest{Amount: 10})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.setup(cfg)
			a := New(cfg, nil)
			defer a.Close()
			res := tt.call(a)
			if res.Success || res.Error.Code != models.CodeConfig {
				t.Errorf("result = %+v, want %s", res, models.CodeConfig)
			}
		})
	}
}

func TestRealDriverWired(t *testing.T) {
	cfg := baseConfig()
	cfg.FiscalDriver = config.DriverElzab
	cfg.Elzab = config.Device{Name: "elzab", Host: "127.0.0.1", Port: 1, Timeout: time.Second}
	drv, err := FiscalDriver(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	caps := drv.Capabilities()
	if caps.Name != "elzab" || caps.Storno {
		t.Errorf("capabilities = %+v", caps)
	}
}

func TestMonitorOnlyWhenEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.StatusPoll = time.Hour
	if a := New(cfg, nil); a.Monitor == nil {
		t.Error("no monitor for an enabled printer")
	}
	cfg.Enabled = false
	if a := New(cfg, nil); a.Monitor != nil {
		t.Error("monitor created while fiscal printing is disabled")
	}
}

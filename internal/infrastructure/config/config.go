// Package config reads the process configuration from the environment and an optional
// YAML file. Values are fixed at start.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/infrastructure/logger"
	"fiscalbridge/internal/profile"
	"fiscalbridge/pkg/retry"
	"fiscalbridge/pkg/transport"
)

// Fiscal and terminal driver names.
const (
	DriverMock    = "mock"
	DriverElzab   = "elzab"
	DriverNovitus = "novitus"
	DriverPosnet  = "posnet"

	TerminalMock     = "MOCK"
	TerminalIngenico = "INGENICO"
	TerminalVerifone = "VERIFONE"
)

const (
	defaultTimeoutMS = 5000
	customPrefix     = "POSNET_CUSTOM_"
)

// Device is how one printer or terminal is reached. SerialPort, when set, wins over
// Host/Port.
type Device struct {
	Name       string
	Host       string
	Port       int
	Timeout    time.Duration
	SerialPort string
	BaudRate   int
}

// Dialer returns the connection factory for d, or a CONFIG_ERROR when neither a serial port
// nor both host and port are configured.
func (d Device) Dialer() (transport.Dialer, error) {
	if d.SerialPort != "" {
		return transport.SerialDialer{PortName: d.SerialPort, BaudRate: d.BaudRate}, nil
	}
	if strings.TrimSpace(d.Host) == "" || d.Port <= 0 {
		return nil, models.NewError(models.CodeConfig, "%s: %s_HOST and %s_PORT are required",
			d.Name, strings.ToUpper(d.Name), strings.ToUpper(d.Name))
	}
	return transport.TCPDialer{Host: d.Host, Port: d.Port, Timeout: d.Timeout}, nil
}

// Config is the whole process configuration.
type Config struct {
	Enabled      bool
	FiscalDriver string
	Elzab        Device
	Novitus      Device
	Posnet       Device
	PosnetModel  string
	// CustomBase and CustomOverrides build the "custom" Posnet profile. File overrides are
	// applied before environment overrides.
	CustomBase      string
	ProfileFile     string
	CustomOverrides profile.Overrides

	TerminalDriver string
	Ingenico       Device
	Verifone       Device
	TerminalID     string
	MerchantID     string
	Currency       string
	PaymentTimeout time.Duration

	Retry retry.Policy
	// StatusPoll is how often the gateway queries the printer status. Zero disables polling.
	StatusPoll time.Duration
	HTTPAddr   string
	Log        logger.Options
}

// Flags registers the command line flags shared by both binaries.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional YAML configuration file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("http-addr", "", "HTTP listen address")
}

// Load reads configuration from the environment, overlaid on the file named by --config.
// Environment variables always win.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if fs != nil {
		if f := fs.Lookup("log-level"); f != nil && f.Changed {
			v.Set("LOG_LEVEL", f.Value.String())
		}
		if f := fs.Lookup("http-addr"); f != nil && f.Changed {
			v.Set("HTTP_ADDR", f.Value.String())
		}
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("FISCAL_ENABLED", false)
	v.SetDefault("FISCAL_DRIVER", DriverMock)
	v.SetDefault("TERMINAL_DRIVER", TerminalMock)
	for _, name := range []string{"ELZAB", "NOVITUS", "POSNET", "INGENICO", "VERIFONE"} {
		v.SetDefault(name+"_TIMEOUT_MS", defaultTimeoutMS)
	}
	v.SetDefault("POSNET_MODEL", profile.DefaultModel)
	v.SetDefault("CURRENCY", "985")
	v.SetDefault("PAYMENT_TIMEOUT_MS", 120000)
	v.SetDefault("RETRY_ATTEMPTS", retry.DefaultMaxAttempts)
	v.SetDefault("RETRY_DELAY_MS", retry.DefaultDelay.Milliseconds())
	v.SetDefault("STATUS_POLL_MS", 60000)
	v.SetDefault("HTTP_ADDR", ":8089")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
}

func fromViper(v *viper.Viper) (*Config, error) {
	device := func(name string) Device {
		up := strings.ToUpper(name)
		return Device{
			Name:       name,
			Host:       v.GetString(up + "_HOST"),
			Port:       v.GetInt(up + "_PORT"),
			Timeout:    time.Duration(v.GetInt(up+"_TIMEOUT_MS")) * time.Millisecond,
			SerialPort: v.GetString(up + "_SERIAL_PORT"),
			BaudRate:   v.GetInt(up + "_BAUD_RATE"),
		}
	}

	c := &Config{
		Enabled:        v.GetBool("FISCAL_ENABLED"),
		FiscalDriver:   strings.ToLower(strings.TrimSpace(v.GetString("FISCAL_DRIVER"))),
		Elzab:          device(DriverElzab),
		Novitus:        device(DriverNovitus),
		Posnet:         device(DriverPosnet),
		PosnetModel:    strings.ToLower(strings.TrimSpace(v.GetString("POSNET_MODEL"))),
		CustomBase:     v.GetString(customPrefix + profile.KeyBase),
		ProfileFile:    v.GetString("POSNET_PROFILE_FILE"),
		TerminalDriver: strings.ToUpper(strings.TrimSpace(v.GetString("TERMINAL_DRIVER"))),
		Ingenico:       device("ingenico"),
		Verifone:       device("verifone"),
		TerminalID:     v.GetString("TERMINAL_ID"),
		MerchantID:     v.GetString("MERCHANT_ID"),
		Currency:       v.GetString("CURRENCY"),
		PaymentTimeout: time.Duration(v.GetInt("PAYMENT_TIMEOUT_MS")) * time.Millisecond,
		Retry: retry.Policy{
			MaxAttempts: v.GetInt("RETRY_ATTEMPTS"),
			Delay:       time.Duration(v.GetInt("RETRY_DELAY_MS")) * time.Millisecond,
		},
		StatusPoll: time.Duration(v.GetInt("STATUS_POLL_MS")) * time.Millisecond,
		HTTPAddr:   v.GetString("HTTP_ADDR"),
		Log: logger.Options{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}

	switch c.FiscalDriver {
	case DriverMock, DriverElzab, DriverNovitus, DriverPosnet:
	default:
		return nil, models.NewError(models.CodeConfig, "unknown FISCAL_DRIVER %q", c.FiscalDriver)
	}
	switch c.TerminalDriver {
	case TerminalMock, TerminalIngenico, TerminalVerifone:
	default:
		return nil, models.NewError(models.CodeConfig, "unknown TERMINAL_DRIVER %q", c.TerminalDriver)
	}

	if c.PosnetModel == profile.CustomModel {
		o, err := profile.ParseOverrides(func(key string) string { return v.GetString(customPrefix + key) })
		if err != nil {
			return nil, &models.Error{Code: models.CodeConfig, Message: "invalid custom profile", Cause: err}
		}
		c.CustomOverrides = o
	}
	return c, nil
}

// PosnetProfile resolves the capability profile of the configured Posnet model. The custom
// model is built once here from its base, the profile file and the environment overrides.
func (c *Config) PosnetProfile() (profile.Profile, error) {
	if c.PosnetModel != profile.CustomModel {
		return profile.NewRegistry().Get(c.PosnetModel), nil
	}
	b := profile.NewBuilder(c.CustomBase)
	if c.ProfileFile != "" {
		o, err := profile.LoadOverridesFile(c.ProfileFile)
		if err != nil {
			return profile.Profile{}, &models.Error{Code: models.CodeConfig, Message: "invalid profile file", Cause: err}
		}
		b.Apply(o)
	}
	p, err := b.Apply(c.CustomOverrides).Build()
	if err != nil {
		return profile.Profile{}, &models.Error{Code: models.CodeConfig, Message: "invalid custom profile", Cause: err}
	}
	return p, nil
}

// FiscalDevice returns the connection settings of the selected fiscal driver.
func (c *Config) FiscalDevice() Device {
	switch c.FiscalDriver {
	case DriverElzab:
		return c.Elzab
	case DriverNovitus:
		return c.Novitus
	}
	return c.Posnet
}

// TerminalDevice returns the connection settings of the selected terminal driver.
func (c *Config) TerminalDevice() Device {
	if c.TerminalDriver == TerminalVerifone {
		return c.Verifone
	}
	return c.Ingenico
}

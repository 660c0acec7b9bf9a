// Command fiscalctl runs one operator action against the configured devices and prints
// the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"fiscalbridge/internal/app"
	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/infrastructure/config"
	"fiscalbridge/internal/infrastructure/logger"
	"fiscalbridge/internal/service/connection"
)

const usage = `usage: fiscalctl [flags] <command>

commands:
  x                       print an X report
  z                       print a Z report (daily closure, cannot be repeated)
  periodic                print a periodic report (--month/--year or --from/--to)
  status                  query the fiscal printer
  batch                   close the payment terminal batch
  terminal-status         query the payment terminal
  ports                   list serial ports on this machine
  probe                   open and close one connection to each configured device

flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("fiscalctl", pflag.ContinueOnError)
	config.Flags(fs)
	force := fs.Bool("force", false, "reach the printer even when FISCAL_ENABLED is false")
	month := fs.Int("month", 0, "periodic report month (1-12)")
	year := fs.Int("year", 0, "periodic report year")
	from := fs.String("from", "", "periodic report first day (YYYY-MM-DD)")
	to := fs.String("to", "", "periodic report last day (YYYY-MM-DD)")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall time limit")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil || fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	if *force {
		cfg.Enabled = true
	}
	cfg.StatusPoll = 0
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a := app.New(cfg, log)
	defer a.Close()
	svc := a.Service
	conn := connection.NewService()

	var out any
	ok := true
	switch fs.Arg(0) {
	case "x":
		out = svc.PrintXReport(ctx, "")
	case "z":
		out = svc.PrintZReport(ctx, "")
	case "periodic":
		req := models.ReportRequest{Month: *month, Year: *year}
		if req.From, err = parseDay(*from); err == nil {
			req.To, err = parseDay(*to)
		}
		if err != nil {
			out = models.ResultFromError(models.Validation("%v", err))
			break
		}
		out = svc.PrintPeriodicReport(ctx, req)
	case "status":
		out = svc.FiscalStatus(ctx)
	case "batch":
		out = svc.CloseBatch(ctx, models.BatchCloseRequest{})
	case "terminal-status":
		out = svc.TerminalStatus(ctx)
	case "ports":
		list, err := conn.SystemPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ports: %v\n", err)
			return 1
		}
		out = list
	case "probe":
		probes := map[string]connection.ProbeResult{}
		for name, dev := range map[string]config.Device{"printer": cfg.FiscalDevice(), "terminal": cfg.TerminalDevice()} {
			d, err := dev.Dialer()
			if err != nil {
				probes[name] = connection.ProbeResult{Result: models.ResultFromError(err)}
				continue
			}
			probes[name] = conn.Probe(ctx, d)
		}
		out = probes
	default:
		fs.Usage()
		return 2
	}

	if res, isResult := out.(models.Result); isResult {
		ok = res.Success
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
	if !ok {
		return 1
	}
	return 0
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"fiscalbridge/internal/api"
	"fiscalbridge/internal/app"
	"fiscalbridge/internal/infrastructure/config"
	"fiscalbridge/internal/infrastructure/logger"
)

func main() {
	fs := pflag.NewFlagSet("fiscalgw", pflag.ExitOnError)
	config.Flags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	log.Info("fiscal printing enabled=%v driver=%s, terminal driver=%s", cfg.Enabled, cfg.FiscalDriver, cfg.TerminalDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, log)
	a.Start(ctx)
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(cfg.HTTPAddr, a.Service, a.Monitor, log)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server: %v", err)
		}
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(shutdown); err != nil {
			log.Error("shutdown: %v", err)
		}
	}
}

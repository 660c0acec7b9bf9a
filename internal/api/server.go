// Package api exposes the service over HTTP for the host application.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/service"
	"fiscalbridge/internal/service/monitor"
)

// Server is the HTTP gateway.
type Server struct {
	server  *http.Server
	router  *gin.Engine
	svc     *service.Service
	monitor *monitor.Service
	log     ports.Logger
}

// NewServer builds the router. mon may be nil when status polling is off. The gin mode is
// left to the caller.
func NewServer(addr string, svc *service.Service, mon *monitor.Service, log ports.Logger) *Server {
	if log == nil {
		log = ports.NopLogger{}
	}
	router := gin.New()
	s := &Server{svc: svc, monitor: mon, log: log.WithField("component", "http"), router: router}
	router.Use(gin.Recovery(), s.requestLogger())
	s.routes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Terminal transactions wait for the cardholder.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/api/v1")
	{
		fiscal := v1.Group("/fiscal")
		fiscal.GET("/capabilities", s.capabilities)
		fiscal.GET("/status", s.fiscalStatus)
		fiscal.POST("/receipt", s.printReceipt)
		fiscal.POST("/invoice", s.printInvoice)
		fiscal.POST("/storno", s.printStorno)
		fiscal.POST("/reports/x", s.printReport(models.ReportX))
		fiscal.POST("/reports/z", s.printReport(models.ReportZ))
		fiscal.POST("/reports/periodic", s.printReport(models.ReportPeriodic))

		terminal := v1.Group("/terminal")
		terminal.GET("/status", s.terminalStatus)
		terminal.POST("/payment", s.process(models.TxnSale))
		terminal.POST("/preauth", s.process(models.TxnPreAuth))
		terminal.POST("/capture", s.process(models.TxnCapture))
		terminal.POST("/void", s.process(models.TxnVoid))
		terminal.POST("/refund", s.process(models.TxnRefund))
		terminal.POST("/batch/close", s.closeBatch)
		terminal.POST("/cancel", s.cancel)
	}
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

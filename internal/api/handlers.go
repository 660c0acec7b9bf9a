package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fiscalbridge/internal/domain/models"
)

// statusFor maps a Result to the HTTP status it is sent with. The body is always the
// Result itself.
func statusFor(res models.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Error.Code {
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeReceiptNotFound:
		return http.StatusNotFound
	case models.CodeAlreadyStornoed:
		return http.StatusConflict
	case models.CodeNotSupported:
		return http.StatusNotImplemented
	case models.CodeConfig:
		return http.StatusServiceUnavailable
	case models.CodeConnection:
		return http.StatusBadGateway
	case models.CodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusUnprocessableEntity
}

func respond(c *gin.Context, res models.Result) {
	c.JSON(statusFor(res), res)
}

// bind decodes an optional JSON body into v. A malformed body is answered here.
func bind(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		respond(c, models.ResultFromError(models.Validation("invalid request body: %v", err)))
		return false
	}
	return true
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "fiscalEnabled": s.svc.Enabled()}
	if s.monitor != nil {
		body["printer"] = s.monitor.Current()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Capabilities())
}

func (s *Server) fiscalStatus(c *gin.Context) {
	respond(c, s.svc.FiscalStatus(c.Request.Context()))
}

func (s *Server) printReceipt(c *gin.Context) {
	var r models.Receipt
	if bind(c, &r) {
		respond(c, s.svc.PrintReceipt(c.Request.Context(), r))
	}
}

func (s *Server) printInvoice(c *gin.Context) {
	var inv models.Invoice
	if bind(c, &inv) {
		respond(c, s.svc.PrintInvoice(c.Request.Context(), inv))
	}
}

func (s *Server) printStorno(c *gin.Context) {
	var req models.StornoRequest
	if bind(c, &req) {
		respond(c, s.svc.PrintStorno(c.Request.Context(), req))
	}
}

func (s *Server) printReport(t models.ReportType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ReportRequest
		if !bind(c, &req) {
			return
		}
		req.Type = t
		respond(c, s.svc.PrintReport(c.Request.Context(), req))
	}
}

func (s *Server) process(t models.TxnType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PaymentRequest
		if !bind(c, &req) {
			return
		}
		req.Type = t
		respond(c, s.svc.Process(c.Request.Context(), req))
	}
}

func (s *Server) closeBatch(c *gin.Context) {
	var req models.BatchCloseRequest
	if bind(c, &req) {
		respond(c, s.svc.CloseBatch(c.Request.Context(), req))
	}
}

func (s *Server) terminalStatus(c *gin.Context) {
	respond(c, s.svc.TerminalStatus(c.Request.Context()))
}

func (s *Server) cancel(c *gin.Context) {
	respond(c, s.svc.CancelPayment(c.Request.Context()))
}

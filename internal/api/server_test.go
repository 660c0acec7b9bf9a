package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/fiscal"
	"fiscalbridge/internal/profile"
	"fiscalbridge/internal/service"
	"fiscalbridge/internal/terminal"
)

func newTestServer(enabled bool) *Server {
	gin.SetMode(gin.TestMode)
	svc := service.New(service.Deps{
		Enabled:  enabled,
		Fiscal:   fiscal.NewMock(profile.Profile{}, nil),
		Terminal: terminal.NewMock(nil),
	})
	return NewServer(":0", svc, nil, nil)
}

func do(t *testing.T, s *Server, method, path, body string) (int, models.Result) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var res models.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("%s %s: body %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, res
}

const receiptBody = `{
	"items": [
		{"name": "Nocleg", "quantity": 1, "unitPrice": 120.00, "vatRate": "8"},
		{"name": "Śniadanie", "quantity": 2, "unitPrice": 35.50, "vatRate": "8"}
	],
	"paymentType": "CASH"
}`

func TestEndpoints(t *testing.T) {
	s := newTestServer(true)
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"receipt", http.MethodPost, "/api/v1/fiscal/receipt", receiptBody, http.StatusOK, ""},
		{"receipt without items", http.MethodPost, "/api/v1/fiscal/receipt", `{"paymentType":"CASH"}`, http.StatusBadRequest, models.CodeValidation},
		{"malformed body", http.MethodPost, "/api/v1/fiscal/receipt", `{"items":`, http.StatusBadRequest, models.CodeValidation},
		{"x report", http.MethodPost, "/api/v1/fiscal/reports/x", "", http.StatusOK, ""},
		{"z report", http.MethodPost, "/api/v1/fiscal/reports/z", "", http.StatusOK, ""},
		{"periodic report", http.MethodPost, "/api/v1/fiscal/reports/periodic", `{"month":2,"year":2024}`, http.StatusOK, ""},
		{"periodic without range", http.MethodPost, "/api/v1/fiscal/reports/periodic", "", http.StatusBadRequest, models.CodeValidation},
		{"storno", http.MethodPost, "/api/v1/fiscal/storno", `{"originalReceiptNumber":"100","reason":"pomyłka","amount":12.5}`, http.StatusOK, ""},
		{"storno zero amount", http.MethodPost, "/api/v1/fiscal/storno", `{"originalReceiptNumber":"100","reason":"pomyłka"}`, http.StatusBadRequest, models.CodeValidation},
		{"fiscal status", http.MethodGet, "/api/v1/fiscal/status", "", http.StatusOK, ""},
		{"payment", http.MethodPost, "/api/v1/terminal/payment", `{"amount":191}`, http.StatusOK, ""},
		{"capture without original", http.MethodPost, "/api/v1/terminal/capture", `{"amount":10}`, http.StatusBadRequest, models.CodeValidation},
		{"refund", http.MethodPost, "/api/v1/terminal/refund", `{"amount":10}`, http.StatusOK, ""},
		{"batch close", http.MethodPost, "/api/v1/terminal/batch/close", "", http.StatusOK, ""},
		{"terminal status", http.MethodGet, "/api/v1/terminal/status", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := do(t, s, tt.method, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%+v)", status, tt.wantStatus, res.Error)
			}
			if tt.wantCode == "" {
				if !res.Success {
					t.Errorf("result = %+v", res.Error)
				}
				return
			}
			if res.Success || res.Error.Code != tt.wantCode {
				t.Errorf("result = %+v, want %s", res, tt.wantCode)
			}
		})
	}
}

func TestReceiptReturnsMockDocument(t *testing.T) {
	_, res := do(t, newTestServer(true), http.MethodPost, "/api/v1/fiscal/receipt", receiptBody)
	if !strings.HasPrefix(res.DocumentNumber, fiscal.MockVendor) {
		t.Errorf("document number = %q", res.DocumentNumber)
	}
}

func TestDisabledReceipt(t *testing.T) {
	status, res := do(t, newTestServer(false), http.MethodPost, "/api/v1/fiscal/receipt", receiptBody)
	if status != http.StatusOK || !res.Success || res.DocumentNumber != "" {
		t.Errorf("status %d result %+v, want bare success", status, res)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(false)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["fiscalEnabled"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.CodeNotSupported, http.StatusNotImplemented},
		{models.CodeConfig, http.StatusServiceUnavailable},
		{models.CodeConnection, http.StatusBadGateway},
		{models.CodeTimeout, http.StatusGatewayTimeout},
		{models.CodeReceiptNotFound, http.StatusNotFound},
		{models.CodeAlreadyStornoed, http.StatusConflict},
		{"14", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			res := models.Result{Error: &models.ErrorInfo{Code: tt.code}}
			if got := statusFor(res); got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

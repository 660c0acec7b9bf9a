package fiscal

import (
	"context"
	"fmt"
	"sync/atomic"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/internal/domain/ports"
	"fiscalbridge/internal/profile"
)

// MockVendor tags document numbers issued by the mock driver.
const MockVendor = "MOCK"

// Mock is a printer that needs no hardware. It validates requests like a real driver and
// issues sequential document numbers.
type Mock struct {
	profile profile.Profile
	log     ports.Logger
	seq     atomic.Int64
}

// NewMock returns a mock driver. A nil logger discards output.
func NewMock(p profile.Profile, log ports.Logger) *Mock {
	if p.Model == "" {
		p = profile.NewRegistry().Get(profile.DefaultModel)
	}
	if log == nil {
		log = ports.NopLogger{}
	}
	return &Mock{profile: p, log: log.WithField("vendor", "mock")}
}

var _ ports.FiscalDriver = (*Mock)(nil)

func (m *Mock) Capabilities() models.Capabilities {
	return models.Capabilities{
		Name: "mock", Receipt: true, Invoice: true, XReport: true, ZReport: true,
		PeriodicReport: true, Storno: true, Status: true,
	}
}

func (m *Mock) next(op models.Operation, correlationID string, warnings []string) models.Result {
	res := models.Ok(fmt.Sprintf("%s-%06d", MockVendor, m.seq.Add(1)))
	res.Warnings = warnings
	m.log.Info("%s %s: document %s", op, correlationID, res.DocumentNumber)
	return res
}

func (m *Mock) PrintReceipt(ctx context.Context, r models.Receipt) (models.Result, error) {
	if err := r.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	return m.next(models.OpReceipt, r.CorrelationID, m.profile.Validate(r.Items, r.HeaderLines, r.FooterLines)), nil
}

func (m *Mock) PrintInvoice(ctx context.Context, inv models.Invoice) (models.Result, error) {
	if err := inv.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	return m.next(models.OpInvoice, inv.CorrelationID, m.profile.Validate(inv.Items, nil, inv.FooterLines)), nil
}

func (m *Mock) PrintReport(ctx context.Context, req models.ReportRequest) (models.Result, error) {
	if req.Type == models.ReportPeriodic {
		if _, _, err := req.Range(); err != nil {
			return models.ResultFromError(err), err
		}
	}
	return m.next(models.ReportOperation(req.Type), req.CorrelationID, nil), nil
}

func (m *Mock) PrintStorno(ctx context.Context, req models.StornoRequest) (models.Result, error) {
	if err := req.Validate(); err != nil {
		return models.ResultFromError(err), err
	}
	return m.next(models.OpStorno, req.CorrelationID, nil), nil
}

func (m *Mock) Status(ctx context.Context) (models.Result, error) {
	return models.Result{Success: true, Status: "mock ready"}, nil
}

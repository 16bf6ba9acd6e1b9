package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fuelretail-cloud/internal/auth"
	deposits "fuelretail-cloud/internal/deposits/domain"
	"fuelretail-cloud/internal/observability/metrics"
	reporting "fuelretail-cloud/internal/reporting/domain"
	sales "fuelretail-cloud/internal/sales/domain"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// GenerateRequest asks for a daily snapshot of one station.
type GenerateRequest struct {
	StationID  string
	ReportDate time.Time
}

// ListReportsRequest filters report listings within scope.
type ListReportsRequest struct {
	StationID string
	Status    string
	From      time.Time
	To        time.Time
}

// VerifyResult reports the outcome of a fingerprint check.
type VerifyResult struct {
	Valid       bool
	Fingerprint string
}

// ReportService generates, finalizes and verifies daily station
// reports.
type ReportService struct {
	reports        reporting.Repository
	sales          sales.Repository
	deposits       deposits.Repository
	stationChecker auth.StationAccessChecker
	clock          Clock
}

// NewReportService constructs the service.
func NewReportService(reports reporting.Repository, salesRepo sales.Repository, depositsRepo deposits.Repository, stationChecker auth.StationAccessChecker, clock Clock) (*ReportService, error) {
	if reports == nil {
		return nil, errors.New("report service: nil report repository")
	}
	if salesRepo == nil {
		return nil, errors.New("report service: nil sales repository")
	}
	if depositsRepo == nil {
		return nil, errors.New("report service: nil deposit repository")
	}
	if stationChecker == nil {
		return nil, errors.New("report service: nil station checker")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ReportService{
		reports:        reports,
		sales:          salesRepo,
		deposits:       depositsRepo,
		stationChecker: stationChecker,
		clock:          clock,
	}, nil
}

// Generate folds one station-day of sales and deposits into a draft
// snapshot. Draft reports carry no fingerprint; integrity tags are
// only issued for finalized, immutable records.
func (s *ReportService) Generate(ctx context.Context, req GenerateRequest) (*reporting.Snapshot, error) {
	identity, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if req.StationID == "" {
		return nil, reporting.ErrMissingStation
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
		return nil, err
	}

	reportDate := req.ReportDate
	if reportDate.IsZero() {
		reportDate = s.clock.Now()
	}
	dayStart := time.Date(reportDate.Year(), reportDate.Month(), reportDate.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	records, err := s.sales.List(ctx, sales.Query{
		StationID: req.StationID,
		From:      dayStart,
		To:        dayEnd,
	})
	if err != nil {
		return nil, err
	}
	banked, err := s.deposits.List(ctx, deposits.Query{
		StationID: req.StationID,
		From:      dayStart,
		To:        dayEnd,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snapshot := foldSnapshot(req.StationID, dayStart, records, banked)
	snapshot.ID = uuid.NewString()
	snapshot.Status = reporting.StatusDraft
	snapshot.GeneratedBy = identity.Subject
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func foldSnapshot(stationID string, reportDate time.Time, records []sales.Sale, banked []deposits.Deposit) *reporting.Snapshot {
	totalSales := decimal.Zero
	cashCollected := decimal.Zero
	var totalVolume float64
	count := 0
	for _, sale := range records {
		if !sale.CountsTowardTotals() {
			continue
		}
		totalSales = totalSales.Add(decimal.NewFromFloat(sale.TotalAmount))
		totalVolume += sale.LitresSold
		count++
		if sale.PaymentMethod == sales.PaymentCash {
			cashCollected = cashCollected.Add(decimal.NewFromFloat(sale.CashReceived))
		}
	}

	pending := decimal.Zero
	confirmed := decimal.Zero
	for _, deposit := range banked {
		amount := decimal.NewFromFloat(deposit.Amount)
		if deposit.Status == deposits.StatusPending {
			pending = pending.Add(amount)
		} else {
			confirmed = confirmed.Add(amount)
		}
	}

	return &reporting.Snapshot{
		ReportDate:       reportDate,
		StationID:        stationID,
		TotalSales:       totalSales.Round(2).InexactFloat64(),
		TotalVolume:      totalVolume,
		TransactionCount: count,
		CashCollected:    cashCollected.Round(2).InexactFloat64(),
		DepositsPending:  pending.Round(2).InexactFloat64(),
		DepositsBanked:   confirmed.Round(2).InexactFloat64(),
		CashVariance:     cashCollected.Sub(confirmed).Round(2).InexactFloat64(),
	}
}

// Finalize freezes a draft and stamps its fingerprint. The fingerprint
// hashes the final status, so it is computed after the flip.
func (s *ReportService) Finalize(ctx context.Context, id string) (*reporting.Snapshot, error) {
	snapshot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot.Final() {
		return nil, reporting.ErrFinalized
	}
	snapshot.Status = reporting.StatusFinal
	snapshot.UpdatedAt = s.clock.Now()
	snapshot.Fingerprint = reporting.Fingerprint(*snapshot)
	if err := s.reports.Update(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Verify recomputes the fingerprint of a stored report and compares it
// against an externally supplied tag.
func (s *ReportService) Verify(ctx context.Context, id, supplied string) (*VerifyResult, error) {
	snapshot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := reporting.Fingerprint(*snapshot)
	if err := reporting.VerifyFingerprint(*snapshot, supplied); err != nil {
		metrics.ObserveReportVerify("tampered")
		return &VerifyResult{Valid: false, Fingerprint: expected}, err
	}
	metrics.ObserveReportVerify("ok")
	return &VerifyResult{Valid: true, Fingerprint: expected}, nil
}

// Get fetches a report the caller may see.
func (s *ReportService) Get(ctx context.Context, id string) (*reporting.Snapshot, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		if scope.Unrestricted {
			return nil, reporting.ErrNotFound
		}
		return nil, auth.ErrForbidden
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, snapshot.StationID); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// List returns reports within the caller's scope.
func (s *ReportService) List(ctx context.Context, req ListReportsRequest) ([]reporting.Snapshot, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	query := reporting.Query{Status: req.Status, From: req.From, To: req.To}
	if req.StationID != "" {
		if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
			return nil, err
		}
		query.StationID = req.StationID
	} else if !scope.Unrestricted {
		query.StationID = scope.StationID
		query.DealerID = scope.DealerID
		query.OMCID = scope.OMCID
	}
	return s.reports.List(ctx, query)
}

func (s *ReportService) callerScope(ctx context.Context) (auth.Identity, auth.Scope, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, auth.Scope{}, auth.ErrUnauthorized
	}
	scope, err := auth.ScopeFor(identity.Role, identity)
	if err != nil {
		return auth.Identity{}, auth.Scope{}, err
	}
	return identity, scope, nil
}

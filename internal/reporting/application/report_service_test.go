package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"fuelretail-cloud/internal/auth"
	deposits "fuelretail-cloud/internal/deposits/domain"
	depositmem "fuelretail-cloud/internal/deposits/infrastructure/memory"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
	reporting "fuelretail-cloud/internal/reporting/domain"
	reportmem "fuelretail-cloud/internal/reporting/infrastructure/memory"
	sales "fuelretail-cloud/internal/sales/domain"
	salesmem "fuelretail-cloud/internal/sales/infrastructure/memory"
)

type storeChecker struct{ store *salesmem.Store }

func (c storeChecker) EnsureStationInScope(ctx context.Context, scope auth.Scope, stationID string) error {
	station, err := c.store.GetStation(ctx, stationID)
	if err != nil {
		return err
	}
	if station == nil {
		if scope.Unrestricted {
			return auth.ErrNotFound
		}
		return auth.ErrForbidden
	}
	if !scope.AllowsStation(*station) {
		return auth.ErrForbidden
	}
	return nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

type reportFixture struct {
	salesStore   *salesmem.Store
	depositStore *depositmem.Store
	reportStore  *reportmem.Store
	service      *ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	salesStore := salesmem.NewStore()
	salesStore.SeedStation(masterdata.Station{ID: "st-accra-1", DealerID: "dealer-1", OMCID: "omc-1"})
	salesStore.SeedStation(masterdata.Station{ID: "st-kumasi-1", DealerID: "dealer-2", OMCID: "omc-1"})

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	salesStore.SeedSale(sales.Sale{
		ID: "s1", StationID: "st-accra-1", PumpID: "p1", ProductID: "petrol",
		TotalAmount: 3632.25, CashReceived: 3632.25, LitresSold: 250.50,
		PaymentMethod: sales.PaymentCash, Status: sales.StatusCompleted,
		TransactionTime: day.Add(9 * time.Hour),
	})
	salesStore.SeedSale(sales.Sale{
		ID: "s2", StationID: "st-accra-1", PumpID: "p2", ProductID: "diesel",
		TotalAmount: 1000.00, LitresSold: 70,
		PaymentMethod: sales.PaymentMobileMoney, Status: sales.StatusCompleted,
		TransactionTime: day.Add(11 * time.Hour),
	})
	cancelled := sales.Sale{
		ID: "s3", StationID: "st-accra-1", PumpID: "p1", ProductID: "petrol",
		TotalAmount: 500.00, CashReceived: 500.00, LitresSold: 34,
		PaymentMethod: sales.PaymentCash, Status: sales.StatusCancelled,
		TransactionTime: day.Add(12 * time.Hour),
	}
	salesStore.SeedSale(cancelled)

	depositStore := depositmem.NewStore()
	depositStore.SeedStation(masterdata.Station{ID: "st-accra-1", DealerID: "dealer-1", OMCID: "omc-1"})
	_ = depositStore.Create(context.Background(), &deposits.Deposit{
		ID: "dep-1", StationID: "st-accra-1", DepositDate: day.Add(15 * time.Hour),
		Amount: 3000.00, BankName: "GCB Bank", AccountNumber: "0123456789",
		Status: deposits.StatusConfirmed,
	})
	_ = depositStore.Create(context.Background(), &deposits.Deposit{
		ID: "dep-2", StationID: "st-accra-1", DepositDate: day.Add(16 * time.Hour),
		Amount: 400.00, BankName: "GCB Bank", AccountNumber: "0123456789",
		Status: deposits.StatusPending,
	})

	reportStore := reportmem.NewStore()
	reportStore.SeedOwnership("st-accra-1", "dealer-1", "omc-1")

	svc, err := NewReportService(reportStore, salesStore, depositStore, storeChecker{salesStore},
		fixedClock{day.Add(18 * time.Hour)})
	if err != nil {
		t.Fatalf("new report service: %v", err)
	}
	return &reportFixture{
		salesStore:   salesStore,
		depositStore: depositStore,
		reportStore:  reportStore,
		service:      svc,
	}
}

func managerReportCtx() context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		Subject:   "user-manager",
		Role:      auth.RoleStationManager,
		StationID: "st-accra-1",
	})
}

func TestGenerateDailySnapshot(t *testing.T) {
	fixture := newReportFixture(t)

	snapshot, err := fixture.service.Generate(managerReportCtx(), GenerateRequest{
		StationID:  "st-accra-1",
		ReportDate: time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if snapshot.Status != reporting.StatusDraft {
		t.Fatalf("status: got %q", snapshot.Status)
	}
	if snapshot.Fingerprint != "" {
		t.Fatal("draft must not carry a fingerprint")
	}
	if snapshot.TotalSales != 4632.25 {
		t.Fatalf("cancelled sale leaked into totals: got %v", snapshot.TotalSales)
	}
	if snapshot.TransactionCount != 2 {
		t.Fatalf("transaction count: got %d", snapshot.TransactionCount)
	}
	if snapshot.CashCollected != 3632.25 {
		t.Fatalf("cash collected: got %v", snapshot.CashCollected)
	}
	if snapshot.DepositsBanked != 3000.00 || snapshot.DepositsPending != 400.00 {
		t.Fatalf("deposits: banked %v pending %v", snapshot.DepositsBanked, snapshot.DepositsPending)
	}
	if snapshot.CashVariance != 632.25 {
		t.Fatalf("cash variance: got %v", snapshot.CashVariance)
	}
}

func TestGenerateOutOfScopeForbidden(t *testing.T) {
	fixture := newReportFixture(t)

	_, err := fixture.service.Generate(managerReportCtx(), GenerateRequest{StationID: "st-kumasi-1"})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestFinalizeStampsFingerprintOnce(t *testing.T) {
	fixture := newReportFixture(t)
	ctx := managerReportCtx()

	snapshot, err := fixture.service.Generate(ctx, GenerateRequest{
		StationID:  "st-accra-1",
		ReportDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	finalized, err := fixture.service.Finalize(ctx, snapshot.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !finalized.Final() || len(finalized.Fingerprint) != 8 {
		t.Fatalf("finalize result: status %q fingerprint %q", finalized.Status, finalized.Fingerprint)
	}
	if finalized.Fingerprint != reporting.Fingerprint(*finalized) {
		t.Fatal("stored fingerprint must match the recomputed one")
	}

	_, err = fixture.service.Finalize(ctx, snapshot.ID)
	if !errors.Is(err, reporting.ErrFinalized) {
		t.Fatalf("double finalize: got %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	fixture := newReportFixture(t)
	ctx := managerReportCtx()

	snapshot, err := fixture.service.Generate(ctx, GenerateRequest{
		StationID:  "st-accra-1",
		ReportDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	finalized, err := fixture.service.Finalize(ctx, snapshot.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	result, err := fixture.service.Verify(ctx, finalized.ID, finalized.Fingerprint)
	if err != nil || !result.Valid {
		t.Fatalf("genuine tag rejected: %v", err)
	}

	// Tamper with the stored totals behind the service's back.
	tampered, _ := fixture.reportStore.Get(context.Background(), finalized.ID)
	tampered.TotalSales += 1000
	_ = fixture.reportStore.Update(context.Background(), tampered)

	_, err = fixture.service.Verify(ctx, finalized.ID, finalized.Fingerprint)
	if !errors.Is(err, reporting.ErrTampered) {
		t.Fatalf("expected ErrTampered, got %v", err)
	}
}

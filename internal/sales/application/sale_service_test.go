package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"fuelretail-cloud/internal/auth"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
	sales "fuelretail-cloud/internal/sales/domain"
	"fuelretail-cloud/internal/sales/infrastructure/memory"
)

type storeChecker struct{ store *memory.Store }

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

type alertSpy struct {
	entries []string
}

func (a *alertSpy) RecordInconsistentWrite(_ context.Context, stationID, pumpID, saleID, detail string) error {
	a.entries = append(a.entries, stationID+"/"+pumpID+"/"+saleID+": "+detail)
	return nil
}

type publishSpy struct {
	events []any
}

func (p *publishSpy) Publish(_ context.Context, event any) error {
	p.events = append(p.events, event)
	return nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestStore() *memory.Store {
	store := memory.NewStore()
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	store.SeedStation(masterdata.Station{ID: "st-accra-1", Name: "Accra Ring Road", DealerID: "dealer-1", OMCID: "omc-1", CreatedAt: now, UpdatedAt: now})
	store.SeedStation(masterdata.Station{ID: "st-kumasi-1", Name: "Kumasi Central", DealerID: "dealer-2", OMCID: "omc-1", CreatedAt: now, UpdatedAt: now})
	store.SeedPump(masterdata.Pump{ID: "pump-1", StationID: "st-accra-1", PumpNumber: 1, FuelType: "petrol", CurrentMeter: 1000.00, Active: true, CreatedAt: now, UpdatedAt: now})
	store.SeedProduct(masterdata.Product{ID: "prod-petrol", Name: "Super Petrol", FuelType: "petrol", Unit: "L", CreatedAt: now})
	store.SeedPrice(masterdata.StationPrice{StationID: "st-accra-1", ProductID: "prod-petrol", UnitPrice: 14.50, UpdatedAt: now})
	return store
}

func newTestService(t *testing.T, store *memory.Store, alerts AlertRecorder, publisher EventPublisher) *SaleService {
	t.Helper()
	svc, err := NewSaleService(
		store, store.Pumps(), store.Products(), store.Prices(),
		storeChecker{store}, alerts, publisher,
		fixedClock{time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func attendantCtx(stationID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		Subject:   "user-attendant",
		Role:      auth.RoleAttendant,
		StationID: stationID,
	})
}

func managerCtx(stationID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		Subject:   "user-manager",
		Role:      auth.RoleStationManager,
		StationID: stationID,
	})
}

func TestCreateSaleAdvancesPumpMeter(t *testing.T) {
	store := newTestStore()
	publisher := &publishSpy{}
	svc := newTestService(t, store, nil, publisher)

	sale, err := svc.Create(attendantCtx("st-accra-1"), CreateSaleRequest{
		StationID:    "st-accra-1",
		PumpID:       "pump-1",
		ClosingMeter: 1250.50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if math.Abs(sale.LitresSold-250.50) > 1e-9 {
		t.Fatalf("litres: got %v", sale.LitresSold)
	}
	if math.Abs(sale.TotalAmount-3632.25) > 1e-9 {
		t.Fatalf("total: got %v", sale.TotalAmount)
	}
	if sale.Variance != 0 {
		t.Fatalf("variance should default to zero, got %v", sale.Variance)
	}

	pump, err := store.GetPump(context.Background(), "pump-1")
	if err != nil {
		t.Fatalf("get pump: %v", err)
	}
	if pump.CurrentMeter != 1250.50 {
		t.Fatalf("pump meter not advanced: got %v", pump.CurrentMeter)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one SaleRecorded event, got %d", len(publisher.events))
	}
}

func TestCreateSaleOutOfScopeIsForbidden(t *testing.T) {
	store := newTestStore()
	svc := newTestService(t, store, nil, nil)

	_, err := svc.Create(attendantCtx("st-accra-1"), CreateSaleRequest{
		StationID:    "st-kumasi-1",
		PumpID:       "pump-1",
		ClosingMeter: 1100,
	})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListOutOfScopeIsForbiddenNotEmpty(t *testing.T) {
	store := newTestStore()
	svc := newTestService(t, store, nil, nil)

	_, err := svc.List(managerCtx("st-accra-1"), ListSalesRequest{StationID: "st-kumasi-1"})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	list, err := svc.List(managerCtx("st-accra-1"), ListSalesRequest{StationID: "st-accra-1"})
	if err != nil {
		t.Fatalf("in-scope list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected zero rows for authorized empty set, got %d", len(list))
	}
}

func TestCreateSaleMissingPriceBlocks(t *testing.T) {
	store := newTestStore()
	svc := newTestService(t, store, nil, nil)

	// Kumasi has the pump-less fuel type; seed a pump without a price.
	store.SeedPump(masterdata.Pump{ID: "pump-9", StationID: "st-kumasi-1", PumpNumber: 1, FuelType: "diesel", CurrentMeter: 0, Active: true})
	store.SeedProduct(masterdata.Product{ID: "prod-diesel", Name: "Diesel", FuelType: "diesel", Unit: "L"})

	_, err := svc.Create(managerCtx("st-kumasi-1"), CreateSaleRequest{
		StationID:    "st-kumasi-1",
		PumpID:       "pump-9",
		ClosingMeter: 50,
	})
	if !errors.Is(err, sales.ErrMissingProduct) {
		t.Fatalf("expected ErrMissingProduct, got %v", err)
	}
}

func TestCreateSaleInconsistentWriteRaisesAlert(t *testing.T) {
	store := newTestStore()
	store.FailMeterAdvance = true
	alerts := &alertSpy{}
	svc := newTestService(t, store, alerts, nil)

	_, err := svc.Create(attendantCtx("st-accra-1"), CreateSaleRequest{
		StationID:    "st-accra-1",
		PumpID:       "pump-1",
		ClosingMeter: 1250.50,
	})
	if !errors.Is(err, sales.ErrInconsistentWrite) {
		t.Fatalf("expected ErrInconsistentWrite, got %v", err)
	}
	if len(alerts.entries) != 1 {
		t.Fatalf("expected one reconciliation alert, got %d", len(alerts.entries))
	}
}

func TestStaleMeterRejectedByStore(t *testing.T) {
	store := newTestStore()
	sale := &sales.Sale{
		ID: "sale-1", StationID: "st-accra-1", PumpID: "pump-1",
		OpeningMeter: 900, ClosingMeter: 950,
	}
	err := store.CreateWithMeterAdvance(context.Background(), sale)
	if !errors.Is(err, sales.ErrStaleMeter) {
		t.Fatalf("expected ErrStaleMeter, got %v", err)
	}
}

func TestVoidedSaleCannotBeEdited(t *testing.T) {
	store := newTestStore()
	svc := newTestService(t, store, nil, nil)
	ctx := managerCtx("st-accra-1")

	sale, err := svc.Create(ctx, CreateSaleRequest{
		StationID:    "st-accra-1",
		PumpID:       "pump-1",
		ClosingMeter: 1250.50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	voided, err := svc.Void(ctx, sale.ID)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if !voided.IsVoid || voided.Status != sales.StatusCancelled {
		t.Fatalf("void must force cancelled, got %+v", voided)
	}

	notes := "late edit"
	_, err = svc.Update(ctx, sale.ID, UpdateSaleRequest{Notes: &notes})
	if !errors.Is(err, sales.ErrSaleCancelled) {
		t.Fatalf("expected ErrSaleCancelled, got %v", err)
	}
}

func TestUpdateRecomputesDerivedFields(t *testing.T) {
	store := newTestStore()
	svc := newTestService(t, store, nil, nil)
	ctx := managerCtx("st-accra-1")

	sale, err := svc.Create(ctx, CreateSaleRequest{
		StationID:    "st-accra-1",
		PumpID:       "pump-1",
		ClosingMeter: 1250.50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newClosing := 1300.00
	updated, err := svc.Update(ctx, sale.ID, UpdateSaleRequest{ClosingMeter: &newClosing})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if math.Abs(updated.LitresSold-300.00) > 1e-9 {
		t.Fatalf("litres after edit: got %v", updated.LitresSold)
	}
	if math.Abs(updated.TotalAmount-4350.00) > 1e-9 {
		t.Fatalf("total after edit: got %v", updated.TotalAmount)
	}
}

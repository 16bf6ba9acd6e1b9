package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"fuelretail-cloud/internal/auth"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

type fakeStore struct {
	stations map[string]masterdata.Station
	pumps    map[string]masterdata.Pump
	products map[string]masterdata.Product
	prices   map[string]masterdata.StationPrice
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stations: make(map[string]masterdata.Station),
		pumps:    make(map[string]masterdata.Pump),
		products: make(map[string]masterdata.Product),
		prices:   make(map[string]masterdata.StationPrice),
	}
}

func (f *fakeStore) Get(_ context.Context, id string) (*masterdata.Station, error) {
	if station, ok := f.stations[id]; ok {
		return &station, nil
	}
	return nil, nil
}

func (f *fakeStore) List(_ context.Context) ([]masterdata.Station, error) {
	return f.filterStations(func(masterdata.Station) bool { return true }), nil
}

func (f *fakeStore) ListByDealer(_ context.Context, dealerID string) ([]masterdata.Station, error) {
	return f.filterStations(func(s masterdata.Station) bool { return s.DealerID == dealerID }), nil
}

func (f *fakeStore) ListByOMC(_ context.Context, omcID string) ([]masterdata.Station, error) {
	return f.filterStations(func(s masterdata.Station) bool { return s.OMCID == omcID }), nil
}

func (f *fakeStore) Save(_ context.Context, station *masterdata.Station) error {
	f.stations[station.ID] = *station
	return nil
}

func (f *fakeStore) filterStations(keep func(masterdata.Station) bool) []masterdata.Station {
	var result []masterdata.Station
	for _, station := range f.stations {
		if keep(station) {
			result = append(result, station)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type fakePumps struct{ store *fakeStore }

func (f fakePumps) Get(_ context.Context, id string) (*masterdata.Pump, error) {
	if pump, ok := f.store.pumps[id]; ok {
		return &pump, nil
	}
	return nil, nil
}

func (f fakePumps) ListByStation(_ context.Context, stationID string) ([]masterdata.Pump, error) {
	var result []masterdata.Pump
	for _, pump := range f.store.pumps {
		if pump.StationID == stationID {
			result = append(result, pump)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PumpNumber < result[j].PumpNumber })
	return result, nil
}

func (f fakePumps) Save(_ context.Context, pump *masterdata.Pump) error {
	f.store.pumps[pump.ID] = *pump
	return nil
}

func (f fakePumps) AdvanceMeter(_ context.Context, id string, expected, next float64) (bool, error) {
	pump, ok := f.store.pumps[id]
	if !ok || pump.CurrentMeter != expected {
		return false, nil
	}
	pump.CurrentMeter = next
	f.store.pumps[id] = pump
	return true, nil
}

type fakeProducts struct{ store *fakeStore }

func (f fakeProducts) Get(_ context.Context, id string) (*masterdata.Product, error) {
	if product, ok := f.store.products[id]; ok {
		return &product, nil
	}
	return nil, nil
}

func (f fakeProducts) GetByFuelType(_ context.Context, fuelType string) (*masterdata.Product, error) {
	for _, product := range f.store.products {
		if product.FuelType == fuelType {
			return &product, nil
		}
	}
	return nil, nil
}

func (f fakeProducts) List(_ context.Context) ([]masterdata.Product, error) {
	var result []masterdata.Product
	for _, product := range f.store.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f fakeProducts) GetStationPrice(_ context.Context, stationID, productID string) (*masterdata.StationPrice, error) {
	if price, ok := f.store.prices[stationID+"/"+productID]; ok {
		return &price, nil
	}
	return nil, nil
}

func (f fakeProducts) SetStationPrice(_ context.Context, price masterdata.StationPrice) error {
	f.store.prices[price.StationID+"/"+price.ProductID] = price
	return nil
}

type fakeChecker struct{ store *fakeStore }

func (c fakeChecker) EnsureStationInScope(ctx context.Context, scope auth.Scope, stationID string) error {
	station, _ := c.store.Get(ctx, stationID)
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

func seedStore() *fakeStore {
	store := newFakeStore()
	store.stations["st-accra-1"] = masterdata.Station{
		ID: "st-accra-1", Name: "Accra Main", DealerID: "dealer-1", OMCID: "omc-1",
	}
	store.stations["st-kumasi-1"] = masterdata.Station{
		ID: "st-kumasi-1", Name: "Kumasi North", DealerID: "dealer-2", OMCID: "omc-1",
	}
	store.pumps["pump-1"] = masterdata.Pump{
		ID: "pump-1", StationID: "st-accra-1", PumpNumber: 1,
		FuelType: "petrol", CurrentMeter: 1000, Active: true,
	}
	store.products["prod-petrol"] = masterdata.Product{
		ID: "prod-petrol", Name: "Petrol 95", FuelType: "petrol", Unit: "L",
	}
	return store
}

func newService(t *testing.T, store *fakeStore) *MasterdataService {
	t.Helper()
	svc, err := NewMasterdataService(store, fakePumps{store}, fakeProducts{store}, fakeProducts{store},
		fakeChecker{store}, fixedClock{time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("new masterdata service: %v", err)
	}
	return svc
}

func identityCtx(role auth.Role, subject string) context.Context {
	identity := auth.Identity{Subject: subject, Role: role}
	switch role {
	case auth.RoleAttendant, auth.RoleStationManager:
		identity.StationID = "st-accra-1"
	case auth.RoleDealer:
		identity.DealerID = "dealer-1"
	case auth.RoleOMC:
		identity.OMCID = "omc-1"
	}
	return auth.WithIdentity(context.Background(), identity)
}

func TestListStationsScoped(t *testing.T) {
	store := seedStore()
	svc := newService(t, store)

	dealerList, err := svc.ListStations(identityCtx(auth.RoleDealer, "user-dealer"))
	if err != nil {
		t.Fatalf("dealer list: %v", err)
	}
	if len(dealerList) != 1 || dealerList[0].ID != "st-accra-1" {
		t.Fatalf("dealer scope leak: %+v", dealerList)
	}

	omcList, err := svc.ListStations(identityCtx(auth.RoleOMC, "user-omc"))
	if err != nil {
		t.Fatalf("omc list: %v", err)
	}
	if len(omcList) != 2 {
		t.Fatalf("omc list: got %d stations", len(omcList))
	}

	adminList, err := svc.ListStations(identityCtx(auth.RoleAdmin, "user-admin"))
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(adminList) != 2 {
		t.Fatalf("admin list: got %d stations", len(adminList))
	}

	managerList, err := svc.ListStations(identityCtx(auth.RoleStationManager, "user-manager"))
	if err != nil {
		t.Fatalf("manager list: %v", err)
	}
	if len(managerList) != 1 || managerList[0].ID != "st-accra-1" {
		t.Fatalf("manager scope: %+v", managerList)
	}
}

func TestSaveStationRequiresAdmin(t *testing.T) {
	store := seedStore()
	svc := newService(t, store)

	_, err := svc.SaveStation(identityCtx(auth.RoleStationManager, "user-manager"), masterdata.Station{
		ID: "st-tema-1", Name: "Tema Harbour",
	})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("manager save: expected forbidden, got %v", err)
	}

	saved, err := svc.SaveStation(identityCtx(auth.RoleAdmin, "user-admin"), masterdata.Station{
		ID: "st-tema-1", Name: "Tema Harbour", DealerID: "dealer-1",
	})
	if err != nil {
		t.Fatalf("admin save: %v", err)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", saved)
	}
	if _, ok := store.stations["st-tema-1"]; !ok {
		t.Fatal("station not persisted")
	}
}

func TestListPumpsOutOfScopeForbidden(t *testing.T) {
	store := seedStore()
	svc := newService(t, store)

	pumps, err := svc.ListPumps(identityCtx(auth.RoleStationManager, "user-manager"), "st-accra-1")
	if err != nil {
		t.Fatalf("in-scope list: %v", err)
	}
	if len(pumps) != 1 || pumps[0].ID != "pump-1" {
		t.Fatalf("pump list: %+v", pumps)
	}

	_, err = svc.ListPumps(identityCtx(auth.RoleStationManager, "user-manager"), "st-kumasi-1")
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCorrectMeterCompareAndSet(t *testing.T) {
	store := seedStore()
	svc := newService(t, store)
	managerCtx := identityCtx(auth.RoleStationManager, "user-manager")

	_, err := svc.CorrectMeter(identityCtx(auth.RoleAttendant, "user-attendant"), CorrectMeterRequest{
		PumpID: "pump-1", Expected: 1000, Reading: 1010,
	})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("attendant correction: expected forbidden, got %v", err)
	}

	pump, err := svc.CorrectMeter(managerCtx, CorrectMeterRequest{
		PumpID: "pump-1", Expected: 1000, Reading: 1010,
	})
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if pump.CurrentMeter != 1010 {
		t.Fatalf("meter: got %v", pump.CurrentMeter)
	}

	// The stale expected value lost a race; nothing is overwritten.
	_, err = svc.CorrectMeter(managerCtx, CorrectMeterRequest{
		PumpID: "pump-1", Expected: 1000, Reading: 1020,
	})
	if !errors.Is(err, masterdata.ErrStaleMeter) {
		t.Fatalf("expected ErrStaleMeter, got %v", err)
	}
	if store.pumps["pump-1"].CurrentMeter != 1010 {
		t.Fatalf("stale write applied: %v", store.pumps["pump-1"].CurrentMeter)
	}
}

func TestSetPriceScopedToDealer(t *testing.T) {
	store := seedStore()
	svc := newService(t, store)
	dealerCtx := identityCtx(auth.RoleDealer, "user-dealer")

	price, err := svc.SetPrice(dealerCtx, SetPriceRequest{
		StationID: "st-accra-1", ProductID: "prod-petrol", UnitPrice: 14.50,
	})
	if err != nil {
		t.Fatalf("set price: %v", err)
	}
	if price.UnitPrice != 14.50 {
		t.Fatalf("price: got %v", price.UnitPrice)
	}
	if _, ok := store.prices["st-accra-1/prod-petrol"]; !ok {
		t.Fatal("price not persisted")
	}

	_, err = svc.SetPrice(dealerCtx, SetPriceRequest{
		StationID: "st-kumasi-1", ProductID: "prod-petrol", UnitPrice: 14.50,
	})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("out-of-scope price: expected forbidden, got %v", err)
	}

	_, err = svc.SetPrice(identityCtx(auth.RoleStationManager, "user-manager"), SetPriceRequest{
		StationID: "st-accra-1", ProductID: "prod-petrol", UnitPrice: 15.00,
	})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("manager price: expected forbidden, got %v", err)
	}

	_, err = svc.SetPrice(dealerCtx, SetPriceRequest{
		StationID: "st-accra-1", ProductID: "prod-petrol", UnitPrice: 0,
	})
	if err == nil {
		t.Fatal("non-positive price must be rejected")
	}

	_, err = svc.SetPrice(dealerCtx, SetPriceRequest{
		StationID: "st-accra-1", ProductID: "prod-unknown", UnitPrice: 14.50,
	})
	if !errors.Is(err, masterdata.ErrUnknownProduct) {
		t.Fatalf("unknown product: got %v", err)
	}
}

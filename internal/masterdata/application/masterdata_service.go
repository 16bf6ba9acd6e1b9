package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fuelretail-cloud/internal/auth"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SetPriceRequest configures the unit price for a station+product pair.
type SetPriceRequest struct {
	StationID string
	ProductID string
	UnitPrice float64
}

// CorrectMeterRequest adjusts a pump meter out of band, for example
// after a hardware counter swap. Expected is the reading the caller
// last saw; the adjustment is compare-and-set on it.
type CorrectMeterRequest struct {
	PumpID   string
	Expected float64
	Reading  float64
}

// MasterdataService serves station, pump, product and price
// administration within the caller's scope.
type MasterdataService struct {
	stations       masterdata.StationRepository
	pumps          masterdata.PumpRepository
	products       masterdata.ProductRepository
	prices         masterdata.PriceRepository
	stationChecker auth.StationAccessChecker
	clock          Clock
}

// NewMasterdataService constructs the service.
func NewMasterdataService(
	stations masterdata.StationRepository,
	pumps masterdata.PumpRepository,
	products masterdata.ProductRepository,
	prices masterdata.PriceRepository,
	stationChecker auth.StationAccessChecker,
	clock Clock,
) (*MasterdataService, error) {
	if stations == nil {
		return nil, errors.New("masterdata service: nil station repository")
	}
	if pumps == nil {
		return nil, errors.New("masterdata service: nil pump repository")
	}
	if products == nil {
		return nil, errors.New("masterdata service: nil product repository")
	}
	if prices == nil {
		return nil, errors.New("masterdata service: nil price repository")
	}
	if stationChecker == nil {
		return nil, errors.New("masterdata service: nil station checker")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &MasterdataService{
		stations:       stations,
		pumps:          pumps,
		products:       products,
		prices:         prices,
		stationChecker: stationChecker,
		clock:          clock,
	}, nil
}

// ListStations returns the stations the caller may see, driven by the
// same ownership edges the scope filter uses.
func (s *MasterdataService) ListStations(ctx context.Context) ([]masterdata.Station, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case scope.Unrestricted:
		return s.stations.List(ctx)
	case scope.OMCID != "":
		return s.stations.ListByOMC(ctx, scope.OMCID)
	case scope.DealerID != "":
		return s.stations.ListByDealer(ctx, scope.DealerID)
	case scope.StationID != "":
		station, err := s.stations.Get(ctx, scope.StationID)
		if err != nil {
			return nil, err
		}
		if station == nil {
			return nil, auth.ErrForbidden
		}
		return []masterdata.Station{*station}, nil
	}
	return nil, auth.ErrForbidden
}

// GetStation fetches a station the caller is allowed to see.
func (s *MasterdataService) GetStation(ctx context.Context, id string) (*masterdata.Station, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, id); err != nil {
		return nil, err
	}
	station, err := s.stations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, auth.ErrNotFound
	}
	return station, nil
}

// SaveStation upserts a station. Admin only: the ownership edges
// written here drive every scope decision downstream.
func (s *MasterdataService) SaveStation(ctx context.Context, station masterdata.Station) (*masterdata.Station, error) {
	identity, _, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.RoleAtLeast(identity.Role, auth.RoleAdmin) {
		return nil, auth.ErrForbidden
	}
	now := s.clock.Now()
	if station.ID == "" {
		station.ID = uuid.NewString()
	}
	if station.CreatedAt.IsZero() {
		station.CreatedAt = now
	}
	station.UpdatedAt = now
	if err := station.Validate(); err != nil {
		return nil, err
	}
	if err := s.stations.Save(ctx, &station); err != nil {
		return nil, err
	}
	return &station, nil
}

// ListPumps returns the pumps of a station within scope.
func (s *MasterdataService) ListPumps(ctx context.Context, stationID string) ([]masterdata.Pump, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if stationID == "" {
		return nil, errors.New("masterdata: station_id is required")
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, stationID); err != nil {
		return nil, err
	}
	return s.pumps.ListByStation(ctx, stationID)
}

// SavePump upserts a pump. Admin only; the meter moves through sales
// or CorrectMeter, never through a plain save of an existing pump.
func (s *MasterdataService) SavePump(ctx context.Context, pump masterdata.Pump) (*masterdata.Pump, error) {
	identity, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.RoleAtLeast(identity.Role, auth.RoleAdmin) {
		return nil, auth.ErrForbidden
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, pump.StationID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if pump.ID == "" {
		pump.ID = uuid.NewString()
	}
	if existing, err := s.pumps.Get(ctx, pump.ID); err != nil {
		return nil, err
	} else if existing != nil {
		pump.CurrentMeter = existing.CurrentMeter
		pump.CreatedAt = existing.CreatedAt
	}
	if pump.CreatedAt.IsZero() {
		pump.CreatedAt = now
	}
	pump.UpdatedAt = now
	if err := pump.Validate(); err != nil {
		return nil, err
	}
	if err := s.pumps.Save(ctx, &pump); err != nil {
		return nil, err
	}
	return &pump, nil
}

// CorrectMeter applies an out-of-band meter adjustment. Station
// manager and up; compare-and-set so a concurrent sale on the same
// pump cannot be silently overwritten.
func (s *MasterdataService) CorrectMeter(ctx context.Context, req CorrectMeterRequest) (*masterdata.Pump, error) {
	identity, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.RoleAtLeast(identity.Role, auth.RoleStationManager) {
		return nil, auth.ErrForbidden
	}
	if req.Reading < 0 {
		return nil, errors.New("masterdata: negative meter reading")
	}
	pump, err := s.pumps.Get(ctx, req.PumpID)
	if err != nil {
		return nil, err
	}
	if pump == nil {
		if scope.Unrestricted {
			return nil, auth.ErrNotFound
		}
		return nil, auth.ErrForbidden
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, pump.StationID); err != nil {
		return nil, err
	}
	applied, err := s.pumps.AdvanceMeter(ctx, req.PumpID, req.Expected, req.Reading)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, masterdata.ErrStaleMeter
	}
	pump.CurrentMeter = req.Reading
	pump.UpdatedAt = s.clock.Now()
	return pump, nil
}

// ListProducts returns the product catalogue.
func (s *MasterdataService) ListProducts(ctx context.Context) ([]masterdata.Product, error) {
	if _, _, err := s.callerScope(ctx); err != nil {
		return nil, err
	}
	return s.products.List(ctx)
}

// SetPrice configures a station+product unit price. Dealer and up,
// within scope; a non-positive price would block every sale on the
// product, so it is rejected outright.
func (s *MasterdataService) SetPrice(ctx context.Context, req SetPriceRequest) (*masterdata.StationPrice, error) {
	identity, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.RoleAtLeast(identity.Role, auth.RoleDealer) {
		return nil, auth.ErrForbidden
	}
	if req.UnitPrice <= 0 {
		return nil, errors.New("masterdata: unit price must be positive")
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, masterdata.ErrUnknownProduct
	}
	price := masterdata.StationPrice{
		StationID: req.StationID,
		ProductID: req.ProductID,
		UnitPrice: req.UnitPrice,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.prices.SetStationPrice(ctx, price); err != nil {
		return nil, err
	}
	return &price, nil
}

func (s *MasterdataService) callerScope(ctx context.Context) (auth.Identity, auth.Scope, error) {
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

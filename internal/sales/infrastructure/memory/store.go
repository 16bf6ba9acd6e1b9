// Package memory provides an in-memory store backing the sales workflow
// in tests and demo mode. It implements the sales repository plus the
// masterdata pump, product and price repositories over one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	masterdata "fuelretail-cloud/internal/masterdata/domain"
	sales "fuelretail-cloud/internal/sales/domain"
)

// Store holds sales and masterdata records in memory.
type Store struct {
	mu       sync.RWMutex
	sales    map[string]sales.Sale
	stations map[string]masterdata.Station
	pumps    map[string]masterdata.Pump
	products map[string]masterdata.Product
	prices   map[string]masterdata.StationPrice

	// FailMeterAdvance simulates a partial write: the sale row persists
	// but the pump meter is left behind.
	FailMeterAdvance bool
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		sales:    make(map[string]sales.Sale),
		stations: make(map[string]masterdata.Station),
		pumps:    make(map[string]masterdata.Pump),
		products: make(map[string]masterdata.Product),
		prices:   make(map[string]masterdata.StationPrice),
	}
}

func priceKey(stationID, productID string) string {
	return stationID + "|" + productID
}

// SeedStation registers a station.
func (s *Store) SeedStation(station masterdata.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[station.ID] = station
}

// SeedPump registers a pump.
func (s *Store) SeedPump(pump masterdata.Pump) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pumps[pump.ID] = pump
}

// SeedProduct registers a product.
func (s *Store) SeedProduct(product masterdata.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

// SeedSale registers a sale without touching pump meters.
func (s *Store) SeedSale(sale sales.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = sale
}

// SeedPrice registers a station price.
func (s *Store) SeedPrice(price masterdata.StationPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[priceKey(price.StationID, price.ProductID)] = price
}

// ---- sales.Repository ----

// CreateWithMeterAdvance inserts the sale and advances the pump meter
// under one lock.
func (s *Store) CreateWithMeterAdvance(_ context.Context, sale *sales.Sale) error {
	if sale == nil {
		return sales.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pump, ok := s.pumps[sale.PumpID]
	if !ok {
		return sales.ErrMissingPump
	}
	if pump.CurrentMeter != sale.OpeningMeter {
		return sales.ErrStaleMeter
	}

	s.sales[sale.ID] = *sale
	if s.FailMeterAdvance {
		return sales.ErrInconsistentWrite
	}
	pump.CurrentMeter = sale.ClosingMeter
	pump.UpdatedAt = sale.UpdatedAt
	s.pumps[pump.ID] = pump
	return nil
}

// Get fetches a sale. Returns nil when absent.
func (s *Store) Get(_ context.Context, id string) (*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, nil
	}
	copy := sale
	return &copy, nil
}

// Update rewrites a sale.
func (s *Store) Update(_ context.Context, sale *sales.Sale) error {
	if sale == nil {
		return sales.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sales[sale.ID]; !ok {
		return sales.ErrNotFound
	}
	s.sales[sale.ID] = *sale
	return nil
}

// List returns sales matching the query, newest first.
func (s *Store) List(_ context.Context, query sales.Query) ([]sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []sales.Sale
	for _, sale := range s.sales {
		if !s.matches(sale, query) {
			continue
		}
		result = append(result, sale)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TransactionTime.Equal(result[j].TransactionTime) {
			return result[i].TransactionTime.After(result[j].TransactionTime)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) matches(sale sales.Sale, query sales.Query) bool {
	station, hasStation := s.stations[sale.StationID]
	if query.StationID != "" && sale.StationID != query.StationID {
		return false
	}
	if query.DealerID != "" && (!hasStation || station.DealerID != query.DealerID) {
		return false
	}
	if query.OMCID != "" && (!hasStation || station.OMCID != query.OMCID) {
		return false
	}
	if query.PumpID != "" && sale.PumpID != query.PumpID {
		return false
	}
	if query.ProductID != "" && sale.ProductID != query.ProductID {
		return false
	}
	if query.Status != "" {
		if sale.Status != query.Status {
			return false
		}
	} else if !query.IncludeCancelled && sale.Status == sales.StatusCancelled {
		return false
	}
	if !query.From.IsZero() && sale.TransactionTime.Before(query.From) {
		return false
	}
	if !query.To.IsZero() && !sale.TransactionTime.Before(query.To) {
		return false
	}
	return true
}

// ---- masterdata repositories ----

// GetStation fetches a station. Returns nil when absent.
func (s *Store) GetStation(_ context.Context, id string) (*masterdata.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	station, ok := s.stations[id]
	if !ok {
		return nil, nil
	}
	copy := station
	return &copy, nil
}

// Get fetches a pump by id. Returns nil when absent.
func (s *Store) GetPump(_ context.Context, id string) (*masterdata.Pump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pump, ok := s.pumps[id]
	if !ok {
		return nil, nil
	}
	copy := pump
	return &copy, nil
}

// Pumps adapts the store to masterdata.PumpRepository.
func (s *Store) Pumps() masterdata.PumpRepository { return pumpView{s} }

// Products adapts the store to masterdata.ProductRepository.
func (s *Store) Products() masterdata.ProductRepository { return productView{s} }

// Prices adapts the store to masterdata.PriceRepository.
func (s *Store) Prices() masterdata.PriceRepository { return priceView{s} }

type pumpView struct{ store *Store }

func (v pumpView) Get(ctx context.Context, id string) (*masterdata.Pump, error) {
	return v.store.GetPump(ctx, id)
}

func (v pumpView) ListByStation(_ context.Context, stationID string) ([]masterdata.Pump, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	var result []masterdata.Pump
	for _, pump := range v.store.pumps {
		if pump.StationID == stationID {
			result = append(result, pump)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PumpNumber < result[j].PumpNumber })
	return result, nil
}

func (v pumpView) Save(_ context.Context, pump *masterdata.Pump) error {
	if pump == nil {
		return nil
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.pumps[pump.ID] = *pump
	return nil
}

func (v pumpView) AdvanceMeter(_ context.Context, id string, expected, next float64) (bool, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	pump, ok := v.store.pumps[id]
	if !ok || pump.CurrentMeter != expected {
		return false, nil
	}
	pump.CurrentMeter = next
	pump.UpdatedAt = time.Now().UTC()
	v.store.pumps[id] = pump
	return true, nil
}

type productView struct{ store *Store }

func (v productView) Get(_ context.Context, id string) (*masterdata.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	product, ok := v.store.products[id]
	if !ok {
		return nil, nil
	}
	copy := product
	return &copy, nil
}

func (v productView) GetByFuelType(_ context.Context, fuelType string) (*masterdata.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	for _, product := range v.store.products {
		if product.FuelType == fuelType {
			copy := product
			return &copy, nil
		}
	}
	return nil, nil
}

func (v productView) List(_ context.Context) ([]masterdata.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	var result []masterdata.Product
	for _, product := range v.store.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type priceView struct{ store *Store }

func (v priceView) GetStationPrice(_ context.Context, stationID, productID string) (*masterdata.StationPrice, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	price, ok := v.store.prices[priceKey(stationID, productID)]
	if !ok {
		return nil, nil
	}
	copy := price
	return &copy, nil
}

func (v priceView) SetStationPrice(_ context.Context, price masterdata.StationPrice) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.prices[priceKey(price.StationID, price.ProductID)] = price
	return nil
}

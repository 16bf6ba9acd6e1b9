package memory

import (
	"context"
	"sort"
	"sync"

	deposits "fuelretail-cloud/internal/deposits/domain"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// Store is an in-memory deposits.Repository used by tests and local
// runs without postgres.
type Store struct {
	mu       sync.RWMutex
	deposits map[string]deposits.Deposit
	stations map[string]masterdata.Station
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		deposits: make(map[string]deposits.Deposit),
		stations: make(map[string]masterdata.Station),
	}
}

// SeedStation registers a station for scope filtering.
func (s *Store) SeedStation(station masterdata.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[station.ID] = station
}

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

// Create inserts a deposit.
func (s *Store) Create(_ context.Context, deposit *deposits.Deposit) error {
	if deposit == nil {
		return deposits.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[deposit.ID] = *deposit
	return nil
}

// Get fetches a deposit. Returns nil when absent.
func (s *Store) Get(_ context.Context, id string) (*deposits.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deposit, ok := s.deposits[id]
	if !ok {
		return nil, nil
	}
	copy := deposit
	return &copy, nil
}

// Update rewrites editable fields, leaving status untouched.
func (s *Store) Update(_ context.Context, deposit *deposits.Deposit) error {
	if deposit == nil {
		return deposits.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.deposits[deposit.ID]
	if !ok {
		return deposits.ErrNotFound
	}
	next := *deposit
	next.Status = current.Status
	s.deposits[deposit.ID] = next
	return nil
}

// TransitionStatus applies a compare-and-set status move.
func (s *Store) TransitionStatus(_ context.Context, deposit *deposits.Deposit, expected string) error {
	if deposit == nil {
		return deposits.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.deposits[deposit.ID]
	if !ok {
		return deposits.ErrNotFound
	}
	if current.Status != expected {
		return deposits.ErrStaleStatus
	}
	s.deposits[deposit.ID] = *deposit
	return nil
}

// Delete removes a deposit.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[id]; !ok {
		return deposits.ErrNotFound
	}
	delete(s.deposits, id)
	return nil
}

// List returns deposits matching the query, newest first.
func (s *Store) List(_ context.Context, query deposits.Query) ([]deposits.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []deposits.Deposit
	for _, deposit := range s.deposits {
		if !s.matches(deposit, query) {
			continue
		}
		result = append(result, deposit)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DepositDate.Equal(result[j].DepositDate) {
			return result[i].DepositDate.After(result[j].DepositDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) matches(deposit deposits.Deposit, query deposits.Query) bool {
	station, hasStation := s.stations[deposit.StationID]
	if query.StationID != "" && deposit.StationID != query.StationID {
		return false
	}
	if query.DealerID != "" && (!hasStation || station.DealerID != query.DealerID) {
		return false
	}
	if query.OMCID != "" && (!hasStation || station.OMCID != query.OMCID) {
		return false
	}
	if query.Status != "" && deposit.Status != query.Status {
		return false
	}
	if !query.From.IsZero() && deposit.DepositDate.Before(query.From) {
		return false
	}
	if !query.To.IsZero() && !deposit.DepositDate.Before(query.To) {
		return false
	}
	return true
}

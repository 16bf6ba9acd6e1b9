package memory

import (
	"context"
	"sort"
	"sync"

	reporting "fuelretail-cloud/internal/reporting/domain"
)

// Store is an in-memory reporting.Repository used by tests and local
// runs without postgres. Scope joins against stations are left to the
// caller's query fields.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]reporting.Snapshot
	owners    map[string]ownership
}

type ownership struct {
	dealerID string
	omcID    string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]reporting.Snapshot),
		owners:    make(map[string]ownership),
	}
}

// SeedOwnership registers a station's dealer and OMC for scope
// filtering in List.
func (s *Store) SeedOwnership(stationID, dealerID, omcID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[stationID] = ownership{dealerID: dealerID, omcID: omcID}
}

// Create inserts a snapshot.
func (s *Store) Create(_ context.Context, snapshot *reporting.Snapshot) error {
	if snapshot == nil {
		return reporting.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = *snapshot
	return nil
}

// Get fetches a snapshot. Returns nil when absent.
func (s *Store) Get(_ context.Context, id string) (*reporting.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, nil
	}
	copy := snapshot
	return &copy, nil
}

// Update rewrites a snapshot.
func (s *Store) Update(_ context.Context, snapshot *reporting.Snapshot) error {
	if snapshot == nil {
		return reporting.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.ID]; !ok {
		return reporting.ErrNotFound
	}
	s.snapshots[snapshot.ID] = *snapshot
	return nil
}

// List returns snapshots matching the query, newest first.
func (s *Store) List(_ context.Context, query reporting.Query) ([]reporting.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []reporting.Snapshot
	for _, snapshot := range s.snapshots {
		if !s.matches(snapshot, query) {
			continue
		}
		result = append(result, snapshot)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReportDate.Equal(result[j].ReportDate) {
			return result[i].ReportDate.After(result[j].ReportDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) matches(snapshot reporting.Snapshot, query reporting.Query) bool {
	owner, hasOwner := s.owners[snapshot.StationID]
	if query.StationID != "" && snapshot.StationID != query.StationID {
		return false
	}
	if query.DealerID != "" && (!hasOwner || owner.dealerID != query.DealerID) {
		return false
	}
	if query.OMCID != "" && (!hasOwner || owner.omcID != query.OMCID) {
		return false
	}
	if query.Status != "" && snapshot.Status != query.Status {
		return false
	}
	if !query.From.IsZero() && snapshot.ReportDate.Before(query.From) {
		return false
	}
	if !query.To.IsZero() && !snapshot.ReportDate.Before(query.To) {
		return false
	}
	return true
}

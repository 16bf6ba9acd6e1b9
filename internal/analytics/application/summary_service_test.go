package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fuelretail-cloud/internal/auth"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
	sales "fuelretail-cloud/internal/sales/domain"
	"fuelretail-cloud/internal/sales/infrastructure/memory"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *mapCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}

type summaryChecker struct{ store *memory.Store }

func (c summaryChecker) EnsureStationInScope(ctx context.Context, scope auth.Scope, stationID string) error {
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

type summaryClock struct{ at time.Time }

func (c summaryClock) Now() time.Time { return c.at }

func seedSummaryStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	store.SeedStation(masterdata.Station{ID: "st-accra-1", DealerID: "dealer-1", OMCID: "omc-1"})
	store.SeedStation(masterdata.Station{ID: "st-kumasi-1", DealerID: "dealer-2", OMCID: "omc-1"})
	store.SeedSale(sales.Sale{
		ID: "s1", StationID: "st-accra-1", PumpID: "p1", ProductID: "petrol",
		TotalAmount: 1000, LitresSold: 70, Status: sales.StatusCompleted,
		TransactionTime: now,
	})
	store.SeedSale(sales.Sale{
		ID: "s2", StationID: "st-accra-1", PumpID: "p1", ProductID: "petrol",
		TotalAmount: 500, LitresSold: 35, Status: sales.StatusCompleted,
		TransactionTime: now.AddDate(0, 0, -1),
	})
	store.SeedSale(sales.Sale{
		ID: "s3", StationID: "st-kumasi-1", PumpID: "p9", ProductID: "diesel",
		TotalAmount: 9999, LitresSold: 700, Status: sales.StatusCompleted,
		TransactionTime: now,
	})
	return store
}

func newSummaryService(t *testing.T, store *memory.Store, summaryCache *mapCache) *SummaryService {
	t.Helper()
	cfg := DefaultConfig()
	svc, err := NewSummaryService(store, summaryChecker{store}, summaryCache,
		summaryClock{time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}, cfg)
	if err != nil {
		t.Fatalf("new summary service: %v", err)
	}
	return svc
}

func managerContext(stationID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		Subject:   "user-manager",
		Role:      auth.RoleStationManager,
		StationID: stationID,
	})
}

func TestSummaryScopedToStation(t *testing.T) {
	store := seedSummaryStore(t)
	svc := newSummaryService(t, store, newMapCache())

	result, err := svc.Summary(managerContext("st-accra-1"), SummaryRequest{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if result.Summary.TotalSales != 1500 {
		t.Fatalf("scope leak: got total %v", result.Summary.TotalSales)
	}
	if result.Summary.TodaySales != 1000 || result.Summary.YesterdaySales != 500 {
		t.Fatalf("buckets: today %v yesterday %v", result.Summary.TodaySales, result.Summary.YesterdaySales)
	}
	if result.Summary.GrowthPercentage != 100 {
		t.Fatalf("growth: got %v", result.Summary.GrowthPercentage)
	}
}

func TestSummaryExplicitOutOfScopeStationForbidden(t *testing.T) {
	store := seedSummaryStore(t)
	svc := newSummaryService(t, store, newMapCache())

	_, err := svc.Summary(managerContext("st-accra-1"), SummaryRequest{StationID: "st-kumasi-1"})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	store := seedSummaryStore(t)
	summaryCache := newMapCache()
	svc := newSummaryService(t, store, summaryCache)
	ctx := managerContext("st-accra-1")

	first, err := svc.Summary(ctx, SummaryRequest{})
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if first.Cached {
		t.Fatal("first call must miss the cache")
	}

	second, err := svc.Summary(ctx, SummaryRequest{})
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if !second.Cached {
		t.Fatal("second call should hit the cache")
	}
	if second.Summary.TotalSales != first.Summary.TotalSales {
		t.Fatalf("cached summary diverged: %v vs %v", second.Summary.TotalSales, first.Summary.TotalSales)
	}

	svc.InvalidateStation(ctx, "st-accra-1")
	third, err := svc.Summary(ctx, SummaryRequest{})
	if err != nil {
		t.Fatalf("third summary: %v", err)
	}
	if third.Cached {
		t.Fatal("invalidation should force a recompute")
	}
}

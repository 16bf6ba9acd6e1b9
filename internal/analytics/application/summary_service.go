package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	analytics "fuelretail-cloud/internal/analytics/domain"
	"fuelretail-cloud/internal/auth"
	"fuelretail-cloud/internal/cache"
	"fuelretail-cloud/internal/observability/metrics"
	sales "fuelretail-cloud/internal/sales/domain"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SummaryRequest scopes a dashboard summary. StationID narrows within
// the caller's scope; From/To bound the snapshot window.
type SummaryRequest struct {
	StationID string
	From      time.Time
	To        time.Time
}

// SummaryResult carries the fold plus presentation context.
type SummaryResult struct {
	Summary  analytics.SalesSummary
	Currency string
	Cached   bool
}

// SummaryService computes role-scoped dashboard summaries over a single
// consistent snapshot of sales.
type SummaryService struct {
	repo           sales.Repository
	stationChecker auth.StationAccessChecker
	cache          cache.SummaryCache
	clock          Clock
	cfg            Config
}

// NewSummaryService constructs the service.
func NewSummaryService(repo sales.Repository, stationChecker auth.StationAccessChecker, summaryCache cache.SummaryCache, clock Clock, cfg Config) (*SummaryService, error) {
	if repo == nil {
		return nil, errors.New("summary service: nil repository")
	}
	if stationChecker == nil {
		return nil, errors.New("summary service: nil station checker")
	}
	if summaryCache == nil {
		summaryCache = cache.Noop{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SummaryService{
		repo:           repo,
		stationChecker: stationChecker,
		cache:          summaryCache,
		clock:          clock,
		cfg:            cfg,
	}, nil
}

// Summary folds the caller-visible sales into a SalesSummary. Results
// are cached per scope and window so repeated dashboard polls do not
// re-read the sales table.
func (s *SummaryService) Summary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	start := time.Now()
	outcome := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSummaryCompute(outcome, time.Since(start))
	}()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		outcome = metrics.ResultError
		return nil, auth.ErrUnauthorized
	}
	scope, err := auth.ScopeFor(identity.Role, identity)
	if err != nil {
		outcome = metrics.ResultError
		return nil, err
	}

	query := sales.Query{From: req.From, To: req.To, IncludeCancelled: true}
	if req.StationID != "" {
		if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
			outcome = metrics.ResultError
			return nil, err
		}
		query.StationID = req.StationID
	} else if !scope.Unrestricted {
		query.StationID = scope.StationID
		query.DealerID = scope.DealerID
		query.OMCID = scope.OMCID
	}

	key := summaryCacheKey(query, s.clock.Now().In(s.cfg.Location()))
	if payload, hit, cacheErr := s.cache.Get(ctx, key); cacheErr != nil {
		log.Printf("summary cache get: %v", cacheErr)
	} else if hit {
		var summary analytics.SalesSummary
		if err := json.Unmarshal(payload, &summary); err == nil {
			metrics.ObserveSummaryCache("hit")
			return &SummaryResult{Summary: summary, Currency: s.cfg.Currency, Cached: true}, nil
		}
	}
	metrics.ObserveSummaryCache("miss")

	// One List call per summary: the fold never mixes rows from two
	// reads, so concurrent writes cannot skew totals within a response.
	records, err := s.repo.List(ctx, query)
	if err != nil {
		outcome = metrics.ResultError
		return nil, err
	}
	summary := analytics.Summarize(records, analytics.NewWindow(s.clock.Now(), s.cfg.Location()))

	if payload, marshalErr := json.Marshal(summary); marshalErr == nil {
		if cacheErr := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL()); cacheErr != nil {
			log.Printf("summary cache set: %v", cacheErr)
		}
	}
	return &SummaryResult{Summary: summary, Currency: s.cfg.Currency}, nil
}

// InvalidateStation drops cached summaries that could include the
// station's sales. Called when a sale is recorded or edited.
func (s *SummaryService) InvalidateStation(ctx context.Context, stationID string) {
	if err := s.cache.InvalidatePrefix(ctx, "summary:"); err != nil {
		log.Printf("summary cache invalidate station %s: %v", stationID, err)
	}
}

func summaryCacheKey(query sales.Query, localNow time.Time) string {
	return fmt.Sprintf("summary:%s:%s:%s:%s:%d:%d:%s",
		query.StationID, query.DealerID, query.OMCID,
		localNow.Format("2006-01-02"),
		query.From.Unix(), query.To.Unix(),
		"v1")
}

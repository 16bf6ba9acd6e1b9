package auth

import (
	"context"
	"database/sql"

	masterdatarepo "fuelretail-cloud/internal/masterdata/infrastructure/postgres"
)

// StationAccessChecker validates that a station is visible to a scope.
type StationAccessChecker interface {
	EnsureStationInScope(ctx context.Context, scope Scope, stationID string) error
}

// StationChecker checks station ownership edges using masterdata.
type StationChecker struct {
	repo *masterdatarepo.StationRepository
}

// NewStationChecker constructs a StationChecker.
func NewStationChecker(db *sql.DB) *StationChecker {
	if db == nil {
		return nil
	}
	return &StationChecker{repo: masterdatarepo.NewStationRepository(db)}
}

// EnsureStationInScope verifies the station falls inside the scope.
// Out-of-scope stations fail with ErrForbidden without confirming
// whether the station exists.
func (c *StationChecker) EnsureStationInScope(ctx context.Context, scope Scope, stationID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if stationID == "" {
		return nil
	}
	station, err := c.repo.Get(ctx, stationID)
	if err != nil {
		return err
	}
	if station == nil {
		if scope.Unrestricted {
			return ErrNotFound
		}
		return ErrForbidden
	}
	if !scope.AllowsStation(*station) {
		return ErrForbidden
	}
	return nil
}

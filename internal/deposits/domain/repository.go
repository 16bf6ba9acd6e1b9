package deposits

import (
	"context"
	"time"
)

// Query filters deposit listings. Scope fields combine with AND.
type Query struct {
	StationID string
	DealerID  string
	OMCID     string
	Status    string
	From      time.Time
	To        time.Time
}

// Repository persists deposits.
type Repository interface {
	Create(ctx context.Context, deposit *Deposit) error
	Get(ctx context.Context, id string) (*Deposit, error)
	// Update rewrites editable fields. The status column is owned by
	// TransitionStatus and must not change here.
	Update(ctx context.Context, deposit *Deposit) error
	// TransitionStatus moves status from expected to the deposit's
	// current status atomically. Returns ErrStaleStatus when another
	// writer moved the deposit first.
	TransitionStatus(ctx context.Context, deposit *Deposit, expected string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query Query) ([]Deposit, error)
}

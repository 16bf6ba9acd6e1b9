package alerts

import (
	"context"
	"errors"
	"time"
)

// Alert kinds.
const (
	KindInconsistentWrite = "inconsistent_write"
	KindCashVariance      = "cash_variance"
)

// ErrNotFound signals an unknown alert id.
var ErrNotFound = errors.New("alert not found")

// Alert flags a reconciliation anomaly that needs operator attention:
// a sale recorded without its pump meter advancing, or cash takings
// that do not match banked deposits.
type Alert struct {
	ID         string
	StationID  string
	PumpID     string
	SaleID     string
	Kind       string
	Detail     string
	Resolved   bool
	ResolvedBy string
	ResolvedAt *time.Time
	CreatedAt  time.Time
}

// Query filters alert listings.
type Query struct {
	StationID  string
	Kind       string
	Unresolved bool
}

// Repository persists alerts.
type Repository interface {
	Create(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error
	List(ctx context.Context, query Query) ([]Alert, error)
}

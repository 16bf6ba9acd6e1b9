package reporting

import (
	"context"
	"time"
)

// Report statuses. A draft can be regenerated; a final report is
// frozen and carries an integrity fingerprint.
const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Snapshot is a daily station report: the sales and deposit totals for
// one station and date, captured at generation time.
type Snapshot struct {
	ID               string
	ReportDate       time.Time
	StationID        string
	TotalSales       float64
	TotalVolume      float64
	TransactionCount int
	CashCollected    float64
	DepositsPending  float64
	DepositsBanked   float64
	CashVariance     float64
	Status           string
	Fingerprint      string
	GeneratedBy      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the snapshot's invariants.
func (s *Snapshot) Validate() error {
	if s.StationID == "" {
		return ErrMissingStation
	}
	return nil
}

// Final reports whether the snapshot is frozen.
func (s *Snapshot) Final() bool {
	return s.Status == StatusFinal
}

// Query filters report listings. Scope fields combine with AND.
type Query struct {
	StationID string
	DealerID  string
	OMCID     string
	Status    string
	From      time.Time
	To        time.Time
}

// Repository persists report snapshots.
type Repository interface {
	Create(ctx context.Context, snapshot *Snapshot) error
	Get(ctx context.Context, id string) (*Snapshot, error)
	Update(ctx context.Context, snapshot *Snapshot) error
	List(ctx context.Context, query Query) ([]Snapshot, error)
}

package masterdata

import (
	"context"
	"errors"
	"time"
)

// Station represents a fuel station. DealerID and OMCID are the
// ownership edges role-based visibility is computed from; either or both
// may be set.
type Station struct {
	ID        string
	Name      string
	Region    string
	DealerID  string
	OMCID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return errors.New("station: empty id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	return nil
}

// StationRepository manages station persistence.
type StationRepository interface {
	Get(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context) ([]Station, error)
	ListByDealer(ctx context.Context, dealerID string) ([]Station, error)
	ListByOMC(ctx context.Context, omcID string) ([]Station, error)
	Save(ctx context.Context, station *Station) error
}

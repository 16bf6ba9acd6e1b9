package sales

import (
	"context"
	"time"
)

// Query filters a sale listing. At most one of the ownership constraints
// (StationID, DealerID, OMCID) is set; none means unrestricted. The
// scope filter resolves a caller's role into these constraints before
// the repository is touched.
type Query struct {
	StationID        string
	DealerID         string
	OMCID            string
	PumpID           string
	ProductID        string
	Status           string
	From             time.Time
	To               time.Time
	IncludeCancelled bool
}

// Repository persists sales. CreateWithMeterAdvance applies the sale
// insert and the pump meter compare-and-set as one logical unit: on a
// stale opening value it returns ErrStaleMeter with nothing persisted,
// and if the sale row was persisted without the meter advancing it
// returns ErrInconsistentWrite.
type Repository interface {
	CreateWithMeterAdvance(ctx context.Context, sale *Sale) error
	Get(ctx context.Context, id string) (*Sale, error)
	Update(ctx context.Context, sale *Sale) error
	List(ctx context.Context, query Query) ([]Sale, error)
}

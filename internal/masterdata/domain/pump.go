package masterdata

import (
	"context"
	"errors"
	"time"
)

// Pump represents a dispensing unit bound to a station. CurrentMeter is
// the cumulative litres counter and the authoritative opening value for
// the next sale on this pump. It only ever moves forward.
type Pump struct {
	ID           string
	StationID    string
	PumpNumber   int
	FuelType     string
	CurrentMeter float64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks pump invariants.
func (p Pump) Validate() error {
	if p.ID == "" {
		return errors.New("pump: empty id")
	}
	if p.StationID == "" {
		return errors.New("pump: empty station id")
	}
	if p.CurrentMeter < 0 {
		return errors.New("pump: negative meter reading")
	}
	return nil
}

// ErrStaleMeter means the expected meter reading no longer matches the
// stored one; the caller must re-read before retrying.
var ErrStaleMeter = errors.New("pump: stale meter reading")

// PumpRepository manages pump persistence. AdvanceMeter is a
// compare-and-set: it moves the meter from expected to next and reports
// whether the update applied, so a stale opening reading never wins a
// race between two concurrent sales.
type PumpRepository interface {
	Get(ctx context.Context, id string) (*Pump, error)
	ListByStation(ctx context.Context, stationID string) ([]Pump, error)
	Save(ctx context.Context, pump *Pump) error
	AdvanceMeter(ctx context.Context, id string, expected, next float64) (bool, error)
}

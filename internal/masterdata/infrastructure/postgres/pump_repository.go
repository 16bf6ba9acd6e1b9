package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// PumpRepository persists pumps.
type PumpRepository struct {
	db *sql.DB
}

// NewPumpRepository constructs a repository.
func NewPumpRepository(db *sql.DB) *PumpRepository {
	return &PumpRepository{db: db}
}

// Get fetches a pump by id. Returns nil when absent.
func (r *PumpRepository) Get(ctx context.Context, id string) (*masterdata.Pump, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pump repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, station_id, pump_number, fuel_type, current_meter_reading, active, created_at, updated_at
FROM pumps
WHERE id = $1
LIMIT 1`, id)
	return scanPump(row)
}

// ListByStation lists pumps for a station.
func (r *PumpRepository) ListByStation(ctx context.Context, stationID string) ([]masterdata.Pump, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pump repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, station_id, pump_number, fuel_type, current_meter_reading, active, created_at, updated_at
FROM pumps
WHERE station_id = $1
ORDER BY pump_number ASC`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Pump
	for rows.Next() {
		pump, err := scanPump(rows)
		if err != nil {
			return nil, err
		}
		if pump != nil {
			result = append(result, *pump)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a pump.
func (r *PumpRepository) Save(ctx context.Context, pump *masterdata.Pump) error {
	if r == nil || r.db == nil {
		return errors.New("pump repo: nil db")
	}
	if pump == nil {
		return errors.New("pump repo: nil pump")
	}
	if err := pump.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pumps (id, station_id, pump_number, fuel_type, current_meter_reading, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	pump_number = EXCLUDED.pump_number,
	fuel_type = EXCLUDED.fuel_type,
	current_meter_reading = EXCLUDED.current_meter_reading,
	active = EXCLUDED.active,
	updated_at = EXCLUDED.updated_at`,
		pump.ID, pump.StationID, pump.PumpNumber, pump.FuelType,
		pump.CurrentMeter, pump.Active, pump.CreatedAt, pump.UpdatedAt)
	return err
}

// AdvanceMeter moves the pump meter from expected to next. Zero rows
// affected means the expected reading was stale.
func (r *PumpRepository) AdvanceMeter(ctx context.Context, id string, expected, next float64) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("pump repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE pumps
SET current_meter_reading = $1, updated_at = NOW()
WHERE id = $2 AND current_meter_reading = $3`, next, id, expected)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func scanPump(row rowScanner) (*masterdata.Pump, error) {
	var pump masterdata.Pump
	err := row.Scan(
		&pump.ID,
		&pump.StationID,
		&pump.PumpNumber,
		&pump.FuelType,
		&pump.CurrentMeter,
		&pump.Active,
		&pump.CreatedAt,
		&pump.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	pump.CreatedAt = pump.CreatedAt.UTC()
	pump.UpdatedAt = pump.UpdatedAt.UTC()
	return &pump, nil
}

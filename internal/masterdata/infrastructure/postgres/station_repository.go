package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// StationRepository persists stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository constructs a repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Get fetches a station by id. Returns nil when absent.
func (r *StationRepository) Get(ctx context.Context, id string) (*masterdata.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, region, dealer_id, omc_id, created_at, updated_at
FROM stations
WHERE id = $1
LIMIT 1`, id)
	return scanStation(row)
}

// List lists every station.
func (r *StationRepository) List(ctx context.Context) ([]masterdata.Station, error) {
	return r.list(ctx, `
SELECT id, name, region, dealer_id, omc_id, created_at, updated_at
FROM stations
ORDER BY id ASC`)
}

// ListByDealer lists stations owned by a dealer.
func (r *StationRepository) ListByDealer(ctx context.Context, dealerID string) ([]masterdata.Station, error) {
	return r.list(ctx, `
SELECT id, name, region, dealer_id, omc_id, created_at, updated_at
FROM stations
WHERE dealer_id = $1
ORDER BY id ASC`, dealerID)
}

// ListByOMC lists stations branded by an OMC.
func (r *StationRepository) ListByOMC(ctx context.Context, omcID string) ([]masterdata.Station, error) {
	return r.list(ctx, `
SELECT id, name, region, dealer_id, omc_id, created_at, updated_at
FROM stations
WHERE omc_id = $1
ORDER BY id ASC`, omcID)
}

func (r *StationRepository) list(ctx context.Context, query string, args ...any) ([]masterdata.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		if station != nil {
			result = append(result, *station)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a station.
func (r *StationRepository) Save(ctx context.Context, station *masterdata.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO stations (id, name, region, dealer_id, omc_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	region = EXCLUDED.region,
	dealer_id = EXCLUDED.dealer_id,
	omc_id = EXCLUDED.omc_id,
	updated_at = EXCLUDED.updated_at`,
		station.ID, station.Name, station.Region,
		nullString(station.DealerID), nullString(station.OMCID),
		station.CreatedAt, station.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (*masterdata.Station, error) {
	var station masterdata.Station
	var region sql.NullString
	var dealerID sql.NullString
	var omcID sql.NullString
	err := row.Scan(
		&station.ID,
		&station.Name,
		&region,
		&dealerID,
		&omcID,
		&station.CreatedAt,
		&station.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	station.Region = region.String
	station.DealerID = dealerID.String
	station.OMCID = omcID.String
	station.CreatedAt = station.CreatedAt.UTC()
	station.UpdatedAt = station.UpdatedAt.UTC()
	return &station, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

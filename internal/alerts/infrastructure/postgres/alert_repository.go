package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	alerts "fuelretail-cloud/internal/alerts/domain"
)

// AlertRepository persists reconciliation alerts.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `
id, station_id, pump_id, sale_id, kind, detail,
resolved, resolved_by, resolved_at, created_at`

// Create inserts an alert.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO reconciliation_alerts (`+alertColumns+`
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`,
		alert.ID, alert.StationID, alert.PumpID, alert.SaleID, alert.Kind, alert.Detail,
		alert.Resolved, alert.ResolvedBy, alert.ResolvedAt, alert.CreatedAt)
	return err
}

// Get fetches an alert by id. Returns nil when absent.
func (r *AlertRepository) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+alertColumns+`
FROM reconciliation_alerts
WHERE id = $1
LIMIT 1`, id)
	return scanAlert(row)
}

// Resolve marks an alert handled. Resolving twice is a no-op error so
// the second operator sees it was already taken.
func (r *AlertRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE reconciliation_alerts
SET resolved = TRUE, resolved_by = $1, resolved_at = $2
WHERE id = $3 AND resolved = FALSE`,
		resolvedBy, at, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

// List returns alerts matching the query, newest first.
func (r *AlertRepository) List(ctx context.Context, query alerts.Query) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}

	sqlQuery := `
SELECT ` + alertColumns + `
FROM reconciliation_alerts
WHERE 1=1`
	args := []any{}
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if query.StationID != "" {
		sqlQuery += " AND station_id = " + arg(query.StationID)
	}
	if query.Kind != "" {
		sqlQuery += " AND kind = " + arg(query.Kind)
	}
	if query.Unresolved {
		sqlQuery += " AND resolved = FALSE"
	}
	sqlQuery += " ORDER BY created_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			result = append(result, *alert)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*alerts.Alert, error) {
	var alert alerts.Alert
	var pumpID, saleID, detail, resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&alert.ID,
		&alert.StationID,
		&pumpID,
		&saleID,
		&alert.Kind,
		&detail,
		&alert.Resolved,
		&resolvedBy,
		&resolvedAt,
		&alert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	alert.PumpID = pumpID.String
	alert.SaleID = saleID.String
	alert.Detail = detail.String
	alert.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		at := resolvedAt.Time.UTC()
		alert.ResolvedAt = &at
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	return &alert, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	reporting "fuelretail-cloud/internal/reporting/domain"
)

// ReportRepository persists report snapshots.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository constructs a repository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `
id, report_date, station_id, total_sales, total_volume, transaction_count,
cash_collected, deposits_pending, deposits_banked, cash_variance,
status, fingerprint, generated_by, created_at, updated_at`

// Create inserts a snapshot.
func (r *ReportRepository) Create(ctx context.Context, snapshot *reporting.Snapshot) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if snapshot == nil {
		return errors.New("report repo: nil snapshot")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO report_snapshots (`+reportColumns+`
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`,
		snapshot.ID, snapshot.ReportDate, snapshot.StationID, snapshot.TotalSales, snapshot.TotalVolume, snapshot.TransactionCount,
		snapshot.CashCollected, snapshot.DepositsPending, snapshot.DepositsBanked, snapshot.CashVariance,
		snapshot.Status, snapshot.Fingerprint, snapshot.GeneratedBy, snapshot.CreatedAt, snapshot.UpdatedAt,
	)
	return err
}

// Get fetches a snapshot by id. Returns nil when absent.
func (r *ReportRepository) Get(ctx context.Context, id string) (*reporting.Snapshot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM report_snapshots
WHERE id = $1
LIMIT 1`, id)
	return scanReport(row)
}

// Update rewrites a snapshot. Finalized rows are guarded in the
// service; the repository stays dumb.
func (r *ReportRepository) Update(ctx context.Context, snapshot *reporting.Snapshot) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if snapshot == nil {
		return errors.New("report repo: nil snapshot")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE report_snapshots
SET total_sales = $1, total_volume = $2, transaction_count = $3,
	cash_collected = $4, deposits_pending = $5, deposits_banked = $6,
	cash_variance = $7, status = $8, fingerprint = $9, updated_at = $10
WHERE id = $11`,
		snapshot.TotalSales, snapshot.TotalVolume, snapshot.TransactionCount,
		snapshot.CashCollected, snapshot.DepositsPending, snapshot.DepositsBanked,
		snapshot.CashVariance, snapshot.Status, snapshot.Fingerprint, snapshot.UpdatedAt,
		snapshot.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return reporting.ErrNotFound
	}
	return nil
}

// List returns snapshots matching the query, newest first. Dealer and
// OMC constraints join through station ownership edges.
func (r *ReportRepository) List(ctx context.Context, query reporting.Query) ([]reporting.Snapshot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}

	sqlQuery := `
SELECT rs.id, rs.report_date, rs.station_id, rs.total_sales, rs.total_volume, rs.transaction_count,
	rs.cash_collected, rs.deposits_pending, rs.deposits_banked, rs.cash_variance,
	rs.status, rs.fingerprint, rs.generated_by, rs.created_at, rs.updated_at
FROM report_snapshots rs
JOIN stations st ON st.id = rs.station_id
WHERE 1=1`
	args := []any{}
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if query.StationID != "" {
		sqlQuery += " AND rs.station_id = " + arg(query.StationID)
	}
	if query.DealerID != "" {
		sqlQuery += " AND st.dealer_id = " + arg(query.DealerID)
	}
	if query.OMCID != "" {
		sqlQuery += " AND st.omc_id = " + arg(query.OMCID)
	}
	if query.Status != "" {
		sqlQuery += " AND rs.status = " + arg(query.Status)
	}
	if !query.From.IsZero() {
		sqlQuery += " AND rs.report_date >= " + arg(query.From)
	}
	if !query.To.IsZero() {
		sqlQuery += " AND rs.report_date < " + arg(query.To)
	}
	sqlQuery += " ORDER BY rs.report_date DESC, rs.id ASC"

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reporting.Snapshot
	for rows.Next() {
		snapshot, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			result = append(result, *snapshot)
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

func scanReport(row rowScanner) (*reporting.Snapshot, error) {
	var snapshot reporting.Snapshot
	var fingerprint sql.NullString
	err := row.Scan(
		&snapshot.ID,
		&snapshot.ReportDate,
		&snapshot.StationID,
		&snapshot.TotalSales,
		&snapshot.TotalVolume,
		&snapshot.TransactionCount,
		&snapshot.CashCollected,
		&snapshot.DepositsPending,
		&snapshot.DepositsBanked,
		&snapshot.CashVariance,
		&snapshot.Status,
		&fingerprint,
		&snapshot.GeneratedBy,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	snapshot.Fingerprint = fingerprint.String
	snapshot.ReportDate = snapshot.ReportDate.UTC()
	snapshot.CreatedAt = snapshot.CreatedAt.UTC()
	snapshot.UpdatedAt = snapshot.UpdatedAt.UTC()
	return &snapshot, nil
}

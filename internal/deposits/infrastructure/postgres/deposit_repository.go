package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	deposits "fuelretail-cloud/internal/deposits/domain"
)

// DepositRepository persists bank deposits.
type DepositRepository struct {
	db *sql.DB
}

// NewDepositRepository constructs a repository.
func NewDepositRepository(db *sql.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

const depositColumns = `
id, station_id, deposit_date, amount, bank_name, account_number,
slip_reference, status, deposited_by, confirmed_by, reconciled_by,
reconciliation_date, notes, created_at, updated_at`

// Create inserts a deposit.
func (r *DepositRepository) Create(ctx context.Context, deposit *deposits.Deposit) error {
	if r == nil || r.db == nil {
		return errors.New("deposit repo: nil db")
	}
	if deposit == nil {
		return errors.New("deposit repo: nil deposit")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO bank_deposits (`+depositColumns+`
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`,
		deposit.ID, deposit.StationID, deposit.DepositDate, deposit.Amount, deposit.BankName, deposit.AccountNumber,
		deposit.SlipReference, deposit.Status, deposit.DepositedBy, deposit.ConfirmedBy, deposit.ReconciledBy,
		deposit.ReconciliationDate, deposit.Notes, deposit.CreatedAt, deposit.UpdatedAt,
	)
	return err
}

// Get fetches a deposit by id. Returns nil when absent.
func (r *DepositRepository) Get(ctx context.Context, id string) (*deposits.Deposit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("deposit repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+depositColumns+`
FROM bank_deposits
WHERE id = $1
LIMIT 1`, id)
	return scanDeposit(row)
}

// Update rewrites the editable fields of a deposit. Status is owned by
// TransitionStatus and deliberately absent here.
func (r *DepositRepository) Update(ctx context.Context, deposit *deposits.Deposit) error {
	if r == nil || r.db == nil {
		return errors.New("deposit repo: nil db")
	}
	if deposit == nil {
		return errors.New("deposit repo: nil deposit")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE bank_deposits
SET deposit_date = $1, amount = $2, bank_name = $3, account_number = $4,
	slip_reference = $5, notes = $6, updated_at = $7
WHERE id = $8`,
		deposit.DepositDate, deposit.Amount, deposit.BankName, deposit.AccountNumber,
		deposit.SlipReference, deposit.Notes, deposit.UpdatedAt,
		deposit.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return deposits.ErrNotFound
	}
	return nil
}

// TransitionStatus applies a forward status move compare-and-set on the
// expected current status. A concurrent transition yields
// ErrStaleStatus and writes nothing.
func (r *DepositRepository) TransitionStatus(ctx context.Context, deposit *deposits.Deposit, expected string) error {
	if r == nil || r.db == nil {
		return errors.New("deposit repo: nil db")
	}
	if deposit == nil {
		return errors.New("deposit repo: nil deposit")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE bank_deposits
SET status = $1, confirmed_by = $2, reconciled_by = $3,
	reconciliation_date = $4, updated_at = $5
WHERE id = $6 AND status = $7`,
		deposit.Status, deposit.ConfirmedBy, deposit.ReconciledBy,
		deposit.ReconciliationDate, deposit.UpdatedAt,
		deposit.ID, expected)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return deposits.ErrStaleStatus
	}
	return nil
}

// Delete removes a deposit.
func (r *DepositRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("deposit repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_deposits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return deposits.ErrNotFound
	}
	return nil
}

// List returns deposits matching the query, newest first. Dealer and
// OMC constraints join through station ownership edges.
func (r *DepositRepository) List(ctx context.Context, query deposits.Query) ([]deposits.Deposit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("deposit repo: nil db")
	}

	sqlQuery := `
SELECT d.id, d.station_id, d.deposit_date, d.amount, d.bank_name, d.account_number,
	d.slip_reference, d.status, d.deposited_by, d.confirmed_by, d.reconciled_by,
	d.reconciliation_date, d.notes, d.created_at, d.updated_at
FROM bank_deposits d
JOIN stations st ON st.id = d.station_id
WHERE 1=1`
	args := []any{}
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if query.StationID != "" {
		sqlQuery += " AND d.station_id = " + arg(query.StationID)
	}
	if query.DealerID != "" {
		sqlQuery += " AND st.dealer_id = " + arg(query.DealerID)
	}
	if query.OMCID != "" {
		sqlQuery += " AND st.omc_id = " + arg(query.OMCID)
	}
	if query.Status != "" {
		sqlQuery += " AND d.status = " + arg(query.Status)
	}
	if !query.From.IsZero() {
		sqlQuery += " AND d.deposit_date >= " + arg(query.From)
	}
	if !query.To.IsZero() {
		sqlQuery += " AND d.deposit_date < " + arg(query.To)
	}
	sqlQuery += " ORDER BY d.deposit_date DESC, d.id ASC"

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []deposits.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		if deposit != nil {
			result = append(result, *deposit)
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

func scanDeposit(row rowScanner) (*deposits.Deposit, error) {
	var deposit deposits.Deposit
	var slipReference, confirmedBy, reconciledBy, notes sql.NullString
	var reconciliationDate sql.NullTime
	err := row.Scan(
		&deposit.ID,
		&deposit.StationID,
		&deposit.DepositDate,
		&deposit.Amount,
		&deposit.BankName,
		&deposit.AccountNumber,
		&slipReference,
		&deposit.Status,
		&deposit.DepositedBy,
		&confirmedBy,
		&reconciledBy,
		&reconciliationDate,
		&notes,
		&deposit.CreatedAt,
		&deposit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	deposit.SlipReference = slipReference.String
	deposit.ConfirmedBy = confirmedBy.String
	deposit.ReconciledBy = reconciledBy.String
	deposit.Notes = notes.String
	if reconciliationDate.Valid {
		at := reconciliationDate.Time.UTC()
		deposit.ReconciliationDate = &at
	}
	deposit.DepositDate = deposit.DepositDate.UTC()
	deposit.CreatedAt = deposit.CreatedAt.UTC()
	deposit.UpdatedAt = deposit.UpdatedAt.UTC()
	return &deposit, nil
}

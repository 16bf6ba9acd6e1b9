package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	sales "fuelretail-cloud/internal/sales/domain"
)

// SaleRepository persists sales.
type SaleRepository struct {
	db *sql.DB
}

// NewSaleRepository constructs a repository.
func NewSaleRepository(db *sql.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

const saleColumns = `
id, station_id, pump_id, pump_number, product_id,
opening_meter, closing_meter, unit_price, litres_sold, total_amount,
cash_received, variance, payment_method, customer_type, status,
transaction_time, created_by, is_void, notes, created_at, updated_at`

// CreateWithMeterAdvance inserts the sale and advances the pump meter in
// one transaction. The meter update is compare-and-set on the sale's
// opening value; a stale reading aborts with ErrStaleMeter and nothing
// persisted.
func (r *SaleRepository) CreateWithMeterAdvance(ctx context.Context, sale *sales.Sale) error {
	if r == nil || r.db == nil {
		return errors.New("sale repo: nil db")
	}
	if sale == nil {
		return errors.New("sale repo: nil sale")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO sales (`+saleColumns+`
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
)`,
		sale.ID, sale.StationID, sale.PumpID, sale.PumpNumber, sale.ProductID,
		sale.OpeningMeter, sale.ClosingMeter, sale.UnitPrice, sale.LitresSold, sale.TotalAmount,
		sale.CashReceived, sale.Variance, sale.PaymentMethod, sale.CustomerType, sale.Status,
		sale.TransactionTime, sale.CreatedBy, sale.IsVoid, sale.Notes, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE pumps
SET current_meter_reading = $1, updated_at = $2
WHERE id = $3 AND current_meter_reading = $4`,
		sale.ClosingMeter, sale.UpdatedAt, sale.PumpID, sale.OpeningMeter)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			// The sale insert may have survived without the meter advance.
			return errors.Join(sales.ErrInconsistentWrite, err)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected != 1 {
		_ = tx.Rollback()
		return sales.ErrStaleMeter
	}
	return tx.Commit()
}

// Get fetches a sale by id. Returns nil when absent.
func (r *SaleRepository) Get(ctx context.Context, id string) (*sales.Sale, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sale repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+saleColumns+`
FROM sales
WHERE id = $1
LIMIT 1`, id)
	return scanSale(row)
}

// Update rewrites the mutable fields of a sale.
func (r *SaleRepository) Update(ctx context.Context, sale *sales.Sale) error {
	if r == nil || r.db == nil {
		return errors.New("sale repo: nil db")
	}
	if sale == nil {
		return errors.New("sale repo: nil sale")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE sales
SET opening_meter = $1, closing_meter = $2, unit_price = $3, litres_sold = $4,
	total_amount = $5, cash_received = $6, variance = $7, payment_method = $8,
	customer_type = $9, status = $10, is_void = $11, notes = $12, updated_at = $13
WHERE id = $14`,
		sale.OpeningMeter, sale.ClosingMeter, sale.UnitPrice, sale.LitresSold,
		sale.TotalAmount, sale.CashReceived, sale.Variance, sale.PaymentMethod,
		sale.CustomerType, sale.Status, sale.IsVoid, sale.Notes, sale.UpdatedAt,
		sale.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sales.ErrNotFound
	}
	return nil
}

// List returns sales matching the query, newest first. Dealer and OMC
// constraints join through station ownership edges.
func (r *SaleRepository) List(ctx context.Context, query sales.Query) ([]sales.Sale, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sale repo: nil db")
	}

	sqlQuery := `
SELECT s.id, s.station_id, s.pump_id, s.pump_number, s.product_id,
	s.opening_meter, s.closing_meter, s.unit_price, s.litres_sold, s.total_amount,
	s.cash_received, s.variance, s.payment_method, s.customer_type, s.status,
	s.transaction_time, s.created_by, s.is_void, s.notes, s.created_at, s.updated_at
FROM sales s
JOIN stations st ON st.id = s.station_id
WHERE 1=1`
	args := []any{}
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if query.StationID != "" {
		sqlQuery += " AND s.station_id = " + arg(query.StationID)
	}
	if query.DealerID != "" {
		sqlQuery += " AND st.dealer_id = " + arg(query.DealerID)
	}
	if query.OMCID != "" {
		sqlQuery += " AND st.omc_id = " + arg(query.OMCID)
	}
	if query.PumpID != "" {
		sqlQuery += " AND s.pump_id = " + arg(query.PumpID)
	}
	if query.ProductID != "" {
		sqlQuery += " AND s.product_id = " + arg(query.ProductID)
	}
	if query.Status != "" {
		sqlQuery += " AND s.status = " + arg(query.Status)
	} else if !query.IncludeCancelled {
		sqlQuery += " AND s.status <> 'cancelled'"
	}
	if !query.From.IsZero() {
		sqlQuery += " AND s.transaction_time >= " + arg(query.From)
	}
	if !query.To.IsZero() {
		sqlQuery += " AND s.transaction_time < " + arg(query.To)
	}
	sqlQuery += " ORDER BY s.transaction_time DESC, s.id ASC"

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sales.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		if sale != nil {
			result = append(result, *sale)
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

func scanSale(row rowScanner) (*sales.Sale, error) {
	var sale sales.Sale
	var notes sql.NullString
	err := row.Scan(
		&sale.ID,
		&sale.StationID,
		&sale.PumpID,
		&sale.PumpNumber,
		&sale.ProductID,
		&sale.OpeningMeter,
		&sale.ClosingMeter,
		&sale.UnitPrice,
		&sale.LitresSold,
		&sale.TotalAmount,
		&sale.CashReceived,
		&sale.Variance,
		&sale.PaymentMethod,
		&sale.CustomerType,
		&sale.Status,
		&sale.TransactionTime,
		&sale.CreatedBy,
		&sale.IsVoid,
		&notes,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sale.Notes = notes.String
	sale.TransactionTime = sale.TransactionTime.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}


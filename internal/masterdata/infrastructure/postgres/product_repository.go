package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// ProductRepository persists fuel products and station prices.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository constructs a repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Get fetches a product by id. Returns nil when absent.
func (r *ProductRepository) Get(ctx context.Context, id string) (*masterdata.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, fuel_type, unit, created_at
FROM products
WHERE id = $1
LIMIT 1`, id)
	return scanProduct(row)
}

// GetByFuelType resolves the single product for a pump fuel type.
func (r *ProductRepository) GetByFuelType(ctx context.Context, fuelType string) (*masterdata.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, fuel_type, unit, created_at
FROM products
WHERE fuel_type = $1
LIMIT 1`, fuelType)
	return scanProduct(row)
}

// List returns all products.
func (r *ProductRepository) List(ctx context.Context) ([]masterdata.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, fuel_type, unit, created_at
FROM products
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		if product != nil {
			result = append(result, *product)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetStationPrice resolves the station+product price. Returns nil when
// no price is configured.
func (r *ProductRepository) GetStationPrice(ctx context.Context, stationID, productID string) (*masterdata.StationPrice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT station_id, product_id, unit_price, updated_at
FROM station_prices
WHERE station_id = $1 AND product_id = $2
LIMIT 1`, stationID, productID)

	var price masterdata.StationPrice
	err := row.Scan(&price.StationID, &price.ProductID, &price.UnitPrice, &price.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	price.UpdatedAt = price.UpdatedAt.UTC()
	return &price, nil
}

// SetStationPrice upserts a station price.
func (r *ProductRepository) SetStationPrice(ctx context.Context, price masterdata.StationPrice) error {
	if r == nil || r.db == nil {
		return errors.New("product repo: nil db")
	}
	if price.StationID == "" || price.ProductID == "" {
		return errors.New("product repo: empty price key")
	}
	if price.UnitPrice <= 0 {
		return errors.New("product repo: unit price must be positive")
	}
	if price.UpdatedAt.IsZero() {
		price.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO station_prices (station_id, product_id, unit_price, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (station_id, product_id) DO UPDATE SET
	unit_price = EXCLUDED.unit_price,
	updated_at = EXCLUDED.updated_at`,
		price.StationID, price.ProductID, price.UnitPrice, price.UpdatedAt)
	return err
}

func scanProduct(row rowScanner) (*masterdata.Product, error) {
	var product masterdata.Product
	var unit sql.NullString
	err := row.Scan(&product.ID, &product.Name, &product.FuelType, &unit, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	product.Unit = unit.String
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

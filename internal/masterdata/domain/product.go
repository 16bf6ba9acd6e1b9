package masterdata

import (
	"context"
	"errors"
	"time"
)

// Product represents a fuel product (petrol, diesel, kerosene, ...).
// FuelType links pumps to products: a pump's fuel type must resolve to
// exactly one product.
type Product struct {
	ID        string
	Name      string
	FuelType  string
	Unit      string
	CreatedAt time.Time
}

// Validate checks product invariants.
func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product: empty id")
	}
	if p.FuelType == "" {
		return errors.New("product: empty fuel type")
	}
	return nil
}

// ErrUnknownProduct means the referenced product does not exist.
var ErrUnknownProduct = errors.New("product: unknown product")

// ProductRepository manages product persistence.
type ProductRepository interface {
	Get(ctx context.Context, id string) (*Product, error)
	GetByFuelType(ctx context.Context, fuelType string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// StationPrice is the station+product specific unit price.
type StationPrice struct {
	StationID string
	ProductID string
	UnitPrice float64
	UpdatedAt time.Time
}

// PriceRepository resolves station prices. A nil result means no price is
// configured and sale computation must be blocked.
type PriceRepository interface {
	GetStationPrice(ctx context.Context, stationID, productID string) (*StationPrice, error)
	SetStationPrice(ctx context.Context, price StationPrice) error
}

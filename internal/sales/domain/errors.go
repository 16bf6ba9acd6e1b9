package sales

import "errors"

var (
	// ErrInvalidRange is returned when closing meter is below opening meter.
	ErrInvalidRange = errors.New("sales: closing meter cannot be less than opening meter")
	// ErrNegativeValue is returned for negative meter readings or amounts.
	ErrNegativeValue = errors.New("sales: negative value")
	// ErrInvalidPrice is returned for a non-positive unit price.
	ErrInvalidPrice = errors.New("sales: unit price must be positive")
	// ErrMissingPump is returned when no pump is selected or the pump is unknown.
	ErrMissingPump = errors.New("sales: pump not found")
	// ErrMissingProduct is returned when the pump fuel type resolves to no
	// product or no station price is configured for it.
	ErrMissingProduct = errors.New("sales: product or price not resolved")
	// ErrSaleCancelled is returned when mutating a cancelled sale.
	ErrSaleCancelled = errors.New("sales: sale is cancelled")
	// ErrStaleMeter is returned when a concurrent sale advanced the pump
	// meter first; the caller must re-read the opening value.
	ErrStaleMeter = errors.New("sales: pump meter advanced concurrently")
	// ErrInconsistentWrite is returned when the sale row was persisted but
	// the pump meter update did not apply. The ledger needs manual
	// reconciliation; this is not equivalent to a clean failure.
	ErrInconsistentWrite = errors.New("sales: sale recorded but pump meter not advanced")
	// ErrNotFound is returned for an unknown sale id.
	ErrNotFound = errors.New("sales: not found")
)

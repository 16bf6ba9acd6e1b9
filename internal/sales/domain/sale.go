package sales

import (
	"errors"
	"time"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

const (
	PaymentCash        = "cash"
	PaymentMobileMoney = "mobile_money"
	PaymentCard        = "card"
	PaymentCredit      = "credit"
)

const (
	CustomerRetail     = "retail"
	CustomerCommercial = "commercial"
	CustomerFleet      = "fleet"
)

// Sale represents one fuel-dispensing transaction. LitresSold,
// TotalAmount and Variance are derived by the calculator and never
// supplied independently.
type Sale struct {
	ID              string
	StationID       string
	PumpID          string
	PumpNumber      int
	ProductID       string
	OpeningMeter    float64
	ClosingMeter    float64
	UnitPrice       float64
	LitresSold      float64
	TotalAmount     float64
	CashReceived    float64
	Variance        float64
	PaymentMethod   string
	CustomerType    string
	Status          string
	TransactionTime time.Time
	CreatedBy       string
	IsVoid          bool
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidStatus reports whether the status value is known.
func ValidStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusPending, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether the payment method is known.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentMobileMoney, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

// ValidCustomerType reports whether the customer type is known.
func ValidCustomerType(customerType string) bool {
	switch customerType {
	case CustomerRetail, CustomerCommercial, CustomerFleet:
		return true
	}
	return false
}

// Validate checks sale invariants.
func (s Sale) Validate() error {
	if s.ID == "" {
		return errors.New("sale: empty id")
	}
	if s.StationID == "" {
		return errors.New("sale: empty station id")
	}
	if s.PumpID == "" {
		return ErrMissingPump
	}
	if s.OpeningMeter < 0 || s.ClosingMeter < 0 {
		return ErrNegativeValue
	}
	if s.ClosingMeter < s.OpeningMeter {
		return ErrInvalidRange
	}
	if !ValidStatus(s.Status) {
		return errors.New("sale: invalid status")
	}
	if !ValidPaymentMethod(s.PaymentMethod) {
		return errors.New("sale: invalid payment method")
	}
	if !ValidCustomerType(s.CustomerType) {
		return errors.New("sale: invalid customer type")
	}
	if s.IsVoid && s.Status != StatusCancelled {
		return errors.New("sale: void sale must be cancelled")
	}
	return nil
}

// Editable reports whether the sale may still be mutated.
func (s Sale) Editable() bool {
	return s.Status != StatusCancelled
}

// Cancel soft-deletes the sale.
func (s *Sale) Cancel(now time.Time) error {
	if s.Status == StatusCancelled {
		return ErrSaleCancelled
	}
	s.Status = StatusCancelled
	s.UpdatedAt = now
	return nil
}

// Void marks the sale void. Voiding forces cancellation and is
// irreversible.
func (s *Sale) Void(now time.Time) error {
	if s.IsVoid {
		return ErrSaleCancelled
	}
	s.IsVoid = true
	s.Status = StatusCancelled
	s.UpdatedAt = now
	return nil
}

// CountsTowardTotals reports whether the sale feeds financial totals.
// Cancelled and voided sales stay visible for audit but are excluded.
func (s Sale) CountsTowardTotals() bool {
	return !s.IsVoid && s.Status != StatusCancelled
}

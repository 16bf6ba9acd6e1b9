package sales

import (
	"errors"
	"math"
	"testing"
)

func TestComputeSale(t *testing.T) {
	comp, err := ComputeSale(1000.00, 1250.50, 14.50, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(comp.LitresSold-250.50) > 1e-9 {
		t.Fatalf("litres: got %v want 250.50", comp.LitresSold)
	}
	if math.Abs(comp.TotalAmount-3632.25) > 1e-9 {
		t.Fatalf("total: got %v want 3632.25", comp.TotalAmount)
	}
	if comp.CashReceived != comp.TotalAmount {
		t.Fatalf("cash should default to total, got %v", comp.CashReceived)
	}
	if comp.Variance != 0 {
		t.Fatalf("variance should be zero when cash defaults, got %v", comp.Variance)
	}
}

func TestComputeSaleVariance(t *testing.T) {
	cash := 3600.00
	comp, err := ComputeSale(1000.00, 1250.50, 14.50, &cash)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(comp.Variance-(-32.25)) > 1e-9 {
		t.Fatalf("variance: got %v want -32.25 (shortage)", comp.Variance)
	}

	over := 3700.00
	comp, err = ComputeSale(1000.00, 1250.50, 14.50, &over)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(comp.Variance-67.75) > 1e-9 {
		t.Fatalf("variance: got %v want 67.75 (overage)", comp.Variance)
	}
}

func TestComputeSaleInvalidRange(t *testing.T) {
	_, err := ComputeSale(1250.50, 1000.00, 14.50, nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestComputeSaleRejectsBadInputs(t *testing.T) {
	if _, err := ComputeSale(-1, 10, 14.50, nil); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("negative opening: got %v", err)
	}
	if _, err := ComputeSale(0, 10, 0, nil); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("zero price: got %v", err)
	}
	negative := -5.0
	if _, err := ComputeSale(0, 10, 14.50, &negative); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("negative cash: got %v", err)
	}
}

func TestComputeSaleZeroVolume(t *testing.T) {
	comp, err := ComputeSale(500, 500, 14.50, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if comp.LitresSold != 0 || comp.TotalAmount != 0 {
		t.Fatalf("zero volume sale should be zero valued, got %+v", comp)
	}
}

func TestComputeSaleRoundsCurrency(t *testing.T) {
	// 3.333 L * 14.555 = 48.511815 -> 48.51
	comp, err := ComputeSale(100.000, 103.333, 14.555, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(comp.TotalAmount-48.51) > 1e-9 {
		t.Fatalf("total rounding: got %v want 48.51", comp.TotalAmount)
	}
	if math.Abs(comp.LitresSold-3.333) > 1e-9 {
		t.Fatalf("volume must keep full precision: got %v", comp.LitresSold)
	}
}

func TestVoidForcesCancelled(t *testing.T) {
	sale := Sale{Status: StatusCompleted}
	if err := sale.Void(sale.UpdatedAt); err != nil {
		t.Fatalf("void: %v", err)
	}
	if !sale.IsVoid || sale.Status != StatusCancelled {
		t.Fatalf("void must force cancelled status, got %+v", sale)
	}
	if err := sale.Void(sale.UpdatedAt); err == nil {
		t.Fatalf("voiding twice must fail")
	}
	if sale.CountsTowardTotals() {
		t.Fatalf("void sale must not count toward totals")
	}
}

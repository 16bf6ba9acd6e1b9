package deposits

import (
	"errors"
	"testing"
	"time"
)

func pendingDeposit() Deposit {
	return Deposit{
		ID:            "dep-1",
		StationID:     "st-accra-1",
		DepositDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Amount:        12500.00,
		BankName:      "GCB Bank",
		AccountNumber: "0123456789",
		Status:        StatusPending,
		DepositedBy:   "user-manager",
	}
}

func TestDepositLifecycleForwardOnly(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusReconciled, true},
		{StatusPending, StatusReconciled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusReconciled, StatusConfirmed, false},
		{StatusReconciled, StatusPending, false},
		{StatusPending, StatusPending, false},
		{"unknown", StatusConfirmed, false},
		{StatusPending, "unknown", false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTransitionStampsReconciliationDate(t *testing.T) {
	deposit := pendingDeposit()
	confirmAt := time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC)
	if err := deposit.Transition(StatusConfirmed, "dealer-user", confirmAt); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if deposit.ConfirmedBy != "dealer-user" {
		t.Fatalf("confirmed by: got %q", deposit.ConfirmedBy)
	}
	if deposit.ReconciliationDate != nil {
		t.Fatal("reconciliation date must not be set on confirm")
	}

	reconcileAt := confirmAt.Add(24 * time.Hour)
	if err := deposit.Transition(StatusReconciled, "dealer-user", reconcileAt); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if deposit.ReconciliationDate == nil || !deposit.ReconciliationDate.Equal(reconcileAt) {
		t.Fatalf("reconciliation date: got %v", deposit.ReconciliationDate)
	}

	err := deposit.Transition(StatusConfirmed, "dealer-user", reconcileAt)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reconciled is terminal, got %v", err)
	}
}

func TestReconcileDirectlyFromPending(t *testing.T) {
	deposit := pendingDeposit()
	reconcileAt := time.Date(2024, 5, 12, 15, 30, 0, 0, time.UTC)
	if err := deposit.Transition(StatusReconciled, "dealer-user", reconcileAt); err != nil {
		t.Fatalf("reconcile from pending: %v", err)
	}
	if deposit.Status != StatusReconciled {
		t.Fatalf("status: got %q", deposit.Status)
	}
	if deposit.ReconciliationDate == nil || !deposit.ReconciliationDate.Equal(reconcileAt) {
		t.Fatalf("reconciliation date: got %v", deposit.ReconciliationDate)
	}
	if deposit.ConfirmedBy != "" {
		t.Fatalf("skipped confirmation must not stamp a confirmer, got %q", deposit.ConfirmedBy)
	}
}

func TestDepositValidation(t *testing.T) {
	deposit := pendingDeposit()
	if err := deposit.Validate(); err != nil {
		t.Fatalf("valid deposit rejected: %v", err)
	}

	bad := pendingDeposit()
	bad.Amount = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}

	bad = pendingDeposit()
	bad.AccountNumber = "1234567"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("short account: got %v", err)
	}

	bad = pendingDeposit()
	bad.AccountNumber = "12345abc89"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("alpha account: got %v", err)
	}

	ok := pendingDeposit()
	ok.AccountNumber = "0123-4567-89"
	if err := ok.Validate(); err != nil {
		t.Fatalf("separators should be tolerated: %v", err)
	}

	bad = pendingDeposit()
	bad.BankName = ""
	if err := bad.Validate(); !errors.Is(err, ErrMissingBank) {
		t.Fatalf("missing bank: got %v", err)
	}
}

func TestEditableOnlyWhilePending(t *testing.T) {
	deposit := pendingDeposit()
	if !deposit.Editable() {
		t.Fatal("pending deposit must be editable")
	}
	deposit.Status = StatusConfirmed
	if deposit.Editable() {
		t.Fatal("confirmed deposit must be frozen")
	}
	deposit.Status = StatusReconciled
	if deposit.Editable() {
		t.Fatal("reconciled deposit must be frozen")
	}
}

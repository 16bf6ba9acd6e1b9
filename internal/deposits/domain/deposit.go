package deposits

import (
	"time"
)

// Deposit statuses. The lifecycle only moves forward:
// pending -> confirmed -> reconciled. Confirmation may be skipped;
// reconciled is terminal.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusReconciled = "reconciled"
)

var statusRank = map[string]int{
	StatusPending:    1,
	StatusConfirmed:  2,
	StatusReconciled: 3,
}

// ValidStatus reports whether s is a known deposit status.
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a deposit may move from one status to
// another. The status never regresses; confirm is reachable only from
// pending, reconcile from pending or confirmed.
func CanTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if toRank <= fromRank {
		return false
	}
	return to == StatusReconciled || toRank == fromRank+1
}

// Deposit is a bank deposit of station cash takings awaiting
// reconciliation against recorded sales.
type Deposit struct {
	ID                 string
	StationID          string
	DepositDate        time.Time
	Amount             float64
	BankName           string
	AccountNumber      string
	SlipReference      string
	Status             string
	DepositedBy        string
	ConfirmedBy        string
	ReconciledBy       string
	ReconciliationDate *time.Time
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks the deposit's invariants.
func (d *Deposit) Validate() error {
	if d.Amount <= 0 {
		return ErrInvalidAmount
	}
	if d.BankName == "" {
		return ErrMissingBank
	}
	if !validAccountNumber(d.AccountNumber) {
		return ErrInvalidAccount
	}
	if !ValidStatus(d.Status) {
		return ErrInvalidTransition
	}
	return nil
}

// Editable reports whether field edits are allowed. Once a deposit is
// confirmed its recorded facts are frozen; only the status may advance.
func (d *Deposit) Editable() bool {
	return d.Status == StatusPending
}

// Transition advances the status, stamping the reconciliation date on
// the final step.
func (d *Deposit) Transition(to string, actor string, at time.Time) error {
	if !CanTransition(d.Status, to) {
		return ErrInvalidTransition
	}
	d.Status = to
	d.UpdatedAt = at
	switch to {
	case StatusConfirmed:
		d.ConfirmedBy = actor
	case StatusReconciled:
		d.ReconciledBy = actor
		stamped := at
		d.ReconciliationDate = &stamped
	}
	return nil
}

func validAccountNumber(account string) bool {
	digits := 0
	for _, ch := range account {
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == ' ' || ch == '-':
			// separators are tolerated in slips
		default:
			return false
		}
	}
	return digits >= 8
}

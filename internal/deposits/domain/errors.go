package deposits

import "errors"

var (
	// ErrInvalidTransition rejects backward or skipping status moves.
	ErrInvalidTransition = errors.New("deposit status can only move forward")
	// ErrInvalidAmount rejects non-positive deposit amounts.
	ErrInvalidAmount = errors.New("deposit amount must be positive")
	// ErrInvalidAccount rejects malformed bank account numbers.
	ErrInvalidAccount = errors.New("account number must be at least 8 digits")
	// ErrMissingBank rejects deposits without a bank name.
	ErrMissingBank = errors.New("bank name is required")
	// ErrNotEditable rejects edits to confirmed or reconciled deposits.
	ErrNotEditable = errors.New("only pending deposits can be modified")
	// ErrStaleStatus signals a concurrent transition won the race.
	ErrStaleStatus = errors.New("deposit status changed concurrently")
	// ErrNotFound signals an unknown deposit id.
	ErrNotFound = errors.New("deposit not found")
)

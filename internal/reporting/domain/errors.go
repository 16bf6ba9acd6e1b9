package reporting

import "errors"

var (
	// ErrTampered signals a fingerprint mismatch on verification.
	ErrTampered = errors.New("report fingerprint does not match")
	// ErrFinalized rejects edits to a finalized report.
	ErrFinalized = errors.New("finalized reports are immutable")
	// ErrNotFound signals an unknown report id.
	ErrNotFound = errors.New("report not found")
	// ErrMissingStation rejects reports without a station.
	ErrMissingStation = errors.New("report requires a station")
)

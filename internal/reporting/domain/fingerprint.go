package reporting

import (
	"fmt"
	"strings"
)

// Fingerprint derives the integrity tag for a report from a fixed,
// ordered field subset. It is a 32-bit rolling hash, not a MAC: it
// catches accidental edits and casual tampering on shared copies, not
// a determined forger. Swap in a keyed HMAC if authenticity is ever
// required; keep the field set.
func Fingerprint(snapshot Snapshot) string {
	canonical := strings.Join([]string{
		snapshot.ID,
		snapshot.ReportDate.UTC().Format("2006-01-02"),
		snapshot.StationID,
		fmt.Sprintf("%.2f", snapshot.TotalSales),
		snapshot.Status,
		fmt.Sprintf("%.2f", snapshot.CashCollected),
	}, "|")

	var hash int32
	for i := 0; i < len(canonical); i++ {
		hash = hash*31 + int32(canonical[i])
	}
	value := int64(hash)
	if value < 0 {
		value = -value
	}
	tag := fmt.Sprintf("%X", value)
	if len(tag) > 8 {
		tag = tag[:8]
	}
	for len(tag) < 8 {
		tag = "0" + tag
	}
	return tag
}

// VerifyFingerprint recomputes the tag from the stored record and
// compares it case-insensitively against the externally supplied one.
// Any mismatch is ErrTampered; there is no partial trust.
func VerifyFingerprint(snapshot Snapshot, supplied string) error {
	if !strings.EqualFold(Fingerprint(snapshot), strings.TrimSpace(supplied)) {
		return ErrTampered
	}
	return nil
}

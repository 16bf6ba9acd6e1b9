package reporting

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		ID:            "rpt-2024-05-10-accra",
		ReportDate:    time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		StationID:     "st-accra-1",
		TotalSales:    36322.50,
		CashCollected: 34000.00,
		Status:        StatusFinal,
	}
}

func TestFingerprintShape(t *testing.T) {
	tag := Fingerprint(sampleSnapshot())
	if len(tag) != 8 {
		t.Fatalf("fingerprint length: got %d (%q)", len(tag), tag)
	}
	if tag != strings.ToUpper(tag) {
		t.Fatalf("fingerprint must be uppercase, got %q", tag)
	}
	for _, ch := range tag {
		if !strings.ContainsRune("0123456789ABCDEF", ch) {
			t.Fatalf("fingerprint must be hex, got %q", tag)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	first := Fingerprint(sampleSnapshot())
	second := Fingerprint(sampleSnapshot())
	if first != second {
		t.Fatalf("fingerprint not stable: %q vs %q", first, second)
	}
}

func TestFingerprintChangesPerField(t *testing.T) {
	base := Fingerprint(sampleSnapshot())
	mutations := map[string]func(*Snapshot){
		"id":             func(s *Snapshot) { s.ID = "rpt-other" },
		"report_date":    func(s *Snapshot) { s.ReportDate = s.ReportDate.AddDate(0, 0, 1) },
		"station_id":     func(s *Snapshot) { s.StationID = "st-kumasi-1" },
		"total_sales":    func(s *Snapshot) { s.TotalSales += 0.01 },
		"status":         func(s *Snapshot) { s.Status = StatusDraft },
		"cash_collected": func(s *Snapshot) { s.CashCollected += 100 },
	}
	for field, mutate := range mutations {
		snapshot := sampleSnapshot()
		mutate(&snapshot)
		if Fingerprint(snapshot) == base {
			t.Errorf("tampering with %s did not change the fingerprint", field)
		}
	}
}

func TestFingerprintIgnoresUnhashedFields(t *testing.T) {
	base := Fingerprint(sampleSnapshot())
	snapshot := sampleSnapshot()
	snapshot.TotalVolume = 99999
	snapshot.GeneratedBy = "someone-else"
	if Fingerprint(snapshot) != base {
		t.Fatal("fields outside the contract must not affect the fingerprint")
	}
}

func TestVerifyFingerprint(t *testing.T) {
	snapshot := sampleSnapshot()
	tag := Fingerprint(snapshot)

	if err := VerifyFingerprint(snapshot, tag); err != nil {
		t.Fatalf("exact match: %v", err)
	}
	if err := VerifyFingerprint(snapshot, strings.ToLower(tag)); err != nil {
		t.Fatalf("verification must be case-insensitive: %v", err)
	}
	if err := VerifyFingerprint(snapshot, " "+tag+" "); err != nil {
		t.Fatalf("surrounding whitespace should be tolerated: %v", err)
	}

	if err := VerifyFingerprint(snapshot, "00000000"); !errors.Is(err, ErrTampered) {
		t.Fatalf("mismatch must be ErrTampered, got %v", err)
	}
	tampered := snapshot
	tampered.TotalSales += 500
	if err := VerifyFingerprint(tampered, tag); !errors.Is(err, ErrTampered) {
		t.Fatalf("edited record must fail verification, got %v", err)
	}
}

// verifyreport audits finalized report snapshots: it recomputes each
// stored fingerprint from the row itself and prints any mismatch, so a
// direct database edit after finalization shows up in the next audit
// run. Exit code 1 means at least one snapshot failed verification.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	reporting "fuelretail-cloud/internal/reporting/domain"
)

type config struct {
	dbURL     string
	stationID string
	from      string
	to        string
	outPath   string
}

type auditRow struct {
	snapshot reporting.Snapshot
	expected string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	ctx := context.Background()
	snapshots, err := loadFinalized(ctx, db, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load snapshots:", err)
		os.Exit(2)
	}

	var failures []auditRow
	for _, snapshot := range snapshots {
		expected := reporting.Fingerprint(snapshot)
		if err := reporting.VerifyFingerprint(snapshot, snapshot.Fingerprint); err != nil {
			failures = append(failures, auditRow{snapshot: snapshot, expected: expected})
		}
	}

	if cfg.outPath != "" {
		if err := writeFailures(cfg.outPath, failures); err != nil {
			fmt.Fprintln(os.Stderr, "write failures:", err)
			os.Exit(2)
		}
	}

	fmt.Printf("checked %d finalized snapshots, %d failed verification\n", len(snapshots), len(failures))
	for _, failure := range failures {
		fmt.Printf("  %s station=%s date=%s stored=%s expected=%s\n",
			failure.snapshot.ID,
			failure.snapshot.StationID,
			failure.snapshot.ReportDate.UTC().Format("2006-01-02"),
			failure.snapshot.Fingerprint,
			failure.expected,
		)
	}
	if len(failures) > 0 {
		os.Exit(1)
	}
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.StringVar(&cfg.stationID, "station", "", "restrict to one station")
	flag.StringVar(&cfg.from, "from", "", "report date lower bound (YYYY-MM-DD)")
	flag.StringVar(&cfg.to, "to", "", "report date upper bound (YYYY-MM-DD)")
	flag.StringVar(&cfg.outPath, "out", "", "optional CSV path for failed rows")
	flag.Parse()

	if cfg.dbURL == "" {
		return config{}, fmt.Errorf("verifyreport: -db or DATABASE_URL is required")
	}
	for _, bound := range []string{cfg.from, cfg.to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound); err != nil {
			return config{}, fmt.Errorf("verifyreport: bad date %q: %w", bound, err)
		}
	}
	return cfg, nil
}

func loadFinalized(ctx context.Context, db *sql.DB, cfg config) ([]reporting.Snapshot, error) {
	query := `SELECT id, report_date, station_id, total_sales, cash_collected, status, COALESCE(fingerprint, '')
		FROM report_snapshots
		WHERE status = $1`
	args := []any{reporting.StatusFinal}
	if cfg.stationID != "" {
		args = append(args, cfg.stationID)
		query += fmt.Sprintf(" AND station_id = $%d", len(args))
	}
	if cfg.from != "" {
		day, _ := time.Parse("2006-01-02", cfg.from)
		args = append(args, day)
		query += fmt.Sprintf(" AND report_date >= $%d", len(args))
	}
	if cfg.to != "" {
		day, _ := time.Parse("2006-01-02", cfg.to)
		args = append(args, day.AddDate(0, 0, 1))
		query += fmt.Sprintf(" AND report_date < $%d", len(args))
	}
	query += " ORDER BY report_date, station_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []reporting.Snapshot
	for rows.Next() {
		var snapshot reporting.Snapshot
		if err := rows.Scan(
			&snapshot.ID,
			&snapshot.ReportDate,
			&snapshot.StationID,
			&snapshot.TotalSales,
			&snapshot.CashCollected,
			&snapshot.Status,
			&snapshot.Fingerprint,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func writeFailures(path string, failures []auditRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "station_id", "report_date", "stored", "expected"}); err != nil {
		return err
	}
	for _, failure := range failures {
		record := []string{
			failure.snapshot.ID,
			failure.snapshot.StationID,
			failure.snapshot.ReportDate.UTC().Format("2006-01-02"),
			failure.snapshot.Fingerprint,
			failure.expected,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

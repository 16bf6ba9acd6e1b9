package interfaces

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"fuelretail-cloud/internal/observability/metrics"
	reporting "fuelretail-cloud/internal/reporting/domain"
)

// BuildReportPDF renders a minimal PDF for a daily station report. The
// fingerprint is printed on the document so a shared copy can be
// verified against the stored record.
func BuildReportPDF(snapshot *reporting.Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Daily Station Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Report: %s", snapshot.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Station: %s", snapshot.StationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", snapshot.ReportDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", snapshot.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", snapshot.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Metric", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	rows := []struct {
		label string
		value string
	}{
		{"Total Sales", fmt.Sprintf("%.2f", snapshot.TotalSales)},
		{"Total Volume (L)", fmt.Sprintf("%.2f", snapshot.TotalVolume)},
		{"Transactions", fmt.Sprintf("%d", snapshot.TransactionCount)},
		{"Cash Collected", fmt.Sprintf("%.2f", snapshot.CashCollected)},
		{"Deposits Pending", fmt.Sprintf("%.2f", snapshot.DepositsPending)},
		{"Deposits Banked", fmt.Sprintf("%.2f", snapshot.DepositsBanked)},
		{"Cash Variance", fmt.Sprintf("%.2f", snapshot.CashVariance)},
	}
	for _, row := range rows {
		pdf.CellFormat(80, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, row.value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if snapshot.Fingerprint != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Integrity Fingerprint: %s", snapshot.Fingerprint))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a minimal XLSX for a daily station report.
func BuildReportXLSX(snapshot *reporting.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "report"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Daily Station Report")
	_ = f.SetCellValue(sheet, "A3", "Report")
	_ = f.SetCellValue(sheet, "B3", snapshot.ID)
	_ = f.SetCellValue(sheet, "A4", "Station")
	_ = f.SetCellValue(sheet, "B4", snapshot.StationID)
	_ = f.SetCellValue(sheet, "A5", "Date")
	_ = f.SetCellValue(sheet, "B5", snapshot.ReportDate.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, "A6", "Status")
	_ = f.SetCellValue(sheet, "B6", snapshot.Status)
	_ = f.SetCellValue(sheet, "A7", "Total Sales")
	_ = f.SetCellValue(sheet, "B7", snapshot.TotalSales)
	_ = f.SetCellValue(sheet, "A8", "Total Volume (L)")
	_ = f.SetCellValue(sheet, "B8", snapshot.TotalVolume)
	_ = f.SetCellValue(sheet, "A9", "Transactions")
	_ = f.SetCellValue(sheet, "B9", snapshot.TransactionCount)
	_ = f.SetCellValue(sheet, "A10", "Cash Collected")
	_ = f.SetCellValue(sheet, "B10", snapshot.CashCollected)
	_ = f.SetCellValue(sheet, "A11", "Deposits Pending")
	_ = f.SetCellValue(sheet, "B11", snapshot.DepositsPending)
	_ = f.SetCellValue(sheet, "A12", "Deposits Banked")
	_ = f.SetCellValue(sheet, "B12", snapshot.DepositsBanked)
	_ = f.SetCellValue(sheet, "A13", "Cash Variance")
	_ = f.SetCellValue(sheet, "B13", snapshot.CashVariance)
	_ = f.SetCellValue(sheet, "A14", "Fingerprint")
	_ = f.SetCellValue(sheet, "B14", snapshot.Fingerprint)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeReportPDF(w http.ResponseWriter, snapshot *reporting.Snapshot) {
	start := time.Now()
	payload, err := BuildReportPDF(snapshot)
	if err != nil {
		metrics.ObserveReportExport("pdf", metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport("pdf", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=report-%s-%s.pdf", snapshot.StationID, snapshot.ReportDate.Format("2006-01-02")))
	_, _ = w.Write(payload)
}

func writeReportXLSX(w http.ResponseWriter, snapshot *reporting.Snapshot) {
	start := time.Now()
	payload, err := BuildReportXLSX(snapshot)
	if err != nil {
		metrics.ObserveReportExport("xlsx", metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport("xlsx", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=report-%s-%s.xlsx", snapshot.StationID, snapshot.ReportDate.Format("2006-01-02")))
	_, _ = w.Write(payload)
}

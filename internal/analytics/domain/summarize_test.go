package analytics

import (
	"math"
	"testing"
	"time"

	sales "fuelretail-cloud/internal/sales/domain"
)

func saleAt(id, station, pump, product string, amount, litres float64, at time.Time) sales.Sale {
	return sales.Sale{
		ID:              id,
		StationID:       station,
		PumpID:          pump,
		ProductID:       product,
		TotalAmount:     amount,
		LitresSold:      litres,
		Status:          sales.StatusCompleted,
		TransactionTime: at,
	}
}

func TestSummarizeBucketsAndGrowth(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	records := []sales.Sale{
		saleAt("s1", "st-1", "p1", "petrol", 1000, 70, now),
		saleAt("s2", "st-1", "p2", "diesel", 500, 35, now),
		saleAt("s3", "st-2", "p3", "petrol", 1200, 82, yesterday),
		saleAt("s4", "st-1", "p1", "petrol", 300, 20, now.AddDate(0, 0, -5)),
	}

	summary := Summarize(records, NewWindow(now, time.UTC))

	if summary.TotalSales != 3000 {
		t.Fatalf("total sales: got %v", summary.TotalSales)
	}
	if summary.TotalTransactions != 4 {
		t.Fatalf("transactions: got %d", summary.TotalTransactions)
	}
	if summary.TodaySales != 1500 || summary.YesterdaySales != 1200 {
		t.Fatalf("buckets: today %v yesterday %v", summary.TodaySales, summary.YesterdaySales)
	}
	if summary.AverageTicket != 750 {
		t.Fatalf("average ticket: got %v", summary.AverageTicket)
	}
	if summary.GrowthPercentage != 25 {
		t.Fatalf("growth: got %v", summary.GrowthPercentage)
	}
	if summary.TopProduct.Key != "petrol" || summary.TopProduct.Amount != 2500 {
		t.Fatalf("top product: got %+v", summary.TopProduct)
	}
	if summary.TopStation.Key != "st-1" {
		t.Fatalf("top station: got %+v", summary.TopStation)
	}
}

func TestSummarizeGrowthEdgeCases(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	empty := Summarize(nil, NewWindow(now, time.UTC))
	if empty.GrowthPercentage != 0 {
		t.Fatalf("flat days should give zero growth, got %v", empty.GrowthPercentage)
	}
	if empty.AverageTicket != 0 {
		t.Fatalf("empty set must not divide by zero, got %v", empty.AverageTicket)
	}

	todayOnly := Summarize([]sales.Sale{
		saleAt("s1", "st-1", "p1", "petrol", 500, 35, now),
	}, NewWindow(now, time.UTC))
	if todayOnly.GrowthPercentage != 100 {
		t.Fatalf("zero yesterday with positive today should give 100, got %v", todayOnly.GrowthPercentage)
	}
}

func TestSummarizeExcludesCancelledButCountsThem(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	cancelled := saleAt("s2", "st-1", "p1", "petrol", 900, 60, now)
	cancelled.Status = sales.StatusCancelled
	voided := saleAt("s3", "st-1", "p1", "petrol", 400, 28, now)
	voided.Status = sales.StatusCancelled
	voided.IsVoid = true

	summary := Summarize([]sales.Sale{
		saleAt("s1", "st-1", "p1", "petrol", 1000, 70, now),
		cancelled,
		voided,
	}, NewWindow(now, time.UTC))

	if summary.TotalSales != 1000 {
		t.Fatalf("cancelled sales leaked into totals: got %v", summary.TotalSales)
	}
	if summary.CancelledCount != 2 || summary.VoidedCount != 1 {
		t.Fatalf("audit counts: cancelled %d voided %d", summary.CancelledCount, summary.VoidedCount)
	}
	if math.Abs(summary.TotalVolume-70) > 1e-9 {
		t.Fatalf("volume: got %v", summary.TotalVolume)
	}
}

func TestSummarizeTiesResolveToFirstEncountered(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	summary := Summarize([]sales.Sale{
		saleAt("s1", "st-b", "p1", "diesel", 500, 35, now),
		saleAt("s2", "st-a", "p2", "petrol", 500, 35, now),
	}, NewWindow(now, time.UTC))

	if summary.TopStation.Key != "st-b" {
		t.Fatalf("tie must keep first encountered, got %q", summary.TopStation.Key)
	}
	if summary.TopProduct.Key != "diesel" {
		t.Fatalf("tie must keep first encountered, got %q", summary.TopProduct.Key)
	}
}

func TestSummarizeUsesLocalCalendarDates(t *testing.T) {
	accra := time.FixedZone("GMT", 0)
	nairobi := time.FixedZone("EAT", 3*60*60)
	// 23:30 UTC on the 9th is already the 10th in EAT.
	at := time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC)
	reference := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	records := []sales.Sale{saleAt("s1", "st-1", "p1", "petrol", 100, 7, at)}

	utcSummary := Summarize(records, NewWindow(reference, accra))
	if utcSummary.TodaySales != 0 || utcSummary.YesterdaySales != 100 {
		t.Fatalf("GMT bucketing: today %v yesterday %v", utcSummary.TodaySales, utcSummary.YesterdaySales)
	}

	eatSummary := Summarize(records, NewWindow(reference, nairobi))
	if eatSummary.TodaySales != 100 {
		t.Fatalf("EAT bucketing: today %v", eatSummary.TodaySales)
	}
}

package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	sales "fuelretail-cloud/internal/sales/domain"
)

// Window anchors a summary computation to a local calendar date.
// Reference is "now" for the caller; bucketing into today/yesterday uses
// the calendar date of each transaction in Location.
type Window struct {
	Reference time.Time
	Location  *time.Location
}

// NewWindow builds a window, defaulting the location to UTC.
func NewWindow(reference time.Time, location *time.Location) Window {
	if location == nil {
		location = time.UTC
	}
	return Window{Reference: reference, Location: location}
}

// RankedEntry is a top performer for one grouping key.
type RankedEntry struct {
	Key    string
	Amount float64
}

// SalesSummary aggregates a sale collection for a window and scope.
// Derived, never persisted.
type SalesSummary struct {
	TotalSales        float64
	TotalVolume       float64
	TotalTransactions int
	AverageTicket     float64
	TodaySales        float64
	YesterdaySales    float64
	GrowthPercentage  float64
	TopProduct        RankedEntry
	TopStation        RankedEntry
	TopPump           RankedEntry
	CancelledCount    int
	VoidedCount       int
}

// Summarize folds a consistent snapshot of sales into a summary.
// Cancelled and voided sales are excluded from every total but counted
// separately for audit visibility. Rankings break ties on the
// first-encountered key so repeated runs over the same snapshot are
// identical.
func Summarize(records []sales.Sale, window Window) SalesSummary {
	location := window.Location
	if location == nil {
		location = time.UTC
	}
	todayYear, todayMonth, todayDay := window.Reference.In(location).Date()
	yesterday := window.Reference.In(location).AddDate(0, 0, -1)
	yesterdayYear, yesterdayMonth, yesterdayDay := yesterday.Date()

	var summary SalesSummary
	total := decimal.Zero
	todayTotal := decimal.Zero
	yesterdayTotal := decimal.Zero

	products := newRanking()
	stations := newRanking()
	pumps := newRanking()

	for _, sale := range records {
		if !sale.CountsTowardTotals() {
			summary.CancelledCount++
			if sale.IsVoid {
				summary.VoidedCount++
			}
			continue
		}

		amount := decimal.NewFromFloat(sale.TotalAmount)
		total = total.Add(amount)
		summary.TotalVolume += sale.LitresSold
		summary.TotalTransactions++

		year, month, day := sale.TransactionTime.In(location).Date()
		if year == todayYear && month == todayMonth && day == todayDay {
			todayTotal = todayTotal.Add(amount)
		} else if year == yesterdayYear && month == yesterdayMonth && day == yesterdayDay {
			yesterdayTotal = yesterdayTotal.Add(amount)
		}

		products.add(sale.ProductID, amount)
		stations.add(sale.StationID, amount)
		pumps.add(sale.PumpID, amount)
	}

	summary.TotalSales = total.Round(2).InexactFloat64()
	summary.TodaySales = todayTotal.Round(2).InexactFloat64()
	summary.YesterdaySales = yesterdayTotal.Round(2).InexactFloat64()
	if summary.TotalTransactions > 0 {
		summary.AverageTicket = total.
			Div(decimal.NewFromInt(int64(summary.TotalTransactions))).
			Round(2).InexactFloat64()
	}
	summary.GrowthPercentage = growthPercentage(todayTotal, yesterdayTotal)
	summary.TopProduct = products.top()
	summary.TopStation = stations.top()
	summary.TopPump = pumps.top()
	return summary
}

// growthPercentage applies the explicit edge-case policy: 0 when both
// days are flat, 100 when yesterday was zero and today is positive, the
// ratio otherwise.
func growthPercentage(today, yesterday decimal.Decimal) float64 {
	if yesterday.IsPositive() {
		return today.Sub(yesterday).
			Div(yesterday).
			Mul(decimal.NewFromInt(100)).
			Round(2).InexactFloat64()
	}
	if today.IsPositive() {
		return 100
	}
	return 0
}

// ranking accumulates amounts per key, remembering encounter order so
// ties resolve deterministically.
type ranking struct {
	amounts map[string]decimal.Decimal
	order   []string
}

func newRanking() *ranking {
	return &ranking{amounts: make(map[string]decimal.Decimal)}
}

func (r *ranking) add(key string, amount decimal.Decimal) {
	if key == "" {
		return
	}
	current, ok := r.amounts[key]
	if !ok {
		r.order = append(r.order, key)
	}
	r.amounts[key] = current.Add(amount)
}

func (r *ranking) top() RankedEntry {
	var best RankedEntry
	bestAmount := decimal.Zero
	found := false
	for _, key := range r.order {
		amount := r.amounts[key]
		if !found || amount.GreaterThan(bestAmount) {
			best = RankedEntry{Key: key, Amount: amount.Round(2).InexactFloat64()}
			bestAmount = amount
			found = true
		}
	}
	return best
}

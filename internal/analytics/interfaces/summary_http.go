package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	analyticsapp "fuelretail-cloud/internal/analytics/application"
	"fuelretail-cloud/internal/auth"
)

// SummaryHandler serves GET /api/v1/summary.
type SummaryHandler struct {
	service *analyticsapp.SummaryService
}

// NewSummaryHandler constructs a handler.
func NewSummaryHandler(service *analyticsapp.SummaryService) (*SummaryHandler, error) {
	if service == nil {
		return nil, errors.New("summary handler: nil service")
	}
	return &SummaryHandler{service: service}, nil
}

func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	req := analyticsapp.SummaryRequest{StationID: q.Get("station_id")}
	if from := q.Get("from"); from != "" {
		at, err := time.Parse(time.RFC3339, from)
		if err != nil {
			http.Error(w, "from must be RFC3339", http.StatusBadRequest)
			return
		}
		req.From = at.UTC()
	}
	if to := q.Get("to"); to != "" {
		at, err := time.Parse(time.RFC3339, to)
		if err != nil {
			http.Error(w, "to must be RFC3339", http.StatusBadRequest)
			return
		}
		req.To = at.UTC()
	}

	result, err := h.service.Summary(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, auth.ErrNotFound):
			http.Error(w, "station not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	summary := result.Summary
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"currency":           result.Currency,
		"cached":             result.Cached,
		"total_sales":        summary.TotalSales,
		"total_volume":       summary.TotalVolume,
		"total_transactions": summary.TotalTransactions,
		"average_ticket":     summary.AverageTicket,
		"today_sales":        summary.TodaySales,
		"yesterday_sales":    summary.YesterdaySales,
		"growth_percentage":  summary.GrowthPercentage,
		"top_product": map[string]any{
			"key": summary.TopProduct.Key, "amount": summary.TopProduct.Amount,
		},
		"top_station": map[string]any{
			"key": summary.TopStation.Key, "amount": summary.TopStation.Amount,
		},
		"top_pump": map[string]any{
			"key": summary.TopPump.Key, "amount": summary.TopPump.Amount,
		},
		"cancelled_count": summary.CancelledCount,
		"voided_count":    summary.VoidedCount,
	})
}

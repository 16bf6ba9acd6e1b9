package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alertsapp "fuelretail-cloud/internal/alerts/application"
	alerts "fuelretail-cloud/internal/alerts/domain"
	"fuelretail-cloud/internal/auth"
)

// AlertHandler handles alert APIs under /api/v1/alerts.
type AlertHandler struct {
	service *alertsapp.AlertService
}

// NewAlertHandler constructs a handler.
func NewAlertHandler(service *alertsapp.AlertService) (*AlertHandler, error) {
	if service == nil {
		return nil, errors.New("alert handler: nil service")
	}
	return &AlertHandler{service: service}, nil
}

// ServeHTTP routes alert requests.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/alerts" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/alerts/") {
		rest := strings.TrimPrefix(path, "/api/v1/alerts/")
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[1] == "resolve" && r.Method == http.MethodPost {
			h.handleResolve(w, r, parts[0])
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *AlertHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), alerts.Query{
		StationID:  q.Get("station_id"),
		Kind:       q.Get("kind"),
		Unresolved: q.Get("unresolved") == "true",
	})
	if err != nil {
		respondAlertError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(list))
	for i := range list {
		resp = append(resp, alertResponse(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *AlertHandler) handleResolve(w http.ResponseWriter, r *http.Request, id string) {
	alert, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		respondAlertError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alertResponse(alert))
}

func alertResponse(alert *alerts.Alert) map[string]any {
	resp := map[string]any{
		"id":          alert.ID,
		"station_id":  alert.StationID,
		"pump_id":     alert.PumpID,
		"sale_id":     alert.SaleID,
		"kind":        alert.Kind,
		"detail":      alert.Detail,
		"resolved":    alert.Resolved,
		"resolved_by": alert.ResolvedBy,
		"created_at":  alert.CreatedAt.Format(time.RFC3339),
	}
	if alert.ResolvedAt != nil {
		resp["resolved_at"] = alert.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}

func respondAlertError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, alerts.ErrNotFound):
		http.Error(w, "alert not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

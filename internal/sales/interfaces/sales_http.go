package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fuelretail-cloud/internal/audit"
	"fuelretail-cloud/internal/auth"
	salesapp "fuelretail-cloud/internal/sales/application"
	sales "fuelretail-cloud/internal/sales/domain"
)

// SaleHandler handles sale APIs under /api/v1/sales.
type SaleHandler struct {
	service     *salesapp.SaleService
	auditLogger audit.Logger
}

// NewSaleHandler constructs a handler.
func NewSaleHandler(service *salesapp.SaleService, auditLogger audit.Logger) (*SaleHandler, error) {
	if service == nil {
		return nil, errors.New("sale handler: nil service")
	}
	return &SaleHandler{service: service, auditLogger: auditLogger}, nil
}

type saleRequest struct {
	StationID         string   `json:"station_id"`
	PumpID            string   `json:"pump_id"`
	ProductID         string   `json:"product_id"`
	ClosingMeter      float64  `json:"closing_meter"`
	UnitPriceOverride *float64 `json:"unit_price"`
	CashReceived      *float64 `json:"cash_received"`
	PaymentMethod     string   `json:"payment_method"`
	CustomerType      string   `json:"customer_type"`
	Notes             string   `json:"notes"`
	TransactionTime   string   `json:"transaction_time"`
}

type saleUpdateRequest struct {
	OpeningMeter  *float64 `json:"opening_meter"`
	ClosingMeter  *float64 `json:"closing_meter"`
	UnitPrice     *float64 `json:"unit_price"`
	CashReceived  *float64 `json:"cash_received"`
	PaymentMethod *string  `json:"payment_method"`
	CustomerType  *string  `json:"customer_type"`
	Status        *string  `json:"status"`
	Notes         *string  `json:"notes"`
}

// ServeHTTP routes sale requests.
func (h *SaleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/sales" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.HasPrefix(path, "/api/v1/sales/") {
		rest := strings.TrimPrefix(path, "/api/v1/sales/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SaleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	createReq := salesapp.CreateSaleRequest{
		StationID:         req.StationID,
		PumpID:            req.PumpID,
		ProductID:         req.ProductID,
		ClosingMeter:      req.ClosingMeter,
		UnitPriceOverride: req.UnitPriceOverride,
		CashReceived:      req.CashReceived,
		PaymentMethod:     req.PaymentMethod,
		CustomerType:      req.CustomerType,
		Notes:             req.Notes,
	}
	if req.TransactionTime != "" {
		at, err := time.Parse(time.RFC3339, req.TransactionTime)
		if err != nil {
			http.Error(w, "transaction_time must be RFC3339", http.StatusBadRequest)
			return
		}
		createReq.TransactionTime = at.UTC()
	}
	sale, err := h.service.Create(r.Context(), createReq)
	if err != nil {
		respondSaleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(saleResponse(sale))
	h.logAudit(r, sale.StationID, sale.ID, "sale.create", map[string]any{
		"pump_id":      sale.PumpID,
		"litres_sold":  sale.LitresSold,
		"total_amount": sale.TotalAmount,
	})
}

func (h *SaleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := salesapp.ListSalesRequest{
		StationID:        q.Get("station_id"),
		PumpID:           q.Get("pump_id"),
		Status:           q.Get("status"),
		IncludeCancelled: q.Get("include_cancelled") == "true",
	}
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
	list, err := h.service.List(r.Context(), req)
	if err != nil {
		respondSaleError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(list))
	for i := range list {
		resp = append(resp, saleResponse(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *SaleHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodPut:
			h.handleUpdate(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "cancel":
			h.handleCancel(w, r, id)
			return
		case "void":
			h.handleVoid(w, r, id)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SaleHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSaleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(saleResponse(sale))
}

func (h *SaleHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req saleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sale, err := h.service.Update(r.Context(), id, salesapp.UpdateSaleRequest{
		OpeningMeter:  req.OpeningMeter,
		ClosingMeter:  req.ClosingMeter,
		UnitPrice:     req.UnitPrice,
		CashReceived:  req.CashReceived,
		PaymentMethod: req.PaymentMethod,
		CustomerType:  req.CustomerType,
		Status:        req.Status,
		Notes:         req.Notes,
	})
	if err != nil {
		respondSaleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(saleResponse(sale))
	h.logAudit(r, sale.StationID, sale.ID, "sale.update", map[string]any{
		"total_amount": sale.TotalAmount,
		"status":       sale.Status,
	})
}

func (h *SaleHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	sale, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respondSaleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(saleResponse(sale))
	h.logAudit(r, sale.StationID, sale.ID, "sale.cancel", nil)
}

func (h *SaleHandler) handleVoid(w http.ResponseWriter, r *http.Request, id string) {
	sale, err := h.service.Void(r.Context(), id)
	if err != nil {
		respondSaleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(saleResponse(sale))
	h.logAudit(r, sale.StationID, sale.ID, "sale.void", nil)
}

func saleResponse(sale *sales.Sale) map[string]any {
	return map[string]any{
		"id":               sale.ID,
		"station_id":       sale.StationID,
		"pump_id":          sale.PumpID,
		"pump_number":      sale.PumpNumber,
		"product_id":       sale.ProductID,
		"opening_meter":    sale.OpeningMeter,
		"closing_meter":    sale.ClosingMeter,
		"unit_price":       sale.UnitPrice,
		"litres_sold":      sale.LitresSold,
		"total_amount":     sale.TotalAmount,
		"cash_received":    sale.CashReceived,
		"variance":         sale.Variance,
		"payment_method":   sale.PaymentMethod,
		"customer_type":    sale.CustomerType,
		"status":           sale.Status,
		"transaction_time": sale.TransactionTime.Format(time.RFC3339),
		"created_by":       sale.CreatedBy,
		"is_void":          sale.IsVoid,
		"notes":            sale.Notes,
	}
}

func respondSaleError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, auth.ErrForbidden):
		// Never confirms whether out-of-scope records exist.
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, sales.ErrNotFound),
		errors.Is(err, sales.ErrMissingPump), errors.Is(err, sales.ErrMissingProduct):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sales.ErrStaleMeter), errors.Is(err, sales.ErrSaleCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, sales.ErrInconsistentWrite):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *SaleHandler) logAudit(r *http.Request, stationID, saleID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "sale",
		ResourceID:   saleID,
		StationID:    stationID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fuelretail-cloud/internal/audit"
	"fuelretail-cloud/internal/auth"
	depositsapp "fuelretail-cloud/internal/deposits/application"
	deposits "fuelretail-cloud/internal/deposits/domain"
)

// DepositHandler handles deposit APIs under /api/v1/deposits.
type DepositHandler struct {
	service     *depositsapp.DepositService
	auditLogger audit.Logger
}

// NewDepositHandler constructs a handler.
func NewDepositHandler(service *depositsapp.DepositService, auditLogger audit.Logger) (*DepositHandler, error) {
	if service == nil {
		return nil, errors.New("deposit handler: nil service")
	}
	return &DepositHandler{service: service, auditLogger: auditLogger}, nil
}

type depositRequest struct {
	StationID     string  `json:"station_id"`
	DepositDate   string  `json:"deposit_date"`
	Amount        float64 `json:"amount"`
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
	SlipReference string  `json:"slip_reference"`
	Notes         string  `json:"notes"`
}

type depositUpdateRequest struct {
	DepositDate   *string  `json:"deposit_date"`
	Amount        *float64 `json:"amount"`
	BankName      *string  `json:"bank_name"`
	AccountNumber *string  `json:"account_number"`
	SlipReference *string  `json:"slip_reference"`
	Notes         *string  `json:"notes"`
}

// ServeHTTP routes deposit requests.
func (h *DepositHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/deposits" {
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
	if strings.HasPrefix(path, "/api/v1/deposits/") {
		rest := strings.TrimPrefix(path, "/api/v1/deposits/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *DepositHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
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
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "confirm":
			h.handleTransition(w, r, id, h.service.Confirm, "deposit.confirm")
			return
		case "reconcile":
			h.handleTransition(w, r, id, h.service.Reconcile, "deposit.reconcile")
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *DepositHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	createReq := depositsapp.CreateDepositRequest{
		StationID:     req.StationID,
		Amount:        req.Amount,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		SlipReference: req.SlipReference,
		Notes:         req.Notes,
	}
	if req.DepositDate != "" {
		at, err := parseDate(req.DepositDate)
		if err != nil {
			http.Error(w, "deposit_date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		createReq.DepositDate = at
	}
	deposit, err := h.service.Create(r.Context(), createReq)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(depositResponse(deposit))
	h.logAudit(r, deposit, "deposit.create", nil)
}

func (h *DepositHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := depositsapp.ListDepositsRequest{
		StationID: q.Get("station_id"),
		Status:    q.Get("status"),
	}
	if from := q.Get("from"); from != "" {
		at, err := parseDate(from)
		if err != nil {
			http.Error(w, "from must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.From = at
	}
	if to := q.Get("to"); to != "" {
		at, err := parseDate(to)
		if err != nil {
			http.Error(w, "to must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.To = at
	}
	list, err := h.service.List(r.Context(), req)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(list))
	for i := range list {
		resp = append(resp, depositResponse(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *DepositHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	deposit, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(depositResponse(deposit))
}

func (h *DepositHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req depositUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	updateReq := depositsapp.UpdateDepositRequest{
		Amount:        req.Amount,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		SlipReference: req.SlipReference,
		Notes:         req.Notes,
	}
	if req.DepositDate != nil {
		at, err := parseDate(*req.DepositDate)
		if err != nil {
			http.Error(w, "deposit_date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		updateReq.DepositDate = &at
	}
	deposit, err := h.service.Update(r.Context(), id, updateReq)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(depositResponse(deposit))
	h.logAudit(r, deposit, "deposit.update", nil)
}

func (h *DepositHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := h.service.Delete(r.Context(), id)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	// The audit entry carries the full prior record: a deleted deposit
	// must stay reconstructible.
	prior, _ := json.Marshal(depositResponse(removed))
	h.logAudit(r, removed, "deposit.delete", prior)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DepositHandler) handleTransition(w http.ResponseWriter, r *http.Request, id string,
	transition func(context.Context, string) (*deposits.Deposit, error), action string) {
	deposit, err := transition(r.Context(), id)
	if err != nil {
		respondDepositError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(depositResponse(deposit))
	h.logAudit(r, deposit, action, nil)
}

func depositResponse(deposit *deposits.Deposit) map[string]any {
	resp := map[string]any{
		"id":             deposit.ID,
		"station_id":     deposit.StationID,
		"deposit_date":   deposit.DepositDate.Format(time.RFC3339),
		"amount":         deposit.Amount,
		"bank_name":      deposit.BankName,
		"account_number": deposit.AccountNumber,
		"slip_reference": deposit.SlipReference,
		"status":         deposit.Status,
		"deposited_by":   deposit.DepositedBy,
		"confirmed_by":   deposit.ConfirmedBy,
		"reconciled_by":  deposit.ReconciledBy,
		"notes":          deposit.Notes,
		"created_at":     deposit.CreatedAt.Format(time.RFC3339),
		"updated_at":     deposit.UpdatedAt.Format(time.RFC3339),
	}
	if deposit.ReconciliationDate != nil {
		resp["reconciliation_date"] = deposit.ReconciliationDate.Format(time.RFC3339)
	}
	return resp
}

func respondDepositError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, deposits.ErrNotFound):
		http.Error(w, "deposit not found", http.StatusNotFound)
	case errors.Is(err, deposits.ErrInvalidTransition), errors.Is(err, deposits.ErrStaleStatus),
		errors.Is(err, deposits.ErrNotEditable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func parseDate(value string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at.UTC(), nil
	}
	at, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return at.UTC(), nil
}

func (h *DepositHandler) logAudit(r *http.Request, deposit *deposits.Deposit, action string, prior json.RawMessage) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "deposit",
		ResourceID:   deposit.ID,
		StationID:    deposit.StationID,
		Metadata:     prior,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fuelretail-cloud/internal/audit"
	"fuelretail-cloud/internal/auth"
	reportapp "fuelretail-cloud/internal/reporting/application"
	reporting "fuelretail-cloud/internal/reporting/domain"
)

// ReportHandler handles report APIs under /api/v1/reports.
type ReportHandler struct {
	service     *reportapp.ReportService
	auditLogger audit.Logger
}

// NewReportHandler constructs a handler.
func NewReportHandler(service *reportapp.ReportService, auditLogger audit.Logger) (*ReportHandler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil service")
	}
	return &ReportHandler{service: service, auditLogger: auditLogger}, nil
}

type generateRequest struct {
	StationID  string `json:"station_id"`
	ReportDate string `json:"report_date"`
}

// ServeHTTP routes report requests.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/reports":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case path == "/api/v1/reports/generate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGenerate(w, r)
	case strings.HasPrefix(path, "/api/v1/reports/"):
		h.handleByID(w, r, strings.TrimPrefix(path, "/api/v1/reports/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch {
		case parts[1] == "finalize" && r.Method == http.MethodPost:
			h.handleFinalize(w, r, id)
			return
		case parts[1] == "verify" && r.Method == http.MethodGet:
			h.handleVerify(w, r, id)
			return
		case parts[1] == "export" && r.Method == http.MethodGet:
			h.handleExport(w, r, id)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *ReportHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	genReq := reportapp.GenerateRequest{StationID: req.StationID}
	if req.ReportDate != "" {
		at, err := time.Parse("2006-01-02", req.ReportDate)
		if err != nil {
			http.Error(w, "report_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		genReq.ReportDate = at.UTC()
	}
	snapshot, err := h.service.Generate(r.Context(), genReq)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(reportResponse(snapshot))
	h.logAudit(r, snapshot, "report.generate")
}

func (h *ReportHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := reportapp.ListReportsRequest{
		StationID: q.Get("station_id"),
		Status:    q.Get("status"),
	}
	if from := q.Get("from"); from != "" {
		at, err := time.Parse("2006-01-02", from)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.From = at.UTC()
	}
	if to := q.Get("to"); to != "" {
		at, err := time.Parse("2006-01-02", to)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.To = at.UTC()
	}
	list, err := h.service.List(r.Context(), req)
	if err != nil {
		respondReportError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(list))
	for i := range list {
		resp = append(resp, reportResponse(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *ReportHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	snapshot, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reportResponse(snapshot))
}

func (h *ReportHandler) handleFinalize(w http.ResponseWriter, r *http.Request, id string) {
	snapshot, err := h.service.Finalize(r.Context(), id)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reportResponse(snapshot))
	h.logAudit(r, snapshot, "report.finalize")
}

func (h *ReportHandler) handleVerify(w http.ResponseWriter, r *http.Request, id string) {
	supplied := r.URL.Query().Get("fingerprint")
	if supplied == "" {
		http.Error(w, "fingerprint query parameter is required", http.StatusBadRequest)
		return
	}
	result, err := h.service.Verify(r.Context(), id, supplied)
	if err != nil && !errors.Is(err, reporting.ErrTampered) {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"valid":       result.Valid,
		"fingerprint": result.Fingerprint,
	})
}

func (h *ReportHandler) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	snapshot, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondReportError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}
	switch format {
	case "pdf":
		writeReportPDF(w, snapshot)
	case "xlsx":
		writeReportXLSX(w, snapshot)
	default:
		http.Error(w, "format must be pdf or xlsx", http.StatusBadRequest)
		return
	}
	h.logAudit(r, snapshot, "report.export."+format)
}

func reportResponse(snapshot *reporting.Snapshot) map[string]any {
	return map[string]any{
		"id":                snapshot.ID,
		"report_date":       snapshot.ReportDate.Format("2006-01-02"),
		"station_id":        snapshot.StationID,
		"total_sales":       snapshot.TotalSales,
		"total_volume":      snapshot.TotalVolume,
		"transaction_count": snapshot.TransactionCount,
		"cash_collected":    snapshot.CashCollected,
		"deposits_pending":  snapshot.DepositsPending,
		"deposits_banked":   snapshot.DepositsBanked,
		"cash_variance":     snapshot.CashVariance,
		"status":            snapshot.Status,
		"fingerprint":       snapshot.Fingerprint,
		"generated_by":      snapshot.GeneratedBy,
		"created_at":        snapshot.CreatedAt.Format(time.RFC3339),
		"updated_at":        snapshot.UpdatedAt.Format(time.RFC3339),
	}
}

func respondReportError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, reporting.ErrNotFound):
		http.Error(w, "report not found", http.StatusNotFound)
	case errors.Is(err, reporting.ErrFinalized):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *ReportHandler) logAudit(r *http.Request, snapshot *reporting.Snapshot, action string) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "report",
		ResourceID:   snapshot.ID,
		StationID:    snapshot.StationID,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fuelretail-cloud/internal/audit"
	"fuelretail-cloud/internal/auth"
	masterdataapp "fuelretail-cloud/internal/masterdata/application"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// MasterdataHandler handles station, pump, product and price APIs.
type MasterdataHandler struct {
	service     *masterdataapp.MasterdataService
	auditLogger audit.Logger
}

// NewMasterdataHandler constructs a handler.
func NewMasterdataHandler(service *masterdataapp.MasterdataService, auditLogger audit.Logger) (*MasterdataHandler, error) {
	if service == nil {
		return nil, errors.New("masterdata handler: nil service")
	}
	return &MasterdataHandler{service: service, auditLogger: auditLogger}, nil
}

type stationRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	DealerID string `json:"dealer_id"`
	OMCID    string `json:"omc_id"`
}

type pumpRequest struct {
	ID         string  `json:"id"`
	StationID  string  `json:"station_id"`
	PumpNumber int     `json:"pump_number"`
	FuelType   string  `json:"fuel_type"`
	Meter      float64 `json:"current_meter_reading"`
	Active     *bool   `json:"active"`
}

type meterCorrectionRequest struct {
	Expected float64 `json:"expected"`
	Reading  float64 `json:"reading"`
}

type priceRequest struct {
	StationID string  `json:"station_id"`
	ProductID string  `json:"product_id"`
	UnitPrice float64 `json:"unit_price"`
}

// ServeHTTP routes masterdata requests.
func (h *MasterdataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/stations":
		switch r.Method {
		case http.MethodGet:
			h.handleListStations(w, r)
		case http.MethodPost:
			h.handleSaveStation(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(path, "/api/v1/stations/"):
		h.handleStationByID(w, r, strings.TrimPrefix(path, "/api/v1/stations/"))
	case path == "/api/v1/pumps":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSavePump(w, r)
	case strings.HasPrefix(path, "/api/v1/pumps/"):
		h.handlePumpByID(w, r, strings.TrimPrefix(path, "/api/v1/pumps/"))
	case path == "/api/v1/products":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleListProducts(w, r)
	case path == "/api/v1/prices":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSetPrice(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *MasterdataHandler) handleStationByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		station, err := h.service.GetStation(r.Context(), id)
		if err != nil {
			respondMasterdataError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stationResponse(station))
		return
	}
	if len(parts) == 2 && parts[1] == "pumps" && r.Method == http.MethodGet {
		pumps, err := h.service.ListPumps(r.Context(), id)
		if err != nil {
			respondMasterdataError(w, err)
			return
		}
		resp := make([]map[string]any, 0, len(pumps))
		for i := range pumps {
			resp = append(resp, pumpResponse(&pumps[i]))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *MasterdataHandler) handlePumpByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "meter" && r.Method == http.MethodPost {
		h.handleCorrectMeter(w, r, parts[0])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *MasterdataHandler) handleListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.ListStations(r.Context())
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(stations))
	for i := range stations {
		resp = append(resp, stationResponse(&stations[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *MasterdataHandler) handleSaveStation(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	station, err := h.service.SaveStation(r.Context(), masterdata.Station{
		ID:       req.ID,
		Name:     req.Name,
		Region:   req.Region,
		DealerID: req.DealerID,
		OMCID:    req.OMCID,
	})
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(stationResponse(station))
	h.logAudit(r, "station.save", "station", station.ID, station.ID)
}

func (h *MasterdataHandler) handleSavePump(w http.ResponseWriter, r *http.Request) {
	var req pumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	pump, err := h.service.SavePump(r.Context(), masterdata.Pump{
		ID:           req.ID,
		StationID:    req.StationID,
		PumpNumber:   req.PumpNumber,
		FuelType:     req.FuelType,
		CurrentMeter: req.Meter,
		Active:       active,
	})
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(pumpResponse(pump))
	h.logAudit(r, "pump.save", "pump", pump.ID, pump.StationID)
}

func (h *MasterdataHandler) handleCorrectMeter(w http.ResponseWriter, r *http.Request, pumpID string) {
	var req meterCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	pump, err := h.service.CorrectMeter(r.Context(), masterdataapp.CorrectMeterRequest{
		PumpID:   pumpID,
		Expected: req.Expected,
		Reading:  req.Reading,
	})
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pumpResponse(pump))
	h.logAudit(r, "pump.meter_correct", "pump", pump.ID, pump.StationID)
}

func (h *MasterdataHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(products))
	for i := range products {
		product := &products[i]
		resp = append(resp, map[string]any{
			"id":         product.ID,
			"name":       product.Name,
			"fuel_type":  product.FuelType,
			"unit":       product.Unit,
			"created_at": product.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *MasterdataHandler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	price, err := h.service.SetPrice(r.Context(), masterdataapp.SetPriceRequest{
		StationID: req.StationID,
		ProductID: req.ProductID,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"station_id": price.StationID,
		"product_id": price.ProductID,
		"unit_price": price.UnitPrice,
		"updated_at": price.UpdatedAt.Format(time.RFC3339),
	})
	h.logAudit(r, "price.set", "price", price.ProductID, price.StationID)
}

func stationResponse(station *masterdata.Station) map[string]any {
	return map[string]any{
		"id":         station.ID,
		"name":       station.Name,
		"region":     station.Region,
		"dealer_id":  station.DealerID,
		"omc_id":     station.OMCID,
		"created_at": station.CreatedAt.Format(time.RFC3339),
		"updated_at": station.UpdatedAt.Format(time.RFC3339),
	}
}

func pumpResponse(pump *masterdata.Pump) map[string]any {
	return map[string]any{
		"id":                    pump.ID,
		"station_id":            pump.StationID,
		"pump_number":           pump.PumpNumber,
		"fuel_type":             pump.FuelType,
		"current_meter_reading": pump.CurrentMeter,
		"active":                pump.Active,
		"created_at":            pump.CreatedAt.Format(time.RFC3339),
		"updated_at":            pump.UpdatedAt.Format(time.RFC3339),
	}
}

func respondMasterdataError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, masterdata.ErrStaleMeter):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *MasterdataHandler) logAudit(r *http.Request, action, resourceType, resourceID, stationID string) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		StationID:    stationID,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

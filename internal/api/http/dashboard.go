package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/forgev2/forge-admin/internal/dashboard"
	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/export"
	"github.com/forgev2/forge-admin/internal/observability"
)

// DashboardHandler serves the dashboard API.
type DashboardHandler struct {
	service *dashboard.Service
	stats   *observability.FetchStats
	logger  *zap.Logger
}

// NewDashboardHandler creates the handler. stats may be nil.
func NewDashboardHandler(service *dashboard.Service, stats *observability.FetchStats, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{service: service, stats: stats, logger: logger}
}

// SortRequest is the body of POST /v1/sort.
type SortRequest struct {
	Table string `json:"table"`
	Key   string `json:"key"`
}

// HealthResponse is the dashboard health payload.
type HealthResponse struct {
	Status    string                        `json:"status"`
	Service   string                        `json:"service"`
	Resources []observability.ResourceStats `json:"resources,omitempty"`
}

// Register mounts the dashboard routes on mux.
func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/overview", h.overview)
	mux.HandleFunc("GET /v1/workflows", h.workflows)
	mux.HandleFunc("GET /v1/tables/{table}", h.table)
	mux.HandleFunc("GET /v1/tables/{table}/csv", h.csv)
	mux.HandleFunc("POST /v1/sort", h.sort)
	mux.HandleFunc("POST /v1/refresh", h.refresh)
	mux.HandleFunc("GET /health", h.health)
}

func (h *DashboardHandler) overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Dashboard(r.Context()).Overview)
}

func (h *DashboardHandler) workflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Dashboard(r.Context()).Workflows)
}

func (h *DashboardHandler) table(w http.ResponseWriter, r *http.Request) {
	tv, err := h.service.Table(r.Context(), r.PathValue("table"))
	if err != nil {
		writeForgeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tv)
}

func (h *DashboardHandler) csv(w http.ResponseWriter, r *http.Request) {
	id, table, err := h.service.Export(r.Context(), r.PathValue("table"))
	if err != nil {
		writeForgeError(w, r, err)
		return
	}

	body := export.CSV(table)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Warn("csv download interrupted", zap.String("table", string(id)), zap.Error(err))
	}
}

func (h *DashboardHandler) sort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeForgeError(w, r, forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest, "invalid JSON body"))
		return
	}
	if req.Table == "" || req.Key == "" {
		writeForgeError(w, r, forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest, "table and key are required"))
		return
	}

	state, err := h.service.Toggle(r.Context(), req.Table, req.Key)
	if err != nil {
		writeForgeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *DashboardHandler) refresh(w http.ResponseWriter, r *http.Request) {
	d := h.service.Refresh(r.Context())
	writeJSON(w, http.StatusOK, d.Overview)
}

func (h *DashboardHandler) health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "healthy", Service: "forge-dashboard"}
	if h.stats != nil {
		resp.Resources = h.stats.Snapshot()
		if len(h.stats.Failing()) > 0 {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

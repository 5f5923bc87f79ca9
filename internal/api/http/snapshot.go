package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/snapshot"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SnapshotHandler serves stored table snapshots and triggers refreshes.
type SnapshotHandler struct {
	store     *snapshot.Store
	refresher *snapshot.Refresher
	logger    *zap.Logger
}

// NewSnapshotHandler creates the handler.
func NewSnapshotHandler(store *snapshot.Store, refresher *snapshot.Refresher, logger *zap.Logger) *SnapshotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotHandler{store: store, refresher: refresher, logger: logger}
}

// DataResponse is the body of GET /data/{table}.
type DataResponse struct {
	Table string          `json:"table"`
	Rows  int             `json:"rows"`
	Data  json.RawMessage `json:"data"`
}

// SnapshotHealth is the snapshot service health payload.
type SnapshotHealth struct {
	Status      string           `json:"status"`
	Service     string           `json:"service"`
	Tables      []string         `json:"tables"`
	LastRefresh *snapshot.Report `json:"last_refresh,omitempty"`
}

// Register mounts the snapshot routes on mux.
func (h *SnapshotHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /data/{table}", h.data)
	mux.HandleFunc("GET /update-all", h.updateAll)
	mux.HandleFunc("GET /health", h.health)
}

func (h *SnapshotHandler) data(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if !tableNamePattern.MatchString(table) {
		writeForgeError(w, r, forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest,
			fmt.Sprintf("invalid table name %q", table)))
		return
	}

	snap, err := h.store.Load(r.Context(), table)
	if forgeerrors.GetCode(err) == forgeerrors.CodeSnapshotMissing {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Data for table '%s' not found. Run /update-all or wait for scheduled pull.", table),
			forgeerrors.CodeSnapshotMissing, GetRequestID(r.Context()))
		return
	}
	if err != nil {
		h.logger.Error("snapshot unreadable", zap.String("table", table), zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to read data for table '%s'", table),
			forgeerrors.GetCode(err), GetRequestID(r.Context()))
		return
	}

	etag := `"` + snap.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", snap.SavedAt.UTC().Format(http.TimeFormat))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := snapshot.MarshalRows(snap.Columns, snap.Rows)
	if err != nil {
		writeForgeError(w, r, forgeerrors.NewInternalError("failed to encode snapshot rows", err))
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Table: table, Rows: len(snap.Rows), Data: data})
}

func (h *SnapshotHandler) updateAll(w http.ResponseWriter, r *http.Request) {
	report := h.refresher.RefreshAll(r.Context())
	w.Header().Set("X-Refresh-ID", report.ID)
	writeJSON(w, http.StatusOK, report.Results)
}

func (h *SnapshotHandler) health(w http.ResponseWriter, _ *http.Request) {
	resp := SnapshotHealth{
		Status:      "healthy",
		Service:     "forge-snapshot",
		Tables:      h.refresher.Tables(),
		LastRefresh: h.refresher.LastReport(),
	}
	switch {
	case resp.LastRefresh == nil:
		resp.Status = "starting"
	case len(resp.LastRefresh.Failures()) > 0:
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

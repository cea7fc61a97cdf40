package api

import (
	"encoding/json"
	"net/http"

	"github.com/gatlingexporter/gatling-exporter/exporter/internal/compute"
)

// OperationSource provides the cumulative per-operation view.
type OperationSource interface {
	Operations() []compute.OperationStats
}

// BufferStats is the read-only view of the line buffer.
type BufferStats interface {
	Len() int
	Cap() int
	Dropped() uint64
	Pushed() uint64
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	ops OperationSource
	buf BufferStats
	mux *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(ops OperationSource, buf BufferStats) http.Handler {
	h := &Handler{ops: ops, buf: buf, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/operations", h.operations)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		BufferLen:    h.buf.Len(),
		BufferCap:    h.buf.Cap(),
		LinesRead:    h.buf.Pushed(),
		LinesDropped: h.buf.Dropped(),
	})
}

// operations returns GET /api/v1/operations, sorted by operation id.
func (h *Handler) operations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats := h.ops.Operations()
	resp := OperationsResponse{Operations: make([]OperationResponse, 0, len(stats))}
	for _, s := range stats {
		resp.Operations = append(resp.Operations, OperationResponse{
			Operation:    s.Operation,
			SuccessCount: s.Success,
			FailureCount: s.Failure,
			LatencyP50Ms: s.P50Ms,
			LatencyP95Ms: s.P95Ms,
			LatencyP99Ms: s.P99Ms,
			LatencyMaxMs: s.MaxMs,
		})
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ---------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

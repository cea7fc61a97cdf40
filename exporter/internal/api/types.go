package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	BufferLen    int    `json:"buffer_len"`
	BufferCap    int    `json:"buffer_cap"`
	LinesRead    uint64 `json:"lines_read"`
	LinesDropped uint64 `json:"lines_dropped"`
}

// OperationResponse is one entry of GET /api/v1/operations.
type OperationResponse struct {
	Operation    string `json:"operation_id"`
	SuccessCount uint64 `json:"success_count"`
	FailureCount uint64 `json:"failure_count"`
	LatencyP50Ms int64  `json:"latency_p50_ms"`
	LatencyP95Ms int64  `json:"latency_p95_ms"`
	LatencyP99Ms int64  `json:"latency_p99_ms"`
	LatencyMaxMs int64  `json:"latency_max_ms"`
}

// OperationsResponse is the payload for GET /api/v1/operations.
type OperationsResponse struct {
	Operations []OperationResponse `json:"operations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

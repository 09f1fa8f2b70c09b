package api

// StatusResponse is the liveness check payload
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports service health and load
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

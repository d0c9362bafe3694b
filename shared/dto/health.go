package dto

// HealthResponse describes the payload returned by standard /healthz endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	// Details carries static deployment facts such as the configured backends.
	Details map[string]string `json:"details,omitempty"`
}

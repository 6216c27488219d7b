package api

import (
	"time"
)

// AnalysisResponse wraps one analysis result.
type AnalysisResponse struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	DurationMS int64     `json:"duration_ms"`
	Result     any       `json:"result"`
}

// SchemaInfo describes one schema variant.
type SchemaInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Numeric     []string `json:"numeric"`
	RequirePH   bool     `json:"require_ph"`
	Default     bool     `json:"default"`
}

// SchemasResponse lists the schema variants.
type SchemasResponse struct {
	Schemas []SchemaInfo `json:"schemas"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

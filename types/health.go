package types

import "time"

type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// Component names reported by the health check.
const (
	ComponentDatabase = "database"
	ComponentRedis    = "redis"
	ComponentAdvisory = "advisory"
)

// HealthComponent is the result of one dependency probe. Critical components
// take the whole service DOWN when they fail.
type HealthComponent struct {
	Status    HealthStatus `json:"status"`
	Critical  bool         `json:"critical"`
	LatencyMs int64        `json:"latencyMs"`
	Details   string       `json:"details,omitempty"`
}

// HealthCheck is the body of GET /health.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	CheckedAt  time.Time                  `json:"checkedAt"`
	Components map[string]HealthComponent `json:"components"`
}

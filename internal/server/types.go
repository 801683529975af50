package server

import "github.com/hakimbdev/items-api/internal/stats"

// API Response Types - Typed structs instead of map[string]interface{}

// StatsResponse is the stats summary plus cache metadata.
// CacheAge is in milliseconds and only present when Cached is true.
type StatsResponse struct {
	stats.Summary
	Cached   bool   `json:"cached"`
	CacheAge *int64 `json:"cacheAge,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]interface{} `json:"checks"`
}

// StatsCacheHealthCheck reports the change-watch state and whether a
// summary is currently cached
type StatsCacheHealthCheck struct {
	Watch  string `json:"watch"`
	Cached bool   `json:"cached"`
}

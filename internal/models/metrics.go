package models

import "time"

// SystemMetrics is a lightweight snapshot of service health counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StoreQueryCount          uint64    `json:"store_query_count"`
	AverageStoreQueryMs      float64   `json:"average_store_query_ms"`
	BroadsheetsComputed      uint64    `json:"broadsheets_computed"`
	SeriesCommitted          uint64    `json:"series_committed"`
	ScoresClamped            uint64    `json:"scores_clamped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

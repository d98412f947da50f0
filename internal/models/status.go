package models

import "time"

// StatusSnapshot is the one-shot agent state served by the status endpoint
// and the status CLI command.
type StatusSnapshot struct {
	Online         bool       `json:"online"`
	QueueDepth     int        `json:"queue_depth"`
	SelectedWorker *Worker    `json:"selected_worker,omitempty"`
	HistoryCount   int        `json:"history_count"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
}

// MetricsSnapshot aggregates lightweight counters for API consumption
// without scraping the Prometheus registry.
type MetricsSnapshot struct {
	Submissions   uint64 `json:"submissions"`
	SyncedRecords uint64 `json:"synced_records"`
	QueueDepth    int64  `json:"queue_depth"`
}

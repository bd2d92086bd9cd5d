package models

import (
	"encoding/json"
	"time"
)

// PersistenceRecord is one row of the key/payload store.
type PersistenceRecord struct {
	ID          string          `db:"id" json:"id"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	LastUpdated time.Time       `db:"last_updated" json:"last_updated"`
}

// SchoolData bundles every shard belonging to a hub.
type SchoolData struct {
	HubID        string       `json:"hub_id"`
	Settings     Settings     `json:"settings"`
	Students     []Student    `json:"students"`
	Facilitators Facilitators `json:"facilitators"`
}

// Pagination describes paging metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

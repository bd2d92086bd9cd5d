// Package events publishes domain events to the message broker.
package events

import (
	"context"
	"time"
)

// SeriesCommittedType names the series-committed event on the wire.
const SeriesCommittedType = "series.committed"

// SeriesCommitted is emitted after a hub freezes a series.
type SeriesCommitted struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	HubID        string    `json:"hub_id"`
	Series       string    `json:"series"`
	StudentCount int       `json:"student_count"`
	AvgAggregate float64   `json:"avg_aggregate"`
	AvgComposite float64   `json:"avg_composite"`
	CommittedAt  time.Time `json:"committed_at"`
}

// Publisher hands domain events to a broker.
type Publisher interface {
	PublishSeriesCommitted(ctx context.Context, evt SeriesCommitted) error
	Close() error
}

// NopPublisher discards events. It is used when publishing is disabled.
type NopPublisher struct{}

// PublishSeriesCommitted implements Publisher.
func (NopPublisher) PublishSeriesCommitted(context.Context, SeriesCommitted) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

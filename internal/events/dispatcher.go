package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/pkg/jobs"
)

type publishRecorder interface {
	RecordEventPublish(topic string, err error)
}

// Dispatcher publishes events off the request path through a retrying job queue.
type Dispatcher struct {
	publisher Publisher
	topic     string
	queue     *jobs.Queue
	metrics   publishRecorder
	logger    *zap.Logger
}

// NewDispatcher wires a publisher to a worker queue.
func NewDispatcher(publisher Publisher, topic string, metrics publishRecorder, cfg jobs.QueueConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &Dispatcher{publisher: publisher, topic: topic, metrics: metrics, logger: cfg.Logger}
	d.queue = jobs.NewQueue("events", d.handle, cfg)
	return d
}

// Start launches the queue workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains pending events and closes the publisher.
func (d *Dispatcher) Stop() error {
	d.queue.Stop()
	return d.publisher.Close()
}

// PublishSeriesCommitted enqueues the event and returns immediately.
func (d *Dispatcher) PublishSeriesCommitted(_ context.Context, evt SeriesCommitted) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	evt.Type = SeriesCommittedType
	return d.queue.Enqueue(jobs.Job{ID: evt.EventID, Type: evt.Type, Payload: evt})
}

// Close implements Publisher.
func (d *Dispatcher) Close() error {
	return d.Stop()
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(SeriesCommitted)
	if !ok {
		d.logger.Error("dropping event with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	err := d.publisher.PublishSeriesCommitted(ctx, evt)
	if d.metrics != nil {
		d.metrics.RecordEventPublish(d.topic, err)
	}
	if err != nil {
		return fmt.Errorf("publish %s for %s: %w", evt.Type, evt.HubID, err)
	}
	return nil
}

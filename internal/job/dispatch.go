package job

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"scrapeplane/internal/bus"
	"scrapeplane/internal/store"
)

// Dispatcher fans a campaign out into work-item messages, one per source
// record, on the topic for the job's type.
type Dispatcher struct {
	publisher  bus.Publisher
	vehicles   store.VehicleSource
	cells      store.CellStore
	calibrator GridCalibrator
	logger     *slog.Logger

	dispatched metric.Int64Counter
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(publisher bus.Publisher, vehicles store.VehicleSource, cells store.CellStore, cal GridCalibrator, logger *slog.Logger) *Dispatcher {
	meter := otel.Meter("scrapeplane/job")
	dispatched, err := meter.Int64Counter("scrapeplane.dispatch.items",
		metric.WithDescription("Work items published to scraper topics"))
	if err != nil {
		logger.Warn("failed to register dispatch counter", "error", err)
	}

	return &Dispatcher{
		publisher:  publisher,
		vehicles:   vehicles,
		cells:      cells,
		calibrator: cal,
		logger:     logger,
		dispatched: dispatched,
	}
}

// Dispatch enumerates the campaign's work items and publishes one message
// per item. Enumeration completes before the first publish, and any publish
// error aborts the dispatch with an error rather than reporting a partial
// count: the returned total is exact or the dispatch failed.
func (d *Dispatcher) Dispatch(ctx context.Context, j *store.Job, params CreateParams) (int, error) {
	jobID := j.ID.String()

	var items []workItem
	var err error
	switch j.JobType {
	case store.JobTypeAvailability:
		items, err = d.availabilityItems(ctx, jobID, params)
	case store.JobTypeVehicleDetails:
		items, err = d.detailsItems(ctx, jobID, params)
	case store.JobTypeSearch:
		items, err = d.searchItems(ctx, jobID, params)
	default:
		return 0, fmt.Errorf("unsupported job type: %s", j.JobType)
	}
	if err != nil {
		return 0, err
	}

	for i, item := range items {
		if err := d.publisher.Publish(ctx, item.topic, item.key, item.value); err != nil {
			return 0, fmt.Errorf("dispatch aborted after %d of %d items: %w", i, len(items), err)
		}
	}

	if d.dispatched != nil {
		d.dispatched.Add(ctx, int64(len(items)))
	}
	d.logger.Info("dispatched work items",
		"job_id", jobID, "job_type", j.JobType, "items", len(items))

	return len(items), nil
}

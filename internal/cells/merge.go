// Package cells maintains the optimal-cell partition index from scraper
// feedback.
package cells

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"scrapeplane/internal/bus"
	"scrapeplane/internal/store"
)

// IDOutcome is the result of parsing a region identifier from feedback.
// Synthesized is true when the raw value was not a valid UUID and a fresh id
// was generated instead. Callers treat synthesized ids as an anomaly signal,
// not an error.
type IDOutcome struct {
	ID          uuid.UUID
	Synthesized bool
}

// ParseOrSynthesizeID parses raw as a UUID, or synthesizes a fresh one when
// the value is malformed. Feedback is never rejected for a bad id.
func ParseOrSynthesizeID(raw string) IDOutcome {
	id, err := uuid.Parse(raw)
	if err != nil {
		return IDOutcome{ID: uuid.New(), Synthesized: true}
	}
	return IDOutcome{ID: id}
}

// Merger applies cell feedback to the partition index.
type Merger struct {
	cells  store.CellStore
	logger *slog.Logger

	synthesizedIDs metric.Int64Counter
}

// NewMerger creates a Merger over the given cell store.
func NewMerger(cells store.CellStore, logger *slog.Logger) *Merger {
	meter := otel.Meter("scrapeplane/cells")
	synthesized, err := meter.Int64Counter("scrapeplane.cells.synthesized_ids",
		metric.WithDescription("Cell feedback events carrying a malformed region identifier"))
	if err != nil {
		logger.Warn("failed to register synthesized id counter", "error", err)
	}

	return &Merger{
		cells:          cells,
		logger:         logger,
		synthesizedIDs: synthesized,
	}
}

// Merge converges the index toward the partition the scraper reports as
// effective:
//
//   - update not requested: the feedback is informational, no index change;
//   - base == optimal: the existing partition is confirmed; index the cell
//     only if it is not yet known, never overwrite (idempotent on repeats);
//   - base != optimal: swap the base entry for the proposed one in a single
//     logical operation.
func (m *Merger) Merge(ctx context.Context, event *bus.CellScrapedEvent) error {
	if !event.UpdateOptimalCell {
		return nil
	}
	if event.BaseCell == nil || event.OptimalCell == nil {
		return fmt.Errorf("cell feedback missing base or optimal cell")
	}

	base := ParseOrSynthesizeID(event.BaseCell.ID)
	optimal := ParseOrSynthesizeID(event.OptimalCell.ID)
	m.recordAnomalies(ctx, event, base, optimal)

	if event.BaseCell.ID == event.OptimalCell.ID {
		cell := cellFromPayload(base.ID, event.OptimalCell)
		if err := m.cells.InsertOptimalCellIfAbsent(ctx, cell); err != nil {
			return fmt.Errorf("failed to confirm optimal cell %s: %w", base.ID, err)
		}
		return nil
	}

	cell := cellFromPayload(optimal.ID, event.OptimalCell)
	if err := m.cells.SwapOptimalCell(ctx, base.ID, cell); err != nil {
		return fmt.Errorf("failed to swap cell %s for %s: %w", base.ID, optimal.ID, err)
	}
	return nil
}

func (m *Merger) recordAnomalies(ctx context.Context, event *bus.CellScrapedEvent, ids ...IDOutcome) {
	for _, outcome := range ids {
		if !outcome.Synthesized {
			continue
		}
		m.logger.Warn("malformed region identifier in cell feedback, synthesized fresh id",
			"job_id", event.JobID, "synthesized_id", outcome.ID)
		if m.synthesizedIDs != nil {
			m.synthesizedIDs.Add(ctx, 1)
		}
	}
}

func cellFromPayload(id uuid.UUID, p *bus.CellPayload) *store.OptimalCell {
	return &store.OptimalCell{
		ID:            id,
		Country:       p.Country,
		CellSize:      p.CellSize,
		TopRightLat:   p.TopRightLat,
		TopRightLng:   p.TopRightLng,
		BottomLeftLat: p.BottomLeftLat,
		BottomLeftLng: p.BottomLeftLng,
	}
}

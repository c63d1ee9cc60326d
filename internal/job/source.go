package job

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"scrapeplane/internal/bus"
	"scrapeplane/internal/calibrator"
	"scrapeplane/internal/store"
)

// workItem is one pending outbound message. Items are fully enumerated
// before the first publish, so a dispatch either knows its exact size or
// fails before anything is sent.
type workItem struct {
	topic string
	key   string
	value interface{}
}

// GridCalibrator is the calibrator surface the dispatcher needs.
type GridCalibrator interface {
	Calibrate(ctx context.Context, req calibrator.Request) ([]calibrator.Cell, error)
}

func (d *Dispatcher) availabilityItems(ctx context.Context, jobID string, params CreateParams) ([]workItem, error) {
	startDate, endDate := availabilityWindow(params)

	vehicles, err := d.vehicles.ListVehicles(ctx, params.NumberOfVehicles)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate vehicles: %w", err)
	}

	items := make([]workItem, 0, len(vehicles))
	for _, v := range vehicles {
		items = append(items, workItem{
			topic: bus.TopicToBeScrapedAvailability,
			key:   strconv.FormatInt(v.ID, 10),
			value: &bus.VehicleWorkItem{
				JobID:     jobID,
				VehicleID: strconv.FormatInt(v.ID, 10),
				Country:   v.Country,
				StartDate: effectiveStartDate(v, startDate).Format(wireDateFormat),
				EndDate:   endDate.Format(wireDateFormat),
			},
		})
	}
	return items, nil
}

func (d *Dispatcher) detailsItems(ctx context.Context, jobID string, params CreateParams) ([]workItem, error) {
	vehicles, err := d.vehicles.ListVehicles(ctx, params.NumberOfVehicles)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate vehicles: %w", err)
	}

	items := make([]workItem, 0, len(vehicles))
	for _, v := range vehicles {
		items = append(items, workItem{
			topic: bus.TopicToBeScrapedVehicleDetails,
			key:   strconv.FormatInt(v.ID, 10),
			value: &bus.VehicleWorkItem{
				JobID:     jobID,
				VehicleID: strconv.FormatInt(v.ID, 10),
				Country:   v.Country,
			},
		})
	}
	return items, nil
}

func (d *Dispatcher) searchItems(ctx context.Context, jobID string, params CreateParams) ([]workItem, error) {
	sp := params.Search
	if sp == nil {
		return nil, fmt.Errorf("search job is missing search parameters")
	}

	var candidates []calibrator.Cell
	if sp.FromOptimalCells {
		// The store sorts by bottom-left longitude then latitude and applies
		// the window, so repeated invocations select the same subset.
		cells, err := d.cells.ListOptimalCellsBySize(ctx, sp.CellSize, sp.StartAt, sp.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate optimal cells: %w", err)
		}
		for _, c := range cells {
			candidates = append(candidates, calibrator.Cell{
				ID:            c.ID.String(),
				Country:       c.Country,
				CellSize:      c.CellSize,
				TopRightLat:   c.TopRightLat,
				TopRightLng:   c.TopRightLng,
				BottomLeftLat: c.BottomLeftLat,
				BottomLeftLng: c.BottomLeftLng,
			})
		}
	} else {
		grid, err := d.calibrator.Calibrate(ctx, calibrator.Request{
			Country:  sp.Country,
			CellSize: sp.CellSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to calibrate base grid: %w", err)
		}
		candidates = window(grid, sp.StartAt, sp.Limit)
	}

	items := make([]workItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, workItem{
			topic: bus.TopicToBeScrapedCells,
			key:   c.ID,
			value: &bus.CellWorkItem{
				ID:                c.ID,
				JobID:             jobID,
				Country:           c.Country,
				CellSize:          c.CellSize,
				RecursiveDepth:    sp.RecursiveDepth,
				StartDate:         sp.StartDate,
				EndDate:           sp.EndDate,
				TopRightLat:       c.TopRightLat,
				TopRightLng:       c.TopRightLng,
				BottomLeftLat:     c.BottomLeftLat,
				BottomLeftLng:     c.BottomLeftLng,
				UpdateOptimalCell: sp.UpdateOptimalCells,
			},
		})
	}
	return items, nil
}

// window skips the first startAt cells and keeps up to limit (0 = all).
func window(cells []calibrator.Cell, startAt, limit int) []calibrator.Cell {
	if startAt < 0 {
		startAt = 0
	}
	if startAt >= len(cells) {
		return nil
	}
	out := cells[startAt:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// availabilityWindow applies the default scrape window when the request
// omits dates: the last seven days through yesterday.
func availabilityWindow(params CreateParams) (time.Time, time.Time) {
	start := params.StartDate
	end := params.EndDate
	now := time.Now()
	if start.IsZero() {
		start = now.AddDate(0, 0, -7)
	}
	if end.IsZero() {
		end = now.AddDate(0, 0, -1)
	}
	return start, end
}

// effectiveStartDate never re-requests dates older than the vehicle's last
// priced day.
func effectiveStartDate(v store.VehicleRef, requested time.Time) time.Time {
	if v.PricingLastUpdated != nil && v.PricingLastUpdated.After(requested) {
		return *v.PricingLastUpdated
	}
	return requested
}

// Package job contains the orchestration core: job lifecycle, fan-out
// dispatch and work-item sources.
package job

import (
	"time"

	"scrapeplane/internal/store"
)

// wireDateFormat is the date layout scrapers expect on work items.
const wireDateFormat = "2006/01/02"

// CreateParams are the type-specific parameters of a new campaign.
type CreateParams struct {
	JobType store.JobType

	// NumberOfVehicles caps vehicle enumeration for availability and
	// details jobs. 0 means all vehicles.
	NumberOfVehicles int

	// Date window for availability jobs. Zero values fall back to the
	// default window (7 days ago through yesterday).
	StartDate time.Time
	EndDate   time.Time

	// Search holds the parameters of a SEARCH campaign.
	Search *SearchParams
}

// SearchParams describe a geographic search campaign.
type SearchParams struct {
	Country        string
	CellSize       int
	RecursiveDepth int

	// StartAt/Limit window the candidate cells: skip StartAt items, then
	// dispatch up to Limit (0 means all remaining). Candidates are sorted by
	// a stable key first, so equal windows select equal subsets.
	StartAt int
	Limit   int

	// FromOptimalCells selects the partition index as the cell source;
	// otherwise the calibrator supplies a fresh base grid.
	FromOptimalCells bool

	// UpdateOptimalCells asks scrapers to propose partition refinements.
	UpdateOptimalCells bool

	StartDate string
	EndDate   string
}

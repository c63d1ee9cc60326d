package bus

// VehicleWorkItem is one availability or vehicle-details work item. For
// details jobs the date fields stay empty.
type VehicleWorkItem struct {
	JobID     string `json:"jobId"`
	VehicleID string `json:"vehicleId"`
	Country   string `json:"country"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// CellWorkItem is one geographic search work item.
type CellWorkItem struct {
	ID                string  `json:"id"`
	JobID             string  `json:"jobId"`
	Country           string  `json:"country"`
	CellSize          int     `json:"cellSize"`
	RecursiveDepth    int     `json:"recursiveDepth"`
	StartDate         string  `json:"startDate,omitempty"`
	EndDate           string  `json:"endDate,omitempty"`
	TopRightLat       float64 `json:"topRightLat"`
	TopRightLng       float64 `json:"topRightLng"`
	BottomLeftLat     float64 `json:"bottomLeftLat"`
	BottomLeftLng     float64 `json:"bottomLeftLng"`
	UpdateOptimalCell bool    `json:"updateOptimalCell"`
}

// VehicleScrapedEvent is the completion/failure signal scrapers publish for
// one vehicle work item.
type VehicleScrapedEvent struct {
	JobID     string `json:"jobId"`
	VehicleID string `json:"vehicleId"`
	Failed    bool   `json:"failed,omitempty"`
}

// CellPayload carries the geometry of one cell inside feedback events.
type CellPayload struct {
	ID            string  `json:"id"`
	Country       string  `json:"country"`
	CellSize      int     `json:"cellSize"`
	TopRightLat   float64 `json:"topRightLat"`
	TopRightLng   float64 `json:"topRightLng"`
	BottomLeftLat float64 `json:"bottomLeftLat"`
	BottomLeftLng float64 `json:"bottomLeftLng"`
}

// CellScrapedEvent is the feedback signal for one cell work item. BaseCell is
// the cell that was dispatched; OptimalCell is the partition the scraper
// found effective. The two ids are equal when the existing partition is
// confirmed.
type CellScrapedEvent struct {
	JobID             string       `json:"jobId"`
	Failed            bool         `json:"failed,omitempty"`
	BaseCell          *CellPayload `json:"baseCell,omitempty"`
	OptimalCell       *CellPayload `json:"optimalCell,omitempty"`
	UpdateOptimalCell bool         `json:"updateOptimalCell"`
}

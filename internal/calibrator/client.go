// Package calibrator is the client for the external grid calibration service.
// When no prior optimal-cell index exists for a region, the calibrator
// supplies the base grid of candidate cells.
package calibrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Cell is one candidate cell of the calibrated base grid.
type Cell struct {
	ID       string
	Country  string
	CellSize int

	TopRightLat   float64
	TopRightLng   float64
	BottomLeftLat float64
	BottomLeftLng float64
}

// Request holds the bounding parameters for a calibration call.
type Request struct {
	Country  string `json:"country"`
	CellSize int    `json:"cell_size"`
}

// wire format of the calibrator response
type gridCell struct {
	TempID           string `json:"temp_id"`
	CellSize         int    `json:"cell_size"`
	BottomLeftCoords coords `json:"bottom_left_coords"`
	TopRightCoords   coords `json:"top_right_coords"`
}

type coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client calls the calibrator HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a calibrator client for the given base URL.
func New(baseURL string) *Client {
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Calibrate returns the base grid for the requested country and resolution.
func (c *Client) Calibrate(ctx context.Context, req Request) ([]Cell, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calibrate request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/calibrator/calibrate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create calibrate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calibrate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calibrator returned status %d", resp.StatusCode)
	}

	var grid []gridCell
	if err := json.NewDecoder(resp.Body).Decode(&grid); err != nil {
		return nil, fmt.Errorf("failed to decode calibrator response: %w", err)
	}

	cells := make([]Cell, 0, len(grid))
	for _, gc := range grid {
		cells = append(cells, Cell{
			ID:            gc.TempID,
			Country:       req.Country,
			CellSize:      gc.CellSize,
			TopRightLat:   gc.TopRightCoords.Lat,
			TopRightLng:   gc.TopRightCoords.Lng,
			BottomLeftLat: gc.BottomLeftCoords.Lat,
			BottomLeftLng: gc.BottomLeftCoords.Lng,
		})
	}

	return cells, nil
}

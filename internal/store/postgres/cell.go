package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

const cellColumns = "id, country, cell_size, top_right_lat, top_right_lng, bottom_left_lat, bottom_left_lng"

// GetOptimalCell returns a cell by id. The second return value reports
// whether the cell exists.
func (s *Store) GetOptimalCell(ctx context.Context, id uuid.UUID) (*store.OptimalCell, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM optimal_cells WHERE id = $1", cellColumns)

	var cell store.OptimalCell
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&cell.ID,
		&cell.Country,
		&cell.CellSize,
		&cell.TopRightLat,
		&cell.TopRightLng,
		&cell.BottomLeftLat,
		&cell.BottomLeftLng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load optimal cell %s: %w", id, err)
	}
	return &cell, true, nil
}

// ListOptimalCellsBySize returns cells at a resolution sorted by bottom-left
// longitude then latitude. The stable sort key makes repeated skip/limit
// windows return the same subset.
func (s *Store) ListOptimalCellsBySize(ctx context.Context, cellSize, skip, limit int) ([]store.OptimalCell, error) {
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM optimal_cells
		WHERE cell_size = $1
		ORDER BY bottom_left_lng, bottom_left_lat
		OFFSET $2
	`, cellColumns)

	args := []interface{}{cellSize, skip}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list optimal cells: %w", err)
	}
	defer rows.Close()

	var cells []store.OptimalCell
	for rows.Next() {
		var cell store.OptimalCell
		if err := rows.Scan(
			&cell.ID,
			&cell.Country,
			&cell.CellSize,
			&cell.TopRightLat,
			&cell.TopRightLng,
			&cell.BottomLeftLat,
			&cell.BottomLeftLng,
		); err != nil {
			return nil, fmt.Errorf("failed to scan optimal cell: %w", err)
		}
		cells = append(cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("optimal cell rows error: %w", err)
	}

	return cells, nil
}

// InsertOptimalCellIfAbsent inserts the cell unless one with the same id is
// already indexed. Confirmation feedback for a known cell is a no-op.
func (s *Store) InsertOptimalCellIfAbsent(ctx context.Context, cell *store.OptimalCell) error {
	query := `
		INSERT INTO optimal_cells (id, country, cell_size, top_right_lat, top_right_lng, bottom_left_lat, bottom_left_lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		cell.ID,
		cell.Country,
		cell.CellSize,
		cell.TopRightLat,
		cell.TopRightLng,
		cell.BottomLeftLat,
		cell.BottomLeftLng,
	)
	if err != nil {
		return fmt.Errorf("failed to insert optimal cell %s: %w", cell.ID, err)
	}
	return nil
}

// SwapOptimalCell replaces the base cell with the proposed one as a single
// logical operation: the base row must never remain alongside the new entry.
func (s *Store) SwapOptimalCell(ctx context.Context, baseID uuid.UUID, replacement *store.OptimalCell) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cell swap: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM optimal_cells WHERE id = $1", baseID); err != nil {
		return fmt.Errorf("failed to delete base cell %s: %w", baseID, err)
	}

	query := `
		INSERT INTO optimal_cells (id, country, cell_size, top_right_lat, top_right_lng, bottom_left_lat, bottom_left_lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			country = EXCLUDED.country,
			cell_size = EXCLUDED.cell_size,
			top_right_lat = EXCLUDED.top_right_lat,
			top_right_lng = EXCLUDED.top_right_lng,
			bottom_left_lat = EXCLUDED.bottom_left_lat,
			bottom_left_lng = EXCLUDED.bottom_left_lng
	`

	if _, err := tx.ExecContext(ctx, query,
		replacement.ID,
		replacement.Country,
		replacement.CellSize,
		replacement.TopRightLat,
		replacement.TopRightLng,
		replacement.BottomLeftLat,
		replacement.BottomLeftLng,
	); err != nil {
		return fmt.Errorf("failed to upsert optimal cell %s: %w", replacement.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cell swap: %w", err)
	}
	return nil
}

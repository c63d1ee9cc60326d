package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"scrapeplane/internal/store"
)

// ListVehicles enumerates candidate vehicles for dispatch. limit <= 0 reads
// the whole table.
func (s *Store) ListVehicles(ctx context.Context, limit int) ([]store.VehicleRef, error) {
	query := "SELECT id, country, pricing_last_updated FROM vehicles ORDER BY id"

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []store.VehicleRef
	for rows.Next() {
		var v store.VehicleRef
		var lastUpdated sql.NullTime
		if err := rows.Scan(&v.ID, &v.Country, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		if lastUpdated.Valid {
			t := lastUpdated.Time
			v.PricingLastUpdated = &t
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vehicle rows error: %w", err)
	}

	return vehicles, nil
}

package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

func TestGetOptimalCell_Missing(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM optimal_cells WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "country", "cell_size", "top_right_lat", "top_right_lng",
			"bottom_left_lat", "bottom_left_lng",
		}))

	cell, found, err := s.GetOptimalCell(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOptimalCell failed: %v", err)
	}
	if found || cell != nil {
		t.Errorf("expected missing cell, got %+v", cell)
	}
}

func TestInsertOptimalCellIfAbsent(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	cell := &store.OptimalCell{
		ID:            uuid.New(),
		Country:       "US",
		CellSize:      50,
		TopRightLat:   40.5,
		TopRightLng:   -73.1,
		BottomLeftLat: 40.1,
		BottomLeftLng: -73.9,
	}

	// ON CONFLICT DO NOTHING: repeat confirmation affects zero rows.
	mock.ExpectExec(`INSERT INTO optimal_cells .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(cell.ID, cell.Country, cell.CellSize,
			cell.TopRightLat, cell.TopRightLng, cell.BottomLeftLat, cell.BottomLeftLng).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.InsertOptimalCellIfAbsent(context.Background(), cell); err != nil {
		t.Fatalf("InsertOptimalCellIfAbsent failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSwapOptimalCell(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	baseID := uuid.New()
	replacement := &store.OptimalCell{
		ID:            uuid.New(),
		Country:       "US",
		CellSize:      25,
		TopRightLat:   40.3,
		TopRightLng:   -73.5,
		BottomLeftLat: 40.1,
		BottomLeftLng: -73.9,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM optimal_cells WHERE id = \$1`).
		WithArgs(baseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO optimal_cells .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(replacement.ID, replacement.Country, replacement.CellSize,
			replacement.TopRightLat, replacement.TopRightLng,
			replacement.BottomLeftLat, replacement.BottomLeftLng).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.SwapOptimalCell(context.Background(), baseID, replacement); err != nil {
		t.Fatalf("SwapOptimalCell failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListOptimalCellsBySize_Window(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "country", "cell_size", "top_right_lat", "top_right_lng",
		"bottom_left_lat", "bottom_left_lng",
	}).
		AddRow(uuid.New(), "US", 50, 40.5, -73.1, 40.1, -73.9).
		AddRow(uuid.New(), "US", 50, 41.5, -72.1, 41.1, -72.9)

	mock.ExpectQuery(`SELECT .* FROM optimal_cells\s+WHERE cell_size = \$1\s+ORDER BY bottom_left_lng, bottom_left_lat\s+OFFSET \$2\s+LIMIT \$3`).
		WithArgs(50, 1, 2).
		WillReturnRows(rows)

	cells, err := s.ListOptimalCellsBySize(context.Background(), 50, 1, 2)
	if err != nil {
		t.Fatalf("ListOptimalCellsBySize failed: %v", err)
	}
	if len(cells) != 2 {
		t.Errorf("got %d cells, want 2", len(cells))
	}
}

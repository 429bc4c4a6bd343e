package sqlite

import (
	"context"
	"fmt"

	"github.com/artefactory/smartparks/internal/models"
)

// Warehouse implements repository.Warehouse on a single SQLite table, the
// BigQuery table id becoming a column.
type Warehouse struct {
	db *DB
}

// NewWarehouse creates a new SQLite warehouse.
func NewWarehouse(db *DB) *Warehouse {
	return &Warehouse{db: db}
}

// InsertRow appends a provider response.
func (w *Warehouse) InsertRow(ctx context.Context, tableID string, row models.WarehouseRow) error {
	w.db.Lock()
	defer w.db.Unlock()

	_, err := w.db.Conn().ExecContext(ctx, `
		INSERT INTO annotations (table_id, timestamp, uri, response)
		VALUES (?, ?, ?, ?)
	`, tableID, row.Timestamp.UTC(), row.URI, row.Response)
	if err != nil {
		return fmt.Errorf("failed to insert row into %s: %w", tableID, err)
	}
	return nil
}

// Query returns every row of a table, newest first.
func (w *Warehouse) Query(ctx context.Context, tableID string) ([]models.WarehouseRow, error) {
	w.db.RLock()
	defer w.db.RUnlock()

	rows, err := w.db.Conn().QueryContext(ctx, `
		SELECT timestamp, uri, response
		FROM annotations
		WHERE table_id = ?
		ORDER BY timestamp DESC, id DESC
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableID, err)
	}
	defer rows.Close()

	var out []models.WarehouseRow
	for rows.Next() {
		var row models.WarehouseRow
		if err := rows.Scan(&row.Timestamp, &row.URI, &row.Response); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableID, err)
	}
	return out, nil
}

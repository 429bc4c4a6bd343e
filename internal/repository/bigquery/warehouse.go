// Package bigquery implements repository.Warehouse with one BigQuery table
// per camera trap and media kind.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/artefactory/smartparks/internal/models"
)

var ErrTableID = errors.New("table id must be project.dataset.table")

// Table ids are interpolated into queries, so every part is restricted to
// letters, digits, underscores and hyphens.
var idPart = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type row struct {
	Timestamp time.Time `bigquery:"timestamp"`
	URI       string    `bigquery:"uri"`
	Response  string    `bigquery:"response"`
}

type Warehouse struct {
	client *bigquery.Client
}

func NewWarehouse(ctx context.Context, project string) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	return &Warehouse{client: client}, nil
}

func splitTableID(tableID string) (project, dataset, table string, err error) {
	parts := strings.Split(tableID, ".")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrTableID, tableID)
	}
	for _, part := range parts {
		if !idPart.MatchString(part) {
			return "", "", "", fmt.Errorf("%w: %q", ErrTableID, tableID)
		}
	}
	return parts[0], parts[1], parts[2], nil
}

func (w *Warehouse) InsertRow(ctx context.Context, tableID string, r models.WarehouseRow) error {
	project, dataset, table, err := splitTableID(tableID)
	if err != nil {
		return err
	}

	inserter := w.client.DatasetInProject(project, dataset).Table(table).Inserter()
	err = inserter.Put(ctx, &row{Timestamp: r.Timestamp, URI: r.URI, Response: r.Response})
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableID, err)
	}
	return nil
}

func (w *Warehouse) Query(ctx context.Context, tableID string) ([]models.WarehouseRow, error) {
	if _, _, _, err := splitTableID(tableID); err != nil {
		return nil, err
	}

	q := w.client.Query(fmt.Sprintf("SELECT timestamp, uri, response FROM `%s` ORDER BY timestamp DESC", tableID))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableID, err)
	}

	var out []models.WarehouseRow
	for {
		var r row
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tableID, err)
		}
		out = append(out, models.WarehouseRow{Timestamp: r.Timestamp, URI: r.URI, Response: r.Response})
	}
	return out, nil
}

func (w *Warehouse) Close() error {
	return w.client.Close()
}

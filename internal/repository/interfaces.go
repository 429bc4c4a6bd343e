package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artefactory/smartparks/internal/models"
)

// ErrNotFound is returned by ObjectStore.Get for a missing object.
var ErrNotFound = errors.New("object not found")

// Warehouse datasets, one table per camera trap in each.
const (
	DatasetImages = "images"
	DatasetVideos = "videos"
)

// TableID names the warehouse table of a camera.
func TableID(project, dataset, camera string) string {
	return fmt.Sprintf("%s.%s.%s", project, dataset, camera)
}

// ObjectStore defines bucket style blob access.
type ObjectStore interface {
	Get(ctx context.Context, bucket, path string) ([]byte, error)
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error
}

// Warehouse defines the tabular store for raw provider responses.
// Table ids have the form "<project>.<dataset>.<camera>".
type Warehouse interface {
	// Create operations
	InsertRow(ctx context.Context, tableID string, row models.WarehouseRow) error

	// Read operations, newest row first
	Query(ctx context.Context, tableID string) ([]models.WarehouseRow, error)
}

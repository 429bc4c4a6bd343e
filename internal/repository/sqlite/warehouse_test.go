package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/artefactory/smartparks/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "warehouse_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}
	return db, cleanup
}

func TestWarehouse_InsertAndQuery(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	wh := NewWarehouse(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	rows := []struct {
		table string
		row   models.WarehouseRow
	}{
		{"p.images.cam1", models.WarehouseRow{Timestamp: base, URI: "gs://in/cam1/a.jpg", Response: `{"a":1}`}},
		{"p.images.cam1", models.WarehouseRow{Timestamp: base.Add(time.Hour), URI: "gs://in/cam1/b.jpg", Response: `{"b":1}`}},
		{"p.images.cam2", models.WarehouseRow{Timestamp: base, URI: "gs://in/cam2/c.jpg", Response: `{}`}},
	}
	for _, r := range rows {
		if err := wh.InsertRow(ctx, r.table, r.row); err != nil {
			t.Fatalf("InsertRow failed: %v", err)
		}
	}

	got, err := wh.Query(ctx, "p.images.cam1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].URI != "gs://in/cam1/b.jpg" {
		t.Errorf("Expected newest row first, got %s", got[0].URI)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", base, got[1].Timestamp)
	}
	if got[1].Response != `{"a":1}` {
		t.Errorf("Response mismatch: got %s", got[1].Response)
	}
}

func TestWarehouse_QueryUnknownTable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewWarehouse(db).Query(context.Background(), "p.videos.nobody")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no rows, got %d", len(got))
	}
}

func TestWarehouse_InsertError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("INSERT INTO annotations").
		WithArgs("p.images.cam1", sqlmock.AnyArg(), "gs://in/cam1/a.jpg", "{}").
		WillReturnError(errors.New("disk I/O error"))

	wh := NewWarehouse(NewWithConn(conn))
	err = wh.InsertRow(context.Background(), "p.images.cam1", models.WarehouseRow{
		Timestamp: time.Now(),
		URI:       "gs://in/cam1/a.jpg",
		Response:  "{}",
	})
	if err == nil {
		t.Error("Expected insert error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestWarehouse_QueryScanError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("SELECT timestamp, uri, response").
		WithArgs("p.videos.cam1").
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "uri", "response"}).
			AddRow("not a time", "gs://in/cam1/v.mp4", "{}"))

	_, err = NewWarehouse(NewWithConn(conn)).Query(context.Background(), "p.videos.cam1")
	if err == nil {
		t.Error("Expected scan error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

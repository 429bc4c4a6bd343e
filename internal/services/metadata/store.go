// Package metadata keeps the camera trap table as a CSV object. Every change
// reads the whole table, edits it in memory and writes it back; concurrent
// writers race and the last write wins.
package metadata

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/repository"
)

var (
	ErrUnknownCamera = errors.New("unknown camera trap")
	ErrInvalidRecord = errors.New("invalid camera trap record")
)

// ActivationLayout formats last_activation.
const ActivationLayout = "2006-01-02 15:04:05"

// Camera trap names also name warehouse tables.
var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var header = []string{"name", "longitude", "latitude", "last_detection", "last_activation", "url"}

type Store struct {
	objects repository.ObjectStore
	bucket  string
	path    string
}

func NewStore(objects repository.ObjectStore, bucket, path string) *Store {
	return &Store{objects: objects, bucket: bucket, path: path}
}

// Load reads the whole table. A missing object is an empty table.
func (s *Store) Load(ctx context.Context) ([]models.CameraTrap, error) {
	data, err := s.objects.Get(ctx, s.bucket, s.path)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.CameraTrap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load camera traps: %w", err)
	}
	return Decode(data)
}

// Save validates and replaces the whole table.
func (s *Store) Save(ctx context.Context, traps []models.CameraTrap) error {
	if err := Validate(traps); err != nil {
		return err
	}
	data, err := Encode(traps)
	if err != nil {
		return err
	}
	if err := s.objects.Put(ctx, s.bucket, s.path, data, "text/csv"); err != nil {
		return fmt.Errorf("failed to save camera traps: %w", err)
	}
	return nil
}

// Lookup returns the row for name.
func (s *Store) Lookup(ctx context.Context, name string) (*models.CameraTrap, error) {
	traps, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range traps {
		if traps[i].Name == name {
			return &traps[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, name)
}

// RecordDetection stores the latest detection label and activation time of a camera.
func (s *Store) RecordDetection(ctx context.Context, name, detection string, at time.Time) error {
	traps, err := s.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range traps {
		if traps[i].Name == name {
			traps[i].LastDetection = detection
			traps[i].LastActivation = at.Format(ActivationLayout)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownCamera, name)
	}

	data, err := Encode(traps)
	if err != nil {
		return err
	}
	if err := s.objects.Put(ctx, s.bucket, s.path, data, "text/csv"); err != nil {
		return fmt.Errorf("failed to save camera traps: %w", err)
	}
	return nil
}

// Validate checks names are present, unique and made of letters, digits,
// underscores and hyphens, and that coordinates are in range.
func Validate(traps []models.CameraTrap) error {
	seen := make(map[string]bool, len(traps))
	for i, t := range traps {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			return fmt.Errorf("%w: row %d has no name", ErrInvalidRecord, i+1)
		case !validName.MatchString(t.Name):
			return fmt.Errorf("%w: name %q may only contain letters, digits, '_' and '-'", ErrInvalidRecord, t.Name)
		case seen[name]:
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRecord, name)
		case t.Longitude < -180 || t.Longitude > 180:
			return fmt.Errorf("%w: longitude %v of %q out of range", ErrInvalidRecord, t.Longitude, name)
		case t.Latitude < -90 || t.Latitude > 90:
			return fmt.Errorf("%w: latitude %v of %q out of range", ErrInvalidRecord, t.Latitude, name)
		}
		seen[name] = true
	}
	return nil
}

// Decode parses the CSV table. Columns are matched by header name, so their
// order does not matter and unknown columns are ignored.
func Decode(data []byte) ([]models.CameraTrap, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if len(records) == 0 {
		return []models.CameraTrap{}, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("%w: missing name column", ErrInvalidRecord)
	}

	field := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	traps := make([]models.CameraTrap, 0, len(records)-1)
	for line, record := range records[1:] {
		lon, err := parseCoordinate(field(record, "longitude"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d longitude: %v", ErrInvalidRecord, line+2, err)
		}
		lat, err := parseCoordinate(field(record, "latitude"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d latitude: %v", ErrInvalidRecord, line+2, err)
		}
		traps = append(traps, models.CameraTrap{
			Name:           field(record, "name"),
			Longitude:      lon,
			Latitude:       lat,
			LastDetection:  field(record, "last_detection"),
			LastActivation: field(record, "last_activation"),
			URL:            field(record, "url"),
		})
	}
	return traps, nil
}

func parseCoordinate(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Encode writes the table with the canonical header.
func Encode(traps []models.CameraTrap) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, t := range traps {
		err := w.Write([]string{
			t.Name,
			strconv.FormatFloat(t.Longitude, 'f', -1, 64),
			strconv.FormatFloat(t.Latitude, 'f', -1, 64),
			t.LastDetection,
			t.LastActivation,
			t.URL,
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode camera traps: %w", err)
	}
	return buf.Bytes(), nil
}

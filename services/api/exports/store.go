package exports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/02loveslollipop/rtwqms-watcher/internal/exportfile"
)

var (
	// ErrNotFound is returned when an export file does not exist.
	ErrNotFound = errors.New("export not found")
	// ErrInvalidName is returned for names that are not export file names.
	ErrInvalidName = errors.New("invalid export name")
)

var namePattern = regexp.MustCompile(`^` + regexp.QuoteMeta(exportfile.Prefix) + `(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})\.csv$`)

// Store reads watcher exports from a directory.
type Store struct {
	dir string
}

// New creates a Store over dir, which must exist.
func New(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("export dir %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Export describes one export file.
type Export struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	ExportedAt time.Time `json:"exported_at"`
}

// Reading is one exported row.
type Reading struct {
	StationID     string     `json:"station_id"`
	Timestamp     string     `json:"timestamp"`
	TimestampDate *time.Time `json:"timestamp_date,omitempty"`
	Value         string     `json:"value"`
	Unit          string     `json:"unit"`
	ParameterNo   string     `json:"parameter_no"`
	ParameterName string     `json:"parameter_name"`
}

// ValidName reports whether name is a CSV export file name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// List returns all CSV exports, newest first.
func (s *Store) List(ctx context.Context) ([]Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make([]Export, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := namePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		exportedAt, err := exportfile.ParseTime(m[1])
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Export{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			ExportedAt: exportedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExportedAt.Equal(out[j].ExportedAt) {
			return out[i].Name > out[j].Name
		}
		return out[i].ExportedAt.After(out[j].ExportedAt)
	})
	return out, nil
}

// Latest returns the newest export, or nil when there is none.
func (s *Store) Latest(ctx context.Context) (*Export, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// Path resolves an export name to a file path inside the store.
func (s *Store) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// Readings parses an export back into rows. Columns are matched by header
// name so files with reordered or extra columns still load.
func (s *Store) Readings(ctx context.Context, name string) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseReadings(f)
}

// ParseReadings decodes CSV export content.
func ParseReadings(r io.Reader) ([]Reading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Reading{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimPrefix(col, "\ufeff")] = i
	}
	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	readings := make([]Reading, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		rd := Reading{
			StationID:     get(row, "stationId"),
			Timestamp:     get(row, "timestamp"),
			Value:         get(row, "value"),
			Unit:          get(row, "unit"),
			ParameterNo:   get(row, "parameterNo"),
			ParameterName: get(row, "parameterName"),
		}
		if raw := get(row, "timestampDate"); raw != "" {
			if ts, err := time.Parse(exportfile.TimestampDateLayout, raw); err == nil {
				rd.TimestampDate = &ts
			}
		}
		readings = append(readings, rd)
	}
	return readings, nil
}

// Package export writes normalized readings to timestamped files in the
// output directory. CSV is the default; XLSX is available for operators
// who open the files in spreadsheet tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/02loveslollipop/rtwqms-watcher/internal/exportfile"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/models"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/utils"
)

// Format selects the file type written by an Exporter.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FilePrefix and FileTimeLayout make up export file names.
const (
	FilePrefix     = exportfile.Prefix
	FileTimeLayout = exportfile.TimeLayout
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Filename returns the export file name for a wall-clock time. Two runs
// within the same minute share a name.
func Filename(t time.Time, format Format) string {
	return exportfile.Name(t, string(format))
}

// Options configures an Exporter.
type Options struct {
	Dir    string
	Format Format
	Now    func() time.Time
	Logger *slog.Logger
}

// Exporter writes one file per call.
type Exporter struct {
	dir    string
	format Format
	now    func() time.Time
	logger *slog.Logger
}

// New builds an Exporter; zero options mean CSV in the working directory
// stamped with local time.
func New(opts Options) *Exporter {
	e := &Exporter{
		dir:    opts.Dir,
		format: opts.Format,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if e.dir == "" {
		e.dir = "."
	}
	if e.format == "" {
		e.format = FormatCSV
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Export writes records to a new file named after the current local time,
// replacing any file of the same name, and returns its path.
func (e *Exporter) Export(records []models.CanonicalRecord) (string, error) {
	path := filepath.Join(e.dir, Filename(e.now(), e.format))

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	var err error
	switch e.format {
	case FormatCSV:
		err = writeCSV(path, records)
	case FormatXLSX:
		err = writeXLSX(path, records)
	default:
		err = fmt.Errorf("unsupported export format %q", e.format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("data saved successfully",
		slog.String("file", path),
		slog.Int("record_count", len(records)))
	return path, nil
}

// Row renders one record as export cells in column order.
func Row(rec models.CanonicalRecord) []string {
	return []string{
		rec.StationID,
		rec.Timestamp,
		utils.TimeString(rec.TimestampDate),
		utils.ValueString(rec.Value),
		rec.Unit,
		rec.ParameterNo,
		rec.ParameterName,
	}
}

func writeCSV(path string, records []models.CanonicalRecord) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	writer := csv.NewWriter(file)

	if err := writer.Write(models.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, rec := range records {
		if err := writer.Write(Row(rec)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeXLSX(path string, records []models.CanonicalRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(models.Columns))
	for i, col := range models.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(rec)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// xlsxRow keeps numeric readings numeric so spreadsheet formulas work.
func xlsxRow(rec models.CanonicalRecord) []any {
	cells := Row(rec)
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	if n, ok := rec.Value.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			row[3] = f
		}
	}
	return row
}

// Package exportfile holds the naming and rendering conventions shared by
// the watcher, which writes exports, and the API, which reads them back.
package exportfile

import "time"

const (
	// Prefix starts every export file name.
	Prefix = "water_data_"
	// TimeLayout is the wall-clock part of an export file name.
	TimeLayout = "2006-01-02_15-04"
	// TimestampDateLayout renders the timestampDate column.
	TimestampDateLayout = "2006-01-02T15:04:05.999999Z07:00"
)

// Name returns the export file name for t with the given extension.
func Name(t time.Time, ext string) string {
	return Prefix + t.Format(TimeLayout) + "." + ext
}

// ParseTime recovers the local wall-clock time embedded in a file name stem.
func ParseTime(stem string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, stem, time.Local)
}

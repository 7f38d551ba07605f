package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/models"
)

// Timestamp layouts tried in order; the first that parses wins.
const (
	layoutFractional = "2006-01-02T15:04:05.999999Z"
	layoutSeconds    = "2006-01-02T15:04:05Z"
)

var timestampLayouts = []string{layoutFractional, layoutSeconds}

// Feed timestamps carry at most microsecond precision.
const maxFractionDigits = 6

// DefaultParameterNames renames feed parameter labels.
func DefaultParameterNames() map[string]string {
	return map[string]string{
		"River Stage":       "Water Level",
		"Oxygen, dissolved": "Dissolved Oxygen",
	}
}

// DefaultUnits overrides the unit symbol for specific parameters.
func DefaultUnits() map[string]string {
	return map[string]string{
		"River Stage": "m above MSL",
	}
}

// Normalizer maps raw feed records onto CanonicalRecord. Its tables are
// copied at construction and never modified.
type Normalizer struct {
	parameterNames map[string]string
	units          map[string]string
	logger         *slog.Logger
}

// NewNormalizer builds a Normalizer. A nil logger falls back to slog.Default.
func NewNormalizer(parameterNames, units map[string]string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		parameterNames: maps.Clone(parameterNames),
		units:          maps.Clone(units),
		logger:         logger,
	}
}

// NewDefaultNormalizer uses the built-in RTWQMS tables.
func NewDefaultNormalizer(logger *slog.Logger) *Normalizer {
	return NewNormalizer(DefaultParameterNames(), DefaultUnits(), logger)
}

// Normalize converts every raw record. The output always has the same
// length and order as the input.
func (n *Normalizer) Normalize(records []models.RawRecord) []models.CanonicalRecord {
	out := make([]models.CanonicalRecord, 0, len(records))
	for _, raw := range records {
		out = append(out, n.NormalizeRecord(raw))
	}
	return out
}

// NormalizeRecord converts a single raw record. An unparsable timestamp is
// logged and leaves TimestampDate nil.
func (n *Normalizer) NormalizeRecord(raw models.RawRecord) models.CanonicalRecord {
	longName := FieldString(raw, models.KeyParameterName)

	rec := models.CanonicalRecord{
		StationID:     FieldString(raw, models.KeyStationID),
		Timestamp:     FieldString(raw, models.KeyTimestamp),
		Value:         fieldValue(raw, models.KeyValue),
		Unit:          lookup(n.units, longName, FieldString(raw, models.KeyUnitSymbol)),
		ParameterNo:   FieldString(raw, models.KeyParameterNo),
		ParameterName: lookup(n.parameterNames, longName, longName),
	}

	if rec.Timestamp != "" {
		ts, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			n.logger.Warn("invalid timestamp format", slog.String("timestamp", rec.Timestamp))
		} else {
			rec.TimestampDate = &ts
		}
	}

	return rec
}

// ParseTimestamp parses feed timestamps with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	if n := fractionDigits(s); n > maxFractionDigits {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %d fractional digits, at most %d allowed", s, n, maxFractionDigits)
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func fractionDigits(s string) int {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return 0
	}
	n := 0
	for _, c := range s[i+1:] {
		if c < '0' || c > '9' {
			break
		}
		n++
	}
	return n
}

// FieldString returns raw[key] rendered as text, or "" when absent.
func FieldString(raw models.RawRecord, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	return ValueString(v)
}

// ValueString renders a decoded JSON value as export text; nil -> "".
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// TimeString renders an optional timestamp for export; nil -> "".
func TimeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(models.TimestampDateLayout)
}

func fieldValue(raw models.RawRecord, key string) any {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	return v
}

func lookup(table map[string]string, key, fallback string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

package models

import (
	"time"

	"github.com/02loveslollipop/rtwqms-watcher/internal/exportfile"
)

// Raw feed keys read by the normalizer.
const (
	KeyStationID     = "station_id"
	KeyTimestamp     = "timestamp"
	KeyValue         = "ts_value"
	KeyUnitSymbol    = "ts_unitsymbol"
	KeyParameterNo   = "stationparameter_no"
	KeyParameterName = "stationparameter_longname"
)

// RawRecord is one reading from the RTWQMS layer feed. Values keep the JSON
// types they arrived with; numbers are json.Number.
type RawRecord map[string]any

// CanonicalRecord is a reading after name/unit mapping and timestamp parsing.
type CanonicalRecord struct {
	StationID     string
	Timestamp     string
	TimestampDate *time.Time
	Value         any
	Unit          string
	ParameterNo   string
	ParameterName string
}

// Columns is the export header, in CanonicalRecord field order.
var Columns = []string{
	"stationId",
	"timestamp",
	"timestampDate",
	"value",
	"unit",
	"parameterNo",
	"parameterName",
}

// TimestampDateLayout renders TimestampDate in exports.
const TimestampDateLayout = exportfile.TimestampDateLayout

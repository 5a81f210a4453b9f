package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Required feature columns, in the order the classifier consumes them
const (
	ColumnTempC  = "temp_c"
	ColumnHumPct = "hum_pct"
	ColumnMQ2    = "mq2"
	ColumnMQ135  = "mq135"
)

// FeatureColumns lists the required numeric columns in feature order
var FeatureColumns = []string{ColumnTempC, ColumnHumPct, ColumnMQ2, ColumnMQ135}

// timestampColumns are the optional columns a timestamp may be read from
var timestampColumns = []string{"timestamp", "iso_time", "time"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
}

// Reading represents one air-quality sample
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	TempC     float64   `json:"temp_c"`  // Celsius
	HumPct    float64   `json:"hum_pct"` // Percentage 0-100
	MQ2       float64   `json:"mq2"`     // Raw MQ-2 ADC value
	MQ135     float64   `json:"mq135"`   // Raw MQ-135 ADC value
}

// Features returns the numeric values in FeatureColumns order
func (r Reading) Features() []float64 {
	return []float64{r.TempC, r.HumPct, r.MQ2, r.MQ135}
}

// LabeledSample is a historical reading with its derived class label
type LabeledSample struct {
	Reading Reading
	Label   Label
}

// Prediction is the classifier output for one reading
type Prediction struct {
	Timestamp     time.Time `json:"timestamp"`
	DeviceID      string    `json:"device_id,omitempty"`
	Label         string    `json:"label"`
	ClassID       int       `json:"class_id"`
	Probabilities []float64 `json:"probabilities"` // Ordered Good, Moderate, Bad
	Reading       Reading   `json:"reading"`
}

// AlertEvent records a fired alert condition
type AlertEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Condition string    `json:"condition"`
	Message   string    `json:"message"`
	Delivered bool      `json:"delivered"`
}

// NormalizeColumn lowercases and trims a column or field name
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseFloat coerces a raw string into a finite float64
func ParseFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return v, nil
}

// ColumnIndex maps normalized header names to their positions.
// It returns a *SchemaError naming the first required column that is absent.
func ColumnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}

	for _, col := range FeatureColumns {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaError{Column: col, Missing: true}
		}
	}
	return idx, nil
}

// ParseRecord builds a Reading from one tabular row using an index from ColumnIndex
func ParseRecord(record []string, idx map[string]int) (Reading, error) {
	values := make([]float64, len(FeatureColumns))
	for i, col := range FeatureColumns {
		pos := idx[col]
		if pos >= len(record) {
			return Reading{}, &SchemaError{Column: col, Missing: true}
		}
		v, err := ParseFloat(record[pos])
		if err != nil {
			return Reading{}, &SchemaError{Column: col, Value: record[pos], Err: err}
		}
		values[i] = v
	}

	reading := Reading{TempC: values[0], HumPct: values[1], MQ2: values[2], MQ135: values[3]}
	for _, col := range timestampColumns {
		if pos, ok := idx[col]; ok && pos < len(record) {
			reading.Timestamp = parseTimestamp(record[pos])
			break
		}
	}
	return reading, nil
}

// ReadingFromFields coerces a decoded JSON object into a Reading.
// Field names are matched case-insensitively; numbers may arrive as strings.
func ReadingFromFields(fields map[string]interface{}) (Reading, error) {
	normalized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		normalized[NormalizeColumn(k)] = v
	}

	values := make([]float64, len(FeatureColumns))
	for i, col := range FeatureColumns {
		raw, ok := normalized[col]
		if !ok || raw == nil {
			return Reading{}, &SchemaError{Column: col, Missing: true}
		}

		var v float64
		var err error
		switch x := raw.(type) {
		case float64:
			v = x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				err = fmt.Errorf("non-finite value")
			}
		case string:
			v, err = ParseFloat(x)
		default:
			err = fmt.Errorf("unsupported type %T", raw)
		}
		if err != nil {
			return Reading{}, &SchemaError{Column: col, Value: fmt.Sprint(raw), Err: err}
		}
		values[i] = v
	}

	reading := Reading{TempC: values[0], HumPct: values[1], MQ2: values[2], MQ135: values[3]}
	for _, col := range timestampColumns {
		if s, ok := normalized[col].(string); ok {
			reading.Timestamp = parseTimestamp(s)
			break
		}
	}
	if id, ok := normalized["device_id"].(string); ok {
		reading.DeviceID = id
	}
	return reading, nil
}

// parseTimestamp returns the zero time when the value matches no known layout
func parseTimestamp(raw string) time.Time {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

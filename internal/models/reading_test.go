package models

import (
	"errors"
	"testing"
	"time"
)

func TestColumnIndexNormalizesHeader(t *testing.T) {
	idx, err := ColumnIndex([]string{" ISO_TIME", "Temp_C ", "HUM_PCT", " mq2", "MQ135", "extra"})
	if err != nil {
		t.Fatalf("ColumnIndex: %v", err)
	}
	if idx["temp_c"] != 1 || idx["mq135"] != 4 || idx["iso_time"] != 0 {
		t.Fatalf("unexpected index: %v", idx)
	}
}

func TestColumnIndexMissingColumn(t *testing.T) {
	_, err := ColumnIndex([]string{"temp_c", "hum_pct", "mq2"})

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !schemaErr.Missing || schemaErr.Column != "mq135" {
		t.Fatalf("unexpected schema error: %+v", schemaErr)
	}
}

func TestParseRecord(t *testing.T) {
	idx, err := ColumnIndex([]string{"iso_time", "temp_c", "hum_pct", "mq2", "mq135"})
	if err != nil {
		t.Fatalf("ColumnIndex: %v", err)
	}

	r, err := ParseRecord([]string{"2026-02-21T14:30:00", " 22.5", "41.0", "312", "455 "}, idx)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if r.TempC != 22.5 || r.HumPct != 41 || r.MQ2 != 312 || r.MQ135 != 455 {
		t.Errorf("unexpected reading: %+v", r)
	}
	want := time.Date(2026, 2, 21, 14, 30, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("timestamp: got %v, want %v", r.Timestamp, want)
	}
}

func TestParseRecordRejectsBadValues(t *testing.T) {
	idx, _ := ColumnIndex([]string{"temp_c", "hum_pct", "mq2", "mq135"})

	cases := [][]string{
		{"abc", "41", "300", "300"},
		{"22", "", "300", "300"},
		{"22", "41", "NaN", "300"},
		{"22", "41", "300", "+Inf"},
		{"22", "41", "300"},
	}
	for _, rec := range cases {
		_, err := ParseRecord(rec, idx)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Errorf("record %v: expected SchemaError, got %v", rec, err)
		}
	}
}

func TestReadingFromFields(t *testing.T) {
	r, err := ReadingFromFields(map[string]interface{}{
		"Temp_C":    21.5,
		"hum_pct":   "40.2",
		"MQ2":       650.0,
		"mq135":     100.0,
		"timestamp": "2026-02-21T14:30:00Z",
	})
	if err != nil {
		t.Fatalf("ReadingFromFields: %v", err)
	}
	if r.TempC != 21.5 || r.HumPct != 40.2 || r.MQ2 != 650 || r.MQ135 != 100 {
		t.Errorf("unexpected reading: %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Error("expected parsed timestamp")
	}

	_, err = ReadingFromFields(map[string]interface{}{"temp_c": 21.5, "hum_pct": 40.0, "mq2": true, "mq135": 1.0})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Column != "mq2" {
		t.Fatalf("expected mq2 SchemaError, got %v", err)
	}
}

func TestLabelNames(t *testing.T) {
	for i, name := range ClassNames {
		l, err := ParseLabel(name)
		if err != nil {
			t.Fatalf("ParseLabel(%q): %v", name, err)
		}
		if int(l) != i || l.String() != name {
			t.Errorf("label %d: got %d/%s", i, l, l.String())
		}
	}
	if Label(7).String() != "Unknown" {
		t.Errorf("out of range label should be Unknown")
	}
	if _, err := ParseLabel("terrible"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestSensorLevel(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "Good"},
		{499.9, "Good"},
		{500, "Medium"},
		{699, "Medium"},
		{700, "Bad"},
	}
	for _, tt := range tests {
		if got := SensorLevel(tt.value); got != tt.want {
			t.Errorf("SensorLevel(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

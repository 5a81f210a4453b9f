// Package dataset loads historical sensor logs for training.
//
// The log is a CSV file with a header row. Column names are matched
// case-insensitively after trimming, extra columns are ignored:
//
//	iso_time,temp_c,hum_pct,mq2,mq135
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// CSVSource reads readings from a CSV sensor log
type CSVSource struct {
	path   string
	logger *zap.Logger
}

// NewCSVSource creates a source for the CSV file at path
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger}
}

// LoadReadings reads every coercible row of the log
func (s *CSVSource) LoadReadings(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sensor log: %w", err)
	}
	defer f.Close()

	readings, dropped, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded sensor log",
		zap.String("path", s.path),
		zap.Int("rows", len(readings)),
		zap.Int("dropped", dropped),
	)
	return readings, nil
}

// ReadCSV parses a sensor log. Rows whose required values cannot be coerced
// are dropped and counted; a missing required column fails with *models.SchemaError.
func ReadCSV(r io.Reader) ([]models.Reading, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, &models.SchemaError{Column: models.FeatureColumns[0], Missing: true}
		}
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := models.ColumnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var readings []models.Reading
	dropped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				dropped++
				continue
			}
			return nil, 0, fmt.Errorf("failed to read sensor log: %w", err)
		}

		reading, err := models.ParseRecord(record, idx)
		if err != nil {
			dropped++
			continue
		}
		readings = append(readings, reading)
	}

	return readings, dropped, nil
}

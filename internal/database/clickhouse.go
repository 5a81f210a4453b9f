package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// Config holds ClickHouse connection settings
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseDB stores readings, predictions and alert history
type ClickHouseDB struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseDB creates a new ClickHouse database connection and initializes the schema
func NewClickHouseDB(ctx context.Context, cfg Config, logger *zap.Logger) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("Connected to ClickHouse", zap.String("addr", cfg.Addr), zap.String("database", cfg.Database))

	db := &ClickHouseDB{conn: conn, logger: logger}
	if err := db.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	db.logger.Info("Database schema initialized")
	return nil
}

// SaveReading appends a reading to the historical log
func (db *ClickHouseDB) SaveReading(ctx context.Context, r *models.Reading) error {
	query := `
		INSERT INTO air_readings (timestamp, device_id, temp_c, hum_pct, mq2, mq135)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		r.Timestamp,
		r.DeviceID,
		r.TempC,
		r.HumPct,
		r.MQ2,
		r.MQ135,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// SavePrediction records a classifier prediction
func (db *ClickHouseDB) SavePrediction(ctx context.Context, p *models.Prediction) error {
	if len(p.Probabilities) != models.NumClasses {
		return fmt.Errorf("prediction has %d probabilities, want %d", len(p.Probabilities), models.NumClasses)
	}

	query := `
		INSERT INTO air_predictions (timestamp, device_id, label, class_id, p_good, p_moderate, p_bad)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		p.Timestamp,
		p.DeviceID,
		p.Label,
		uint8(p.ClassID),
		p.Probabilities[models.LabelGood],
		p.Probabilities[models.LabelModerate],
		p.Probabilities[models.LabelBad],
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// SaveAlert records a fired alert condition
func (db *ClickHouseDB) SaveAlert(ctx context.Context, a *models.AlertEvent) error {
	query := `
		INSERT INTO alert_history (id, timestamp, device_id, condition, message, delivered)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		a.ID,
		a.Timestamp,
		a.DeviceID,
		a.Condition,
		a.Message,
		a.Delivered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// LoadReadings returns the full historical log in timestamp order.
// It satisfies the training HistoricalSource.
func (db *ClickHouseDB) LoadReadings(ctx context.Context) ([]models.Reading, error) {
	query := `
		SELECT timestamp, device_id, temp_c, hum_pct, mq2, mq135
		FROM air_readings
		WHERE isFinite(temp_c) AND isFinite(hum_pct) AND isFinite(mq2) AND isFinite(mq135)
		ORDER BY timestamp
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.Timestamp, &r.DeviceID, &r.TempC, &r.HumPct, &r.MQ2, &r.MQ135); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	db.logger.Info("Loaded readings from ClickHouse", zap.Int("rows", len(readings)))
	return readings, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		db.logger.Info("ClickHouse connection closed")
	}
	return nil
}

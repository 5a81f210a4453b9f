package database

// SQL schemas for all ClickHouse tables

const (
	// AirReadingsTableSQL creates the air_readings table (the historical log used for training)
	AirReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS air_readings (
			timestamp DateTime64(3),
			device_id String,
			temp_c Float64,
			hum_pct Float64,
			mq2 Float64,
			mq135 Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AirPredictionsTableSQL creates the air_predictions table
	AirPredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS air_predictions (
			timestamp DateTime64(3),
			device_id String,
			label LowCardinality(String),
			class_id UInt8,
			p_good Float64,
			p_moderate Float64,
			p_bad Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlertHistoryTableSQL creates the alert_history table
	AlertHistoryTableSQL = `
		CREATE TABLE IF NOT EXISTS alert_history (
			id UUID,
			timestamp DateTime64(3),
			device_id String,
			condition LowCardinality(String),
			message String,
			delivered Bool
		) ENGINE = MergeTree()
		ORDER BY (condition, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		AirReadingsTableSQL,
		AirPredictionsTableSQL,
		AlertHistoryTableSQL,
	}
}

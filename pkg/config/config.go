package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when AQ_CONFIG is unset
const DefaultConfigPath = "configs/config.yml"

type Config struct {
	// MQTT Configuration
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`

	MQTTTopicReading    string `yaml:"mqtt_topic_reading"`
	MQTTTopicPrediction string `yaml:"mqtt_topic_prediction"`

	// ClickHouse Configuration
	ClickHouseEnabled bool   `yaml:"clickhouse_enabled"`
	ClickHouseAddr    string `yaml:"clickhouse_addr"`
	ClickHouseDB      string `yaml:"clickhouse_db"`
	ClickHouseUser    string `yaml:"clickhouse_user"`
	ClickHousePass    string `yaml:"clickhouse_pass"`

	// ML Model Configuration
	ModelPath     string  `yaml:"model_path"`
	TrainCSVPath  string  `yaml:"train_csv_path"`
	TrainSource   string  `yaml:"train_source"` // csv or clickhouse
	TrainSeed     int64   `yaml:"train_seed"`
	TrainMaxIter  int     `yaml:"train_max_iter"`
	TrainTestSize float64 `yaml:"train_test_size"`

	// Telegram
	TelegramToken  string `yaml:"tg_bot_token"`
	TelegramChatID string `yaml:"tg_chat_id"`

	// Alerts
	AlertCooldown time.Duration `yaml:"alert_cooldown"`

	HTTPAddr       string `yaml:"http_addr"`
	LogDevelopment bool   `yaml:"log_development"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientID:        "aq-backend",
		MQTTTopicReading:    "airquality/+/reading",
		MQTTTopicPrediction: "airquality/{device_id}/prediction",

		ClickHouseEnabled: true,
		ClickHouseAddr:    "localhost:9000",
		ClickHouseDB:      "airquality",
		ClickHouseUser:    "default",

		ModelPath:     "./model/aq_model.json",
		TrainCSVPath:  "./data/sensor_log.csv",
		TrainSource:   "csv",
		TrainSeed:     42,
		TrainMaxIter:  400,
		TrainTestSize: 0.2,

		AlertCooldown: 5 * time.Minute,
		HTTPAddr:      ":8080",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by AQ_CONFIG, a .env file and finally the process environment. Later
// layers win. Unparseable values are reported rather than ignored.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Defaults()

	path := getEnv("AQ_CONFIG", DefaultConfigPath)
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTUsername = getEnv("MQTT_USERNAME", c.MQTTUsername)
	c.MQTTPassword = getEnv("MQTT_PASSWORD", c.MQTTPassword)
	c.MQTTTopicReading = getEnv("MQTT_TOPIC_READING", c.MQTTTopicReading)
	c.MQTTTopicPrediction = getEnv("MQTT_TOPIC_PREDICTION", c.MQTTTopicPrediction)

	c.ClickHouseEnabled = getEnvBool("CLICKHOUSE_ENABLED", c.ClickHouseEnabled, &errs)
	c.ClickHouseAddr = getEnv("CLICKHOUSE_ADDR", c.ClickHouseAddr)
	c.ClickHouseDB = getEnv("CLICKHOUSE_DB", c.ClickHouseDB)
	c.ClickHouseUser = getEnv("CLICKHOUSE_USER", c.ClickHouseUser)
	c.ClickHousePass = getEnv("CLICKHOUSE_PASS", c.ClickHousePass)

	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.TrainCSVPath = getEnv("TRAIN_CSV_PATH", c.TrainCSVPath)
	c.TrainSource = getEnv("TRAIN_SOURCE", c.TrainSource)
	c.TrainSeed = int64(getEnvInt("TRAIN_SEED", int(c.TrainSeed), &errs))
	c.TrainMaxIter = getEnvInt("TRAIN_MAX_ITER", c.TrainMaxIter, &errs)
	c.TrainTestSize = getEnvFloat("TRAIN_TEST_SIZE", c.TrainTestSize, &errs)

	c.TelegramToken = getEnv("TG_BOT_TOKEN", c.TelegramToken)
	c.TelegramChatID = getEnv("TG_CHAT_ID", c.TelegramChatID)

	c.AlertCooldown = getEnvDuration("ALERT_COOLDOWN", c.AlertCooldown, &errs)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogDevelopment = getEnvBool("LOG_DEVELOPMENT", c.LogDevelopment, &errs)

	return errors.Join(errs...)
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	switch c.TrainSource {
	case "csv", "clickhouse":
	default:
		return fmt.Errorf("TRAIN_SOURCE must be csv or clickhouse, got %q", c.TrainSource)
	}
	if c.TrainTestSize <= 0 || c.TrainTestSize >= 1 {
		return fmt.Errorf("TRAIN_TEST_SIZE must be in (0, 1), got %v", c.TrainTestSize)
	}
	if c.TrainMaxIter <= 0 {
		return fmt.Errorf("TRAIN_MAX_ITER must be positive, got %d", c.TrainMaxIter)
	}
	if c.AlertCooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative, got %v", c.AlertCooldown)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("failed to parse %s as float: %w", key, err))
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("failed to parse %s as int: %w", key, err))
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("failed to parse %s as bool: %w", key, err))
		return defaultValue
	}
	return boolValue
}

// getEnvDuration accepts Go durations ("5m") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("failed to parse %s as duration: %w", key, err))
		return defaultValue
	}
	return d
}

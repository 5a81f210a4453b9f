package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"aq-backend/internal/alert"
	"aq-backend/internal/api"
	"aq-backend/internal/database"
	"aq-backend/internal/metrics"
	"aq-backend/internal/ml"
	"aq-backend/internal/mqtt"
	"aq-backend/internal/notify"
	"aq-backend/internal/services"
	"aq-backend/pkg/config"
)

func main() {
	cfg, ok := loadConfig(os.Stderr)
	if !ok {
		os.Exit(1)
	}

	logger := newLogger(cfg.LogDevelopment)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting air-quality monitor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Metrics ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// === Storage (optional) ===
	var store services.Store
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(ctx, database.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize ClickHouse", zap.Error(err))
		}
		defer db.Close()
		store = db
	} else {
		logger.Info("ClickHouse disabled, readings will not be persisted")
	}

	// === Classifier (optional) ===
	var classifier services.Classifier
	pipeline, err := ml.LoadPipeline(cfg.ModelPath)
	if err != nil {
		var loadErr *ml.ModelLoadError
		if !errors.As(err, &loadErr) {
			logger.Fatal("Unexpected error loading model", zap.Error(err))
		}
		logger.Error("Model unavailable, running with threshold alerts only",
			zap.String("path", loadErr.Path),
			zap.Error(loadErr.Err),
		)
	} else {
		classifier = pipeline
		logger.Info("Model loaded", zap.String("path", cfg.ModelPath))
	}

	// === Alerting ===
	gate := alert.NewCooldownGate(cfg.AlertCooldown)
	notifier := notify.NewTelegramNotifier(notify.TelegramConfig{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
	}, logger)
	evaluator := alert.NewEvaluator(gate, notifier, logger)

	// === Monitor Service ===
	monitor := services.NewMonitorService(store, classifier, evaluator, m, services.DefaultMonitorServiceConfig(), logger)

	// === MQTT ===
	// The subscriber registers as a connect handler: with a clean session the
	// broker drops subscriptions on every disconnect
	subscriber := mqtt.NewSubscriber(
		mqtt.SubscriberConfig{ReadingTopic: cfg.MQTTTopicReading},
		monitor.ReadingChan,
		m,
		logger,
	)
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:    cfg.MQTTBroker,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		OnConnect: []mqtt.ConnectHandler{subscriber.OnConnect},
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize MQTT client", zap.Error(err))
	}
	defer mqttClient.Close()

	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{PredictionTopic: cfg.MQTTTopicPrediction},
		monitor.PredictionChan,
		logger,
	)

	go publisher.Start(ctx)
	go monitor.Start(ctx)

	// === HTTP API ===
	server := api.NewServer(monitor, mqttClient, reg, logger)

	logger.Info("Air-quality monitor is running",
		zap.String("reading_topic", cfg.MQTTTopicReading),
		zap.String("prediction_topic", cfg.MQTTTopicPrediction),
		zap.Duration("alert_cooldown", gate.Window()),
		zap.Bool("classifier", classifier != nil),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("API server failed", zap.Error(err))
		stop()
	}

	// Give in-flight readings time to finish
	time.Sleep(time.Second)
	logger.Info("Shutdown complete")
}

// loadConfig reports a bad configuration on stderr. There is no logger yet:
// the config decides which one to build.
func loadConfig(stderr io.Writer) (*config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, false
	}
	return cfg, true
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

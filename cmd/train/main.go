package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aq-backend/internal/database"
	"aq-backend/internal/dataset"
	"aq-backend/internal/ml"
	"aq-backend/internal/models"
	"aq-backend/internal/training"
	"aq-backend/pkg/config"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitData  = 2 // unusable input: schema problem or too little data
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}

	flag.StringVar(&cfg.TrainSource, "source", cfg.TrainSource, "Training source: csv or clickhouse")
	flag.StringVar(&cfg.TrainCSVPath, "csv", cfg.TrainCSVPath, "Path to the CSV sensor log")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Where to write the model artifact")
	flag.Int64Var(&cfg.TrainSeed, "seed", cfg.TrainSeed, "Seed for the stratified split")
	flag.Parse()

	logger := newLogger(cfg.LogDevelopment)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("Training failed", zap.Error(err))
	}
	stop()
	os.Exit(exitCode(err))
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	src, closeSrc, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	trainerCfg := ml.DefaultTrainerConfig()
	trainerCfg.Seed = cfg.TrainSeed
	trainerCfg.TestSize = cfg.TrainTestSize
	trainerCfg.Logistic.MaxIter = cfg.TrainMaxIter

	report, err := training.Run(ctx, src, training.Options{ModelPath: cfg.ModelPath, Trainer: trainerCfg}, logger)
	if err != nil {
		return err
	}

	printReport(out, report)
	return nil
}

// openSource returns the configured historical source and its cleanup
func openSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (training.Source, func(), error) {
	switch cfg.TrainSource {
	case "clickhouse":
		db, err := database.NewClickHouseDB(ctx, database.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case "csv":
		return dataset.NewCSVSource(cfg.TrainCSVPath, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown training source %q", cfg.TrainSource)
	}
}

func printReport(w io.Writer, r *training.Report) {
	fmt.Fprintf(w, "Rows: %d\n", r.Rows)
	fmt.Fprintf(w, "MQ2 thresholds:   %s\n", r.Thresholds.MQ2)
	fmt.Fprintf(w, "MQ135 thresholds: %s\n", r.Thresholds.MQ135)
	fmt.Fprintf(w, "Label distribution: %s\n\n", r.Distribution)

	fmt.Fprintf(w, "Train/test: %d/%d\n\n", r.Result.TrainSize, r.Result.TestSize)
	fmt.Fprintf(w, "Confusion matrix (rows = true, cols = predicted):\n%s\n", r.Result.Evaluation.ConfusionString())
	fmt.Fprintf(w, "Classification report:\n%s\n", r.Result.Evaluation.Report(models.ClassNames))
	fmt.Fprintf(w, "Model saved to %s\n", r.ModelPath)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var schemaErr *models.SchemaError
	var dataErr *ml.InsufficientDataError
	if errors.As(err, &schemaErr) || errors.As(err, &dataErr) {
		return exitData
	}
	return exitError
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

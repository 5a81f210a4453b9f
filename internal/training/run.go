// Package training runs the offline pipeline: load the historical log,
// derive labels, fit and evaluate the classifier, then persist it.
package training

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"aq-backend/internal/labeling"
	"aq-backend/internal/ml"
	"aq-backend/internal/models"
)

// Source yields the historical readings to train on
type Source interface {
	LoadReadings(ctx context.Context) ([]models.Reading, error)
}

// Options configures a training run
type Options struct {
	ModelPath string
	Trainer   ml.TrainerConfig
}

// Report summarizes a completed training run
type Report struct {
	Rows         int
	Thresholds   labeling.Thresholds
	Distribution labeling.Distribution
	Result       *ml.TrainingResult
	ModelPath    string
}

// Run trains a classifier from src and saves it to opts.ModelPath.
// The artifact is written only when every step succeeds, so a failed run
// leaves any previous model in place.
func Run(ctx context.Context, src Source, opts Options, logger *zap.Logger) (*Report, error) {
	readings, err := src.LoadReadings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	labeled, err := labeling.Derive(readings)
	if err != nil {
		if errors.Is(err, labeling.ErrEmptyDataset) {
			return nil, &ml.InsufficientDataError{Count: 0, Required: ml.MinSamplesPerClass * models.NumClasses}
		}
		return nil, fmt.Errorf("failed to derive labels: %w", err)
	}

	logger.Info("Derived labels",
		zap.Int("rows", len(readings)),
		zap.Stringer("mq2_thresholds", labeled.Thresholds.MQ2),
		zap.Stringer("mq135_thresholds", labeled.Thresholds.MQ135),
		zap.Stringer("distribution", labeled.Distribution),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := ml.NewTrainer(opts.Trainer, logger).Train(labeled.Samples)
	if err != nil {
		return nil, err
	}

	if err := ml.SavePipeline(result.Pipeline, opts.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}
	logger.Info("Model saved", zap.String("path", opts.ModelPath))

	return &Report{
		Rows:         len(readings),
		Thresholds:   labeled.Thresholds,
		Distribution: labeled.Distribution,
		Result:       result,
		ModelPath:    opts.ModelPath,
	}, nil
}

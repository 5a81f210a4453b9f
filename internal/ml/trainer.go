package ml

import (
	"fmt"

	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// TrainerConfig holds configuration for classifier training
type TrainerConfig struct {
	TestSize float64 // Fraction of each class held out for evaluation
	Seed     int64   // Shuffle seed for the stratified split
	Logistic LogisticConfig
}

// DefaultTrainerConfig returns the default 80/20 split with seed 42
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		TestSize: 0.2,
		Seed:     42,
		Logistic: DefaultLogisticConfig(),
	}
}

// TrainingResult is the fitted pipeline with its held-out evaluation
type TrainingResult struct {
	Pipeline   *Pipeline
	Evaluation Evaluation
	TrainSize  int
	TestSize   int
	Fit        FitStats
}

// Trainer fits the scaling + logistic regression pipeline
type Trainer struct {
	cfg    TrainerConfig
	logger *zap.Logger
}

// NewTrainer creates a new trainer
func NewTrainer(cfg TrainerConfig, logger *zap.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger}
}

// Train splits the samples, fits the pipeline on the training partition and
// evaluates it on the test partition. Nothing is written to disk.
func (t *Trainer) Train(samples []models.LabeledSample) (*TrainingResult, error) {
	if len(samples) == 0 {
		return nil, &InsufficientDataError{Count: 0, Required: MinSamplesPerClass * models.NumClasses}
	}

	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		X[i] = s.Reading.Features()
		y[i] = int(s.Label)
	}

	trainIdx, testIdx, err := StratifiedSplit(y, models.NumClasses, t.cfg.TestSize, t.cfg.Seed)
	if err != nil {
		return nil, err
	}

	xTrain, yTrain := gather(X, y, trainIdx)
	xTest, yTest := gather(X, y, testIdx)

	scaler, err := FitStandardScaler(xTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}

	clf, stats, err := FitLogisticRegression(scaler.TransformAll(xTrain), yTrain, models.NumClasses, t.cfg.Logistic)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	if !stats.Converged {
		t.logger.Warn("Logistic regression did not converge",
			zap.String("status", stats.Status),
			zap.Int("iterations", stats.Iterations),
			zap.Int("max_iter", t.cfg.Logistic.MaxIter),
			zap.Float64("loss", stats.Loss),
		)
	}

	pipeline := &Pipeline{
		Scaler:     scaler,
		Classifier: clf,
		Classes:    append([]string(nil), models.ClassNames...),
	}

	yPred := make([]int, len(xTest))
	for i, x := range xTest {
		yPred[i] = argmax(clf.Proba(scaler.Transform(x)))
	}
	evaluation := Evaluate(yTest, yPred, models.NumClasses)

	t.logger.Info("Classifier trained",
		zap.Int("train_size", len(trainIdx)),
		zap.Int("test_size", len(testIdx)),
		zap.Int("iterations", stats.Iterations),
		zap.Bool("converged", stats.Converged),
		zap.Float64("loss", stats.Loss),
		zap.Float64("accuracy", evaluation.Accuracy),
	)

	return &TrainingResult{
		Pipeline:   pipeline,
		Evaluation: evaluation,
		TrainSize:  len(trainIdx),
		TestSize:   len(testIdx),
		Fit:        stats,
	}, nil
}

// gather selects rows of X and y by index
func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aq-backend/internal/alert"
	"aq-backend/internal/metrics"
	"aq-backend/internal/models"
)

// Store persists what the monitor sees. ClickHouseDB satisfies it.
type Store interface {
	SaveReading(ctx context.Context, r *models.Reading) error
	SavePrediction(ctx context.Context, p *models.Prediction) error
	SaveAlert(ctx context.Context, a *models.AlertEvent) error
}

// Classifier maps a reading to a label and its class probabilities
type Classifier interface {
	Classify(r models.Reading) (models.Label, []float64)
}

// AlertEvaluator applies the alert rules to a reading
type AlertEvaluator interface {
	Evaluate(ctx context.Context, r models.Reading, aiLabel string) alert.Result
}

// Snapshot is the outcome of processing the most recent reading
type Snapshot struct {
	Reading    models.Reading     `json:"reading"`
	Prediction *models.Prediction `json:"prediction,omitempty"`
	Alerts     []alert.Fired      `json:"alerts,omitempty"`
	Suppressed []alert.Condition  `json:"suppressed,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// MonitorServiceConfig holds configuration for the monitor service
type MonitorServiceConfig struct {
	ReadingChannelSize    int
	PredictionChannelSize int
	StoreTimeout          time.Duration
}

// DefaultMonitorServiceConfig returns default configuration
func DefaultMonitorServiceConfig() MonitorServiceConfig {
	return MonitorServiceConfig{
		ReadingChannelSize:    100,
		PredictionChannelSize: 50,
		StoreTimeout:          5 * time.Second,
	}
}

// MonitorService runs each current reading through classification,
// persistence and alerting
type MonitorService struct {
	store      Store      // optional
	classifier Classifier // optional; nil means threshold-only alerting
	evaluator  AlertEvaluator
	metrics    *metrics.Metrics
	logger     *zap.Logger

	storeTimeout time.Duration

	// Input channel from the MQTT subscriber
	ReadingChan chan *models.Reading
	// Output channel to the MQTT publisher
	PredictionChan chan *models.Prediction

	mu     sync.RWMutex
	latest *Snapshot
}

// NewMonitorService creates a new monitor service. store and classifier may be nil.
func NewMonitorService(
	store Store,
	classifier Classifier,
	evaluator AlertEvaluator,
	m *metrics.Metrics,
	config MonitorServiceConfig,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		store:          store,
		classifier:     classifier,
		evaluator:      evaluator,
		metrics:        m,
		logger:         logger,
		storeTimeout:   config.StoreTimeout,
		ReadingChan:    make(chan *models.Reading, config.ReadingChannelSize),
		PredictionChan: make(chan *models.Prediction, config.PredictionChannelSize),
	}
}

// HasClassifier reports whether a model was loaded
func (s *MonitorService) HasClassifier() bool {
	return s.classifier != nil
}

// Classify runs the classifier without persisting or alerting.
// ok is false when no model is loaded.
func (s *MonitorService) Classify(r models.Reading) (pred *models.Prediction, ok bool) {
	if s.classifier == nil {
		return nil, false
	}
	label, proba := s.classifier.Classify(r)
	return &models.Prediction{
		Timestamp:     r.Timestamp,
		DeviceID:      r.DeviceID,
		Label:         label.String(),
		ClassID:       int(label),
		Probabilities: proba,
		Reading:       r,
	}, true
}

// Start processes readings from ReadingChan until ctx is cancelled or the channel closes
func (s *MonitorService) Start(ctx context.Context) {
	s.logger.Info("MonitorService: Starting", zap.Bool("classifier", s.classifier != nil))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("MonitorService: Shutting down")
			return
		case reading, ok := <-s.ReadingChan:
			if !ok {
				s.logger.Info("MonitorService: Reading channel closed")
				return
			}
			s.Process(ctx, *reading)
		}
	}
}

// Process handles a single reading and returns the resulting snapshot
func (s *MonitorService) Process(ctx context.Context, r models.Reading) *Snapshot {
	s.metrics.ReadingProcessed()
	s.saveReading(ctx, &r)

	snap := &Snapshot{Reading: r, UpdatedAt: time.Now()}

	aiLabel := ""
	if pred, ok := s.Classify(r); ok {
		aiLabel = pred.Label
		snap.Prediction = pred
		s.metrics.Prediction(pred.Label, models.ClassNames, pred.Probabilities)
		s.savePrediction(ctx, pred)
		s.publish(pred)

		s.logger.Info("Classified reading",
			zap.String("device_id", r.DeviceID),
			zap.String("label", pred.Label),
			zap.Float64s("probabilities", pred.Probabilities),
		)
	}

	res := s.evaluator.Evaluate(ctx, r, aiLabel)
	snap.Alerts = res.Fired
	snap.Suppressed = res.Suppressed

	for _, f := range res.Fired {
		outcome := metrics.OutcomeDelivered
		if !f.Delivered {
			outcome = metrics.OutcomeFailed
		}
		s.metrics.Alert(string(f.Condition), outcome)
		s.saveAlert(ctx, &models.AlertEvent{
			ID:        uuid.NewString(),
			Timestamp: snap.UpdatedAt,
			DeviceID:  r.DeviceID,
			Condition: string(f.Condition),
			Message:   f.Message,
			Delivered: f.Delivered,
		})
	}
	for _, c := range res.Suppressed {
		s.metrics.Alert(string(c), metrics.OutcomeSuppressed)
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	return snap
}

// Latest returns the most recent snapshot, or nil before the first reading
func (s *MonitorService) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *MonitorService) publish(pred *models.Prediction) {
	select {
	case s.PredictionChan <- pred:
	default:
		s.logger.Warn("Prediction channel full, dropping prediction", zap.String("device_id", pred.DeviceID))
	}
}

// Store writes are best effort: a failed write never blocks alerting.

func (s *MonitorService) saveReading(ctx context.Context, r *models.Reading) {
	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.SaveReading(sctx, r); err != nil {
		s.metrics.StoreError()
		s.logger.Error("Error saving reading", zap.Error(err))
	}
}

func (s *MonitorService) savePrediction(ctx context.Context, p *models.Prediction) {
	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.SavePrediction(sctx, p); err != nil {
		s.metrics.StoreError()
		s.logger.Error("Error saving prediction", zap.Error(err))
	}
}

func (s *MonitorService) saveAlert(ctx context.Context, a *models.AlertEvent) {
	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.SaveAlert(sctx, a); err != nil {
		s.metrics.StoreError()
		s.logger.Error("Error saving alert", zap.String("condition", a.Condition), zap.Error(err))
	}
}

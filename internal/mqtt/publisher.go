package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client
	logger *zap.Logger

	// Input channel (read by publisher, written by the monitor service)
	PredictionChan chan *models.Prediction

	predictionTopic string // e.g., "airquality/{device_id}/prediction"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	PredictionTopic string
}

// NewPublisher creates a new MQTT publisher reading from predictionChan
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	predictionChan chan *models.Prediction,
	logger *zap.Logger,
) *Publisher {
	return &Publisher{
		client:          client,
		logger:          logger,
		PredictionChan:  predictionChan,
		predictionTopic: config.PredictionTopic,
	}
}

// Start begins publishing predictions from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("MQTT Publisher: Starting")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("MQTT Publisher: Context cancelled, shutting down")
			return

		case pred, ok := <-p.PredictionChan:
			if !ok {
				p.logger.Info("MQTT Publisher: Prediction channel closed, shutting down")
				return
			}

			if err := p.publishPrediction(pred); err != nil {
				p.logger.Error("Error publishing prediction", zap.Error(err))
			}
		}
	}
}

// publishPrediction publishes the latest classification for dashboards.
// Messages are retained so a new subscriber sees the current state at once.
func (p *Publisher) publishPrediction(pred *models.Prediction) error {
	payload, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	topic := formatTopic(p.predictionTopic, pred.DeviceID)

	token := p.client.Publish(topic, 1, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish prediction: %w", token.Error())
	}

	p.logger.Debug("Published prediction", zap.String("topic", topic), zap.String("label", pred.Label))
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	if deviceID == "" {
		deviceID = "default"
	}
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}

package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"aq-backend/internal/models"
)

const subscribeTimeout = 10 * time.Second

// RejectCounter is notified when an incoming reading fails validation
type RejectCounter interface {
	ReadingRejected()
}

// Subscriber handles the reading subscription and writes readings to a channel
type Subscriber struct {
	logger *zap.Logger

	// Output channel (written by subscriber, read by the monitor service)
	ReadingChan chan *models.Reading

	readingTopic string // e.g., "airquality/+/reading"
	rejects      RejectCounter
	now          func() time.Time
	sendTimeout  time.Duration
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	ReadingTopic string
}

// NewSubscriber creates a new MQTT subscriber writing to readingChan.
// Register OnConnect with the Client so the subscription survives reconnects.
func NewSubscriber(
	config SubscriberConfig,
	readingChan chan *models.Reading,
	rejects RejectCounter,
	logger *zap.Logger,
) *Subscriber {
	return &Subscriber{
		logger:       logger,
		ReadingChan:  readingChan,
		readingTopic: config.ReadingTopic,
		rejects:      rejects,
		now:          time.Now,
		sendTimeout:  time.Second,
	}
}

// Subscribe subscribes client to the reading topic
func (s *Subscriber) Subscribe(client mqtt.Client) error {
	token := client.Subscribe(s.readingTopic, 1, s.handleReading)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("timed out subscribing to %s", s.readingTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}
	s.logger.Info("Subscribed to reading topic", zap.String("topic", s.readingTopic))
	return nil
}

// OnConnect is a ConnectHandler that (re)subscribes after every connect
func (s *Subscriber) OnConnect(client mqtt.Client) {
	if err := s.Subscribe(client); err != nil {
		s.logger.Error("Failed to subscribe to MQTT topics", zap.Error(err))
	}
}

// handleReading validates a JSON reading and forwards it to the channel.
// Malformed readings are dropped here so they never reach the decision engine.
func (s *Subscriber) handleReading(_ mqtt.Client, msg mqtt.Message) {
	var fields map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &fields); err != nil {
		s.reject(msg.Topic(), fmt.Errorf("invalid JSON: %w", err))
		return
	}

	reading, err := models.ReadingFromFields(fields)
	if err != nil {
		s.reject(msg.Topic(), err)
		return
	}

	// Topic carries the device ID (airquality/{device_id}/reading)
	if deviceID := extractDeviceID(msg.Topic()); deviceID != "" {
		reading.DeviceID = deviceID
	}
	// Generate timestamp server-side when the sensor did not send one
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.now()
	}

	s.logger.Debug("Received reading",
		zap.String("device_id", reading.DeviceID),
		zap.Float64("mq2", reading.MQ2),
		zap.Float64("mq135", reading.MQ135),
	)

	// Write to channel (non-blocking with timeout)
	select {
	case s.ReadingChan <- &reading:
	case <-time.After(s.sendTimeout):
		s.logger.Warn("Reading channel full, dropping message", zap.String("device_id", reading.DeviceID))
	}
}

func (s *Subscriber) reject(topic string, err error) {
	s.logger.Warn("Rejected reading", zap.String("topic", topic), zap.Error(err))
	if s.rejects != nil {
		s.rejects.ReadingRejected()
	}
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "airquality/pi-livingroom/reading" -> "pi-livingroom"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}

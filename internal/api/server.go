// Package api serves the monitor's current state and on-demand
// classification over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aq-backend/internal/models"
	"aq-backend/internal/services"
)

// Monitor is the part of the monitor service the API reads from
type Monitor interface {
	Latest() *services.Snapshot
	Classify(r models.Reading) (*models.Prediction, bool)
	HasClassifier() bool
}

// BrokerStatus reports the MQTT connection state
type BrokerStatus interface {
	IsConnected() bool
}

// Server holds the Gin engine and the monitor it reports on
type Server struct {
	router   *gin.Engine
	monitor  Monitor
	broker   BrokerStatus
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// predictionView is a prediction with probabilities keyed by class name
type predictionView struct {
	Label         string             `json:"label"`
	ClassID       int                `json:"class_id"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// sensorLevels are the coarse per-sensor levels shown on dashboards
type sensorLevels struct {
	MQ2   string `json:"mq2"`
	MQ135 string `json:"mq135"`
}

// NewServer creates the API server. gatherer may be nil to disable /metrics;
// a nil broker is reported as disconnected.
func NewServer(monitor Monitor, broker BrokerStatus, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:   router,
		monitor:  monitor,
		broker:   broker,
		gatherer: gatherer,
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/latest", s.handleLatest)
		v1.POST("/predict", s.handlePredict)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("API server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"model_loaded":   s.monitor.HasClassifier(),
		"mqtt_connected": s.broker != nil && s.broker.IsConnected(),
	})
}

func (s *Server) handleLatest(c *gin.Context) {
	snap := s.monitor.Latest()
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading received yet"})
		return
	}

	resp := gin.H{
		"reading":    snap.Reading,
		"levels":     levelsFor(snap.Reading),
		"alerts":     snap.Alerts,
		"suppressed": snap.Suppressed,
		"updated_at": snap.UpdatedAt,
	}
	if snap.Prediction != nil {
		resp["prediction"] = viewOf(snap.Prediction)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePredict(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	reading, err := models.ReadingFromFields(fields)
	if err != nil {
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": schemaErr.Error(), "column": schemaErr.Column})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, ok := s.monitor.Classify(reading)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no model loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction": viewOf(pred),
		"levels":     levelsFor(reading),
	})
}

func viewOf(p *models.Prediction) predictionView {
	probs := make(map[string]float64, len(p.Probabilities))
	for i, v := range p.Probabilities {
		probs[models.Label(i).String()] = v
	}
	return predictionView{Label: p.Label, ClassID: p.ClassID, Probabilities: probs}
}

func levelsFor(r models.Reading) sensorLevels {
	return sensorLevels{
		MQ2:   models.SensorLevel(r.MQ2),
		MQ135: models.SensorLevel(r.MQ135),
	}
}

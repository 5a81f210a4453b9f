package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"aq-backend/internal/models"
)

// Pipeline is the fitted scaler plus classifier persisted as one artifact
type Pipeline struct {
	Scaler     *StandardScaler     `json:"scaler"`
	Classifier *LogisticRegression `json:"classifier"`
	Classes    []string            `json:"classes"`
}

// PredictProba returns [p_good, p_moderate, p_bad] for a reading
func (p *Pipeline) PredictProba(r models.Reading) []float64 {
	return p.Classifier.Proba(p.Scaler.Transform(r.Features()))
}

// Predict returns the most probable class for a reading
func (p *Pipeline) Predict(r models.Reading) models.Label {
	return models.Label(argmax(p.PredictProba(r)))
}

// Classify returns both the predicted label and its probability vector
func (p *Pipeline) Classify(r models.Reading) (models.Label, []float64) {
	proba := p.PredictProba(r)
	return models.Label(argmax(proba)), proba
}

// validate checks the artifact dimensions and class ordering
func (p *Pipeline) validate() error {
	nFeatures := len(models.FeatureColumns)
	if p.Scaler == nil || p.Classifier == nil {
		return errors.New("artifact is missing scaler or classifier")
	}
	if len(p.Scaler.Mean) != nFeatures || len(p.Scaler.Scale) != nFeatures {
		return fmt.Errorf("scaler expects %d features, got mean=%d scale=%d", nFeatures, len(p.Scaler.Mean), len(p.Scaler.Scale))
	}
	for j, s := range p.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler has zero scale for feature %d", j)
		}
	}
	if len(p.Classifier.Coef) != models.NumClasses || len(p.Classifier.Intercept) != models.NumClasses {
		return fmt.Errorf("classifier must have %d classes", models.NumClasses)
	}
	for k, w := range p.Classifier.Coef {
		if len(w) != nFeatures {
			return fmt.Errorf("class %d has %d weights, want %d", k, len(w), nFeatures)
		}
	}
	if len(p.Classes) != models.NumClasses {
		return fmt.Errorf("artifact lists %d classes, want %d", len(p.Classes), models.NumClasses)
	}
	for i, name := range models.ClassNames {
		if p.Classes[i] != name {
			return fmt.Errorf("class %d is %q, want %q", i, p.Classes[i], name)
		}
	}
	return nil
}

// LoadPipeline reads and validates a model artifact.
// Any failure is reported as a *ModelLoadError.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}

	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("failed to unmarshal model: %w", err)}
	}
	if err := p.validate(); err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	return &p, nil
}

// SavePipeline writes the artifact to a temp file, syncs it and renames it
// over path, so readers never see a partial file and a failed save leaves
// the previous artifact in place.
func SavePipeline(p *Pipeline, path string) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("refusing to save invalid model: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

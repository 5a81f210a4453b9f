// Package labeling derives data-driven air-quality labels from historical
// readings. Class boundaries are the 33rd and 66th percentiles of each gas
// sensor, and a sample takes the worse of its two per-sensor labels.
package labeling

import (
	"errors"
	"fmt"
	"sort"

	"aq-backend/internal/models"
)

// Percentile ranks used as class boundaries
const (
	LowerQuantile = 0.33
	UpperQuantile = 0.66
)

// ErrEmptyDataset is returned when there are no readings to label
var ErrEmptyDataset = errors.New("labeling: empty dataset")

// ThresholdPair holds the class boundaries for one sensor
type ThresholdPair struct {
	P33 float64 `json:"p33"`
	P66 float64 `json:"p66"`
}

// Label assigns Good below P33, Moderate below P66, Bad otherwise
func (t ThresholdPair) Label(v float64) models.Label {
	if v < t.P33 {
		return models.LabelGood
	}
	if v < t.P66 {
		return models.LabelModerate
	}
	return models.LabelBad
}

func (t ThresholdPair) String() string {
	return fmt.Sprintf("p33=%.2f, p66=%.2f", t.P33, t.P66)
}

// Thresholds holds the boundaries for both gas sensors
type Thresholds struct {
	MQ2   ThresholdPair `json:"mq2"`
	MQ135 ThresholdPair `json:"mq135"`
}

// Label returns max(label_mq2, label_mq135) for a reading
func (t Thresholds) Label(r models.Reading) models.Label {
	return models.MaxLabel(t.MQ2.Label(r.MQ2), t.MQ135.Label(r.MQ135))
}

// Distribution counts samples per class
type Distribution [models.NumClasses]int

func (d Distribution) String() string {
	return fmt.Sprintf("Good=%d Moderate=%d Bad=%d", d[models.LabelGood], d[models.LabelModerate], d[models.LabelBad])
}

// Result is the output of a labeling run
type Result struct {
	Samples      []models.LabeledSample
	Thresholds   Thresholds
	Distribution Distribution
}

// Percentile returns the q-quantile of values using linear interpolation
// between the closest ranks at position (n-1)*q. values is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * q
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// pair computes the ThresholdPair for one sensor's values
func pair(values []float64) ThresholdPair {
	return ThresholdPair{
		P33: Percentile(values, LowerQuantile),
		P66: Percentile(values, UpperQuantile),
	}
}

// ComputeThresholds computes both sensors' boundaries over the full dataset
func ComputeThresholds(readings []models.Reading) (Thresholds, error) {
	if len(readings) == 0 {
		return Thresholds{}, ErrEmptyDataset
	}

	mq2 := make([]float64, len(readings))
	mq135 := make([]float64, len(readings))
	for i, r := range readings {
		mq2[i] = r.MQ2
		mq135[i] = r.MQ135
	}

	return Thresholds{MQ2: pair(mq2), MQ135: pair(mq135)}, nil
}

// Derive labels every reading with the worse of its two per-sensor labels
func Derive(readings []models.Reading) (*Result, error) {
	thresholds, err := ComputeThresholds(readings)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Samples:    make([]models.LabeledSample, len(readings)),
		Thresholds: thresholds,
	}
	for i, r := range readings {
		label := thresholds.Label(r)
		res.Samples[i] = models.LabeledSample{Reading: r, Label: label}
		res.Distribution[label]++
	}
	return res, nil
}

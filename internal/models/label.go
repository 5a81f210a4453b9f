package models

import (
	"fmt"
	"strings"
)

// Label is the 3-class air-quality classification
type Label int

const (
	LabelGood Label = iota
	LabelModerate
	LabelBad
)

// NumClasses is the number of air-quality classes
const NumClasses = 3

// ClassNames is the classifier output ordering
var ClassNames = []string{"Good", "Moderate", "Bad"}

// String returns the class name, or "Unknown" for out-of-range labels
func (l Label) String() string {
	if !l.Valid() {
		return "Unknown"
	}
	return ClassNames[l]
}

// Valid reports whether the label is one of the three classes
func (l Label) Valid() bool {
	return l >= LabelGood && l <= LabelBad
}

// ParseLabel maps a class name back to its Label
func ParseLabel(name string) (Label, error) {
	for i, n := range ClassNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", name)
}

// MaxLabel returns the worse of two labels
func MaxLabel(a, b Label) Label {
	if a > b {
		return a
	}
	return b
}

// Raw gas sensor levels shown next to readings (independent of the classifier)
const (
	LevelMediumFrom = 500.0
	LevelBadFrom    = 700.0
)

// SensorLevel maps a raw MQ sensor value to a human-readable level
func SensorLevel(value float64) string {
	switch {
	case value < LevelMediumFrom:
		return "Good"
	case value < LevelBadFrom:
		return "Medium"
	default:
		return "Bad"
	}
}

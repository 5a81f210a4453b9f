package ml

import "fmt"

// MinSamplesPerClass is the minimum class size the stratified split accepts
const MinSamplesPerClass = 2

// InsufficientDataError reports a dataset too small to train on.
// Class is empty when the whole dataset is unusable.
type InsufficientDataError struct {
	Class    string
	Count    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("insufficient data: %d usable rows, need at least %d", e.Count, e.Required)
	}
	return fmt.Sprintf("insufficient data: class %s has %d samples, need at least %d", e.Class, e.Count, e.Required)
}

// ModelLoadError reports a missing or corrupt model artifact
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

package models

import "fmt"

// SchemaError reports a required column that is absent or a value that cannot
// be coerced to a float.
type SchemaError struct {
	Column  string
	Missing bool
	Value   string
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Missing {
		return fmt.Sprintf("schema: missing required column %q", e.Column)
	}
	return fmt.Sprintf("schema: column %q: cannot coerce %q: %v", e.Column, e.Value, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

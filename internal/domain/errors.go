package domain

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when a provider callback signature does not match.
var ErrAuthentication = errors.New("signature verification failed")

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("invalid field %q", e.Field)
	}
	return fmt.Sprintf("invalid field %q: failed %q rule", e.Field, e.Rule)
}

// ConfigurationError reports a required server setting that is missing.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required setting %s", e.Setting)
}

// GenerationError wraps a failure of the completion service.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

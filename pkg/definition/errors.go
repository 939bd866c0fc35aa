package definition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/formation/pkg/metrics"
)

var (
	// ErrInvalidConfiguration indicates a malformed or incomplete definition document.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConfigurationNotFound indicates no source exists for the requested key.
	ErrConfigurationNotFound = errors.New("configuration not found")
)

// ConfigurationError lists every structural problem found while loading a document.
type ConfigurationError struct {
	Source   string   // Source document name
	Problems []string // One entry per violation
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Source, strings.Join(e.Problems, "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NotFoundError indicates a missing workflow or form source.
type NotFoundError struct {
	Kind string // "workflow" or "form"
	Key  string // Normalized lookup key
	Err  error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s configuration %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrConfigurationNotFound
}

// IsConfigurationError checks if an error reports an invalid definition.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsNotFound checks if an error reports a missing definition source.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigurationNotFound)
}

// problems accumulates violations; loading never stops at the first one.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err(source string) error {
	if len(p) == 0 {
		return nil
	}

	return &ConfigurationError{Source: source, Problems: append([]string(nil), p...)}
}

func loadOutcome(err error) string {
	switch {
	case IsNotFound(err):
		return metrics.LoadNotFound
	case IsConfigurationError(err):
		return metrics.LoadInvalid
	default:
		return metrics.LoadError
	}
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigLoader defines the interface for loading configs
type ConfigLoader interface {
	Load(path string) (interface{}, error)
	Parse(data []byte) (interface{}, error)
}

type ValidationError struct {
	Field   string
	Message string
}

type Validator interface {
	Validate(config interface{}) []ValidationError
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DefaultValueSetter Handles the interface for setting default values
type DefaultValueSetter interface {
	SetDefaults(config interface{})
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	expanded := os.Expand(string(data), os.Getenv)
	return []byte(expanded)
}

// SettingsLoader uses ConfigLoader for client Settings
type SettingsLoader struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewSettingsLoader creates a new SettingsLoader with the given components
func NewSettingsLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *SettingsLoader {
	return &SettingsLoader{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// Load a new Settings config from YAML file
func (l *SettingsLoader) Load(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses a yaml config
func (l *SettingsLoader) Parse(data []byte) (interface{}, error) {
	// Expand variables if an expander is configured
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	// Unmarshal YAML data into Settings struct
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Set default values if a default setter is configured
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(&settings)
	}

	// Validate the settings
	var allErrors []ValidationError
	for _, validator := range l.validators {
		errors := validator.Validate(&settings)
		allErrors = append(allErrors, errors...)
	}

	// Return any validation errors if there are any
	if len(allErrors) > 0 {
		return nil, fmt.Errorf("validation errors: %v", allErrors)
	}

	return &settings, nil
}

// SettingsDefaults implements DefaultValueSetter for Settings
type SettingsDefaults struct{}

// SetDefaults sets default values for Settings
func (d *SettingsDefaults) SetDefaults(config interface{}) {
	settings, ok := config.(*Settings)
	if !ok {
		return
	}

	if settings.HTTP.Timeout <= 0 {
		settings.HTTP.Timeout = DefaultHTTPTimeout
	}
	if settings.Retry.MaxAttempts <= 0 {
		settings.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if settings.Retry.InitialBackoff <= 0 {
		settings.Retry.InitialBackoff = DefaultInitialBackoff
	}
	if settings.Retry.BackoffMultiplier <= 0 {
		settings.Retry.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if settings.Retry.MaxBackoff <= 0 {
		settings.Retry.MaxBackoff = DefaultMaxBackoff
	}
}

// RetryPolicyValidator validates the retry block
type RetryPolicyValidator struct{}

// Validate checks that the retry policy is internally consistent
func (v *RetryPolicyValidator) Validate(config interface{}) []ValidationError {
	settings, ok := config.(*Settings)
	if !ok {
		return []ValidationError{{Field: "config", Message: "not a Settings"}}
	}

	var errors []ValidationError

	if settings.Retry.MaxBackoff < settings.Retry.InitialBackoff {
		errors = append(errors, ValidationError{
			Field:   "retry.max_backoff",
			Message: "must be >= retry.initial_backoff",
		})
	}
	for _, status := range settings.Retry.RetryableStatuses {
		if status < 100 || status > 599 {
			errors = append(errors, ValidationError{
				Field:   "retry.retryable_statuses",
				Message: fmt.Sprintf("invalid HTTP status %d", status),
			})
		}
	}

	return errors
}

// LoadEnv loads .env files into the process environment. Missing files are
// not an error so a plain environment keeps working.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

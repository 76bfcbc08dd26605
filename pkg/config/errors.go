package config

import (
	"fmt"

	"gcode-extrude/pkg/errors"
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Code    errors.ErrorCode
	Section string
	Option  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	switch {
	case e.Option != "":
		msg = fmt.Sprintf("Option '%s' in section '%s': %s", e.Option, e.Section, e.Message)
	case e.Section != "":
		msg = fmt.Sprintf("Section '%s': %s", e.Section, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// AsError converts e into the shared error type so callers can match on
// its code.
func (e *ConfigError) AsError() *errors.Error {
	return errors.Wrap(e.Cause, e.Code, e.Message).
		SetSection(e.Section).
		SetOption(e.Option)
}

// NewConfigError creates a new validation ConfigError.
func NewConfigError(section, option, message string) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigValidation,
		Section: section,
		Option:  option,
		Message: message,
	}
}

// WrapError wraps an existing error with config context.
func WrapError(section, option string, err error) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigValidation,
		Section: section,
		Option:  option,
		Message: "invalid configuration",
		Cause:   err,
	}
}

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigOption,
		Section: section,
		Option:  option,
		Message: "must be specified",
	}
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigSection,
		Section: section,
		Message: "section not found",
	}
}

// ErrInvalidValue returns an error for a value that does not parse as expected.
func ErrInvalidValue(section, option, value, expected string, cause error) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigType,
		Section: section,
		Option:  option,
		Message: fmt.Sprintf("invalid value '%s', expected %s", value, expected),
		Cause:   cause,
	}
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigValidation,
		Section: section,
		Option:  option,
		Message: fmt.Sprintf("value %v %s", value, constraint),
	}
}

// ErrInvalidChoice returns an error for an invalid choice value.
func ErrInvalidChoice(section, option, value string, choices []string) *ConfigError {
	return &ConfigError{
		Code:    errors.ErrConfigValidation,
		Section: section,
		Option:  option,
		Message: fmt.Sprintf("'%s' is not a valid choice (valid: %v)", value, choices),
	}
}

// Unified error handling for the G-code extrusion rewriter
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// G-code errors
	ErrGCodeMalformedToken      ErrorCode = "GCODE_MALFORMED_TOKEN"
	ErrGCodeDegenerateReference ErrorCode = "GCODE_DEGENERATE_REFERENCE"
	ErrGCodeNonFinite           ErrorCode = "GCODE_NON_FINITE"

	// Input/output errors
	ErrIO ErrorCode = "IO"
)

// Error is the unified error type used across the rewriter
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// File is the source file (if available)
	File string

	// Line is the 1-based line number in the input (0 if unknown)
	Line int

	// Section is the config section or context
	Section string

	// Option is the config option name (if applicable)
	Option string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	tag := string(e.Code)
	switch {
	case e.Option != "":
		tag += ":" + e.Option
	case e.Section != "":
		tag += ":" + e.Section
	}
	msg := fmt.Sprintf("[%s] %s", tag, e.Message)
	switch {
	case e.Line > 0 && e.File != "":
		msg = fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	case e.Line > 0:
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	case e.File != "":
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// SetFile sets the source file
func (e *Error) SetFile(file string) *Error {
	e.File = file
	return e
}

// SetLine sets the line number
func (e *Error) SetLine(line int) *Error {
	e.Line = line
	return e
}

// SetSection sets the context section
func (e *Error) SetSection(section string) *Error {
	e.Section = section
	return e
}

// SetOption sets the config option
func (e *Error) SetOption(option string) *Error {
	e.Option = option
	return e
}

// SetContext adds additional context
func (e *Error) SetContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Config errors

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *Error {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason)).
		SetSection(section).
		SetOption(option)
}

// G-code errors

// MalformedTokenError reports an axis word whose value is not a finite number.
func MalformedTokenError(raw, token string) *Error {
	return New(ErrGCodeMalformedToken, fmt.Sprintf("malformed axis token %q", token)).
		SetContext("raw", raw).
		SetContext("token", token)
}

// DegenerateReferenceError reports a calibration move that cannot define a ratio.
func DegenerateReferenceError(reason string) *Error {
	return New(ErrGCodeDegenerateReference, "degenerate reference move: "+reason)
}

// NonFiniteError reports a computed quantity that is NaN or infinite.
func NonFiniteError(raw, quantity string, value float64) *Error {
	return New(ErrGCodeNonFinite, fmt.Sprintf("%s is not finite (%v)", quantity, value)).
		SetContext("raw", raw)
}

// IOError wraps a read or write failure.
func IOError(op string, err error) *Error {
	return Wrap(err, ErrIO, op)
}

// Helper functions for adding context

// WithConfigPath adds config file path to error context
func WithConfigPath(err *Error, path string) *Error {
	if err == nil {
		return nil
	}
	err.SetContext("config_path", path)
	return err
}

// WithLineNumber adds line number to error context
func WithLineNumber(err *Error, line int) *Error {
	if err == nil {
		return nil
	}
	err.SetLine(line)
	return err
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsGCode checks if error is a G-code error
func IsGCode(err error) bool {
	return Is(err, ErrGCodeMalformedToken) ||
		Is(err, ErrGCodeDegenerateReference) ||
		Is(err, ErrGCodeNonFinite)
}

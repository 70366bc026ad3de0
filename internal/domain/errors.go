package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a user, activity or track cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidMode is returned for recap modes outside daily, weekly and monthly.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidDateFormat is returned when a date parameter cannot be parsed.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidTzOffset is returned when tz_offset is not an integer number of minutes within a day.
	ErrInvalidTzOffset = errors.New("invalid tz_offset")
	// ErrInvalidRange is returned when a start/end pair does not describe a non-empty interval.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidParameter covers other malformed query parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParamError ties a parameter error to the offending query parameter and its raw value.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if e.Err == ErrInvalidMode {
		return fmt.Sprintf("Invalid mode %q. Use daily, weekly, or monthly", e.Value)
	}
	return fmt.Sprintf("%s: %s=%q", e.Err, e.Param, e.Value)
}

func (e *ParamError) Unwrap() error { return e.Err }

// NewParamError builds a ParamError.
func NewParamError(param, value string, err error) *ParamError {
	return &ParamError{Param: param, Value: value, Err: err}
}

// ValidationError carries field-level messages for rejected create/update payloads.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it holds at least one field error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsClientError reports whether err stems from bad caller input.
func IsClientError(err error) bool {
	var verr *ValidationError
	var perr *ParamError
	return errors.As(err, &verr) || errors.As(err, &perr)
}

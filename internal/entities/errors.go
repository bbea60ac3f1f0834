package entities

import (
	"fmt"
)

// InputValidationError reports user input that cannot advance the conversation
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WeatherFetchError reports a failed forecast fetch for one city
type WeatherFetchError struct {
	City string
	Err  error
}

func (e *WeatherFetchError) Error() string {
	return fmt.Sprintf("weather fetch failed for %s: %v", e.City, e.Err)
}

func (e *WeatherFetchError) Unwrap() error {
	return e.Err
}

// SessionStateError reports session data missing at a stage that needs it
type SessionStateError struct {
	Stage   Stage
	Missing string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("session at stage %s is missing %s", e.Stage, e.Missing)
}

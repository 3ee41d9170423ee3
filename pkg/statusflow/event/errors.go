package event

import "fmt"

// EventError carries event identity alongside a delivery failure.
type EventError struct {
	Event   Event  // The event that failed
	Message string // What went wrong
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", e.Event.ID(), e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", e.Event.ID(), e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}

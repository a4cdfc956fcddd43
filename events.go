package warden

import (
	"fmt"
	"time"
)

// EventLevel represents the severity of a lifecycle event.
type EventLevel int

const (
	// EventLevelDefault selects the default event level.
	EventLevelDefault EventLevel = iota
	// EventLevelDebug represents a very granular message.
	EventLevelDebug
	// EventLevelInfo represents an informational message.
	EventLevelInfo
	// EventLevelWarning represents a warning message.
	EventLevelWarning
	// EventLevelError represents an error message.
	EventLevelError
	// EventLevelCritical represents a critical error message.
	EventLevelCritical
)

const DefaultEventLevel = EventLevelInfo

func (level EventLevel) String() string {
	switch level {
	case EventLevelDebug:
		return "DEBUG"
	case EventLevelInfo:
		return "INFO"
	case EventLevelWarning:
		return "WARNING"
	case EventLevelError:
		return "ERROR"
	case EventLevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Event is a leveled lifecycle notification from a supervisor: spawn,
// restart, death, task failure. Events carry the handle that was current
// when they fired, so consumers can follow a lineage across restarts.
type Event struct {
	Level  EventLevel
	Handle WorkerHandle
	At     time.Time
	event  error
}

func NewEvent(level EventLevel, err error, handle WorkerHandle) *Event {
	if level == EventLevelDefault {
		level = DefaultEventLevel
	}

	return &Event{
		Level:  level,
		Handle: handle,
		At:     time.Now(),
		event:  err,
	}
}

// Error implements the error interface.
func (e *Event) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.event != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Level, e.Handle, e.event)
	}
	return fmt.Sprintf("[%s] %s", e.Level, e.Handle)
}

func (e *Event) String() string {
	return e.Error()
}

// Unwrap returns the underlying error.
func (e *Event) Unwrap() error {
	return e.event
}

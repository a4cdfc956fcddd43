package warden

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", EventLevelDebug.String())
	assert.Equal(t, "INFO", EventLevelInfo.String())
	assert.Equal(t, "WARNING", EventLevelWarning.String())
	assert.Equal(t, "ERROR", EventLevelError.String())
	assert.Equal(t, "CRITICAL", EventLevelCritical.String())
	assert.Equal(t, "UNKNOWN", EventLevel(42).String())
}

func TestEvent_DefaultLevel(t *testing.T) {
	ev := NewEvent(EventLevelDefault, errors.New("something"), WorkerHandle{})
	assert.Equal(t, DefaultEventLevel, ev.Level)
}

func TestEvent_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("worker fell over")
	ev := NewEvent(EventLevelError, cause, WorkerHandle{PID: 1234, Generation: 2})

	assert.Contains(t, ev.Error(), "ERROR")
	assert.Contains(t, ev.Error(), "1234")
	assert.Contains(t, ev.Error(), "worker fell over")
	assert.ErrorIs(t, ev, cause)
}

func TestEvent_NilSafety(t *testing.T) {
	var ev *Event
	assert.Equal(t, "<nil>", ev.Error())
}

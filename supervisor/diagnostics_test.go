package supervisor

import (
	"errors"
	"testing"
)

func TestNewEngineWithLoggingDoesNotPanic(t *testing.T) {
	ft := newFakeTransport()
	e := NewEngineWithLogging(ft)

	e.warn("wb_supervisor_field_set_sf_float", "value is not finite")
	e.reportError(errors.New("boom"))
}

// Package testmocks holds hand-maintained, gomock-based doubles for the
// core ports (ports.Logger, ports.Prober) in mockgen's layout, plus a
// plain no-op ports.Logger.
package testmocks

import (
	"testing"
	"time"

	"github.com/athebyme/linebalancer/internal/core/ports"
	"github.com/golang/mock/gomock"
)

func NewMockLogger(t *testing.T) *MockLogger {
	ctrl := gomock.NewController(t)
	return &MockLogger{ctrl: ctrl}
}

type MockLogger struct {
	ctrl *gomock.Controller
}

func (m *MockLogger) Debug(msg string, args ...any) {
	varArgs := append([]interface{}{msg}, args...)
	m.ctrl.Call(m, "Debug", varArgs...)
}

func (m *MockLogger) Info(msg string, args ...any) {
	varArgs := append([]interface{}{msg}, args...)
	m.ctrl.Call(m, "Info", varArgs...)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	varArgs := append([]interface{}{msg}, args...)
	m.ctrl.Call(m, "Warn", varArgs...)
}

func (m *MockLogger) Error(msg string, args ...any) {
	varArgs := append([]interface{}{msg}, args...)
	m.ctrl.Call(m, "Error", varArgs...)
}

func (m *MockLogger) With(args ...any) ports.Logger {
	ret := m.ctrl.Call(m, "With", args)
	return ret[0].(ports.Logger)
}

func (m *MockLogger) EXPECT() *MockLoggerExpect {
	return &MockLoggerExpect{m}
}

type MockLoggerExpect struct {
	*MockLogger
}

func (m *MockLoggerExpect) With(args ...interface{}) *MockLoggerWithCall {
	call := m.ctrl.RecordCall(m.MockLogger, "With", args...)
	return &MockLoggerWithCall{Call: call}
}

type MockLoggerWithCall struct {
	*gomock.Call
}

func (c *MockLoggerWithCall) Return(logger ports.Logger) *MockLoggerWithCall {
	c.Call = c.Call.Return(logger)
	return c
}

func (m *MockLoggerExpect) Info(msg interface{}, args ...interface{}) *gomock.Call {
	varArgs := append([]interface{}{msg}, args...)
	return m.ctrl.RecordCall(m.MockLogger, "Info", varArgs...)
}

func (m *MockLoggerExpect) Warn(msg interface{}, args ...interface{}) *gomock.Call {
	varArgs := append([]interface{}{msg}, args...)
	return m.ctrl.RecordCall(m.MockLogger, "Warn", varArgs...)
}

func (m *MockLoggerExpect) Error(msg interface{}, args ...interface{}) *gomock.Call {
	varArgs := append([]interface{}{msg}, args...)
	return m.ctrl.RecordCall(m.MockLogger, "Error", varArgs...)
}

func (m *MockLoggerExpect) Debug(msg interface{}, args ...interface{}) *gomock.Call {
	varArgs := append([]interface{}{msg}, args...)
	return m.ctrl.RecordCall(m.MockLogger, "Debug", varArgs...)
}

// NewNoopLogger returns a Logger that discards everything, for tests
// that need a real ports.Logger but don't care about assertions on it.
func NewNoopLogger() ports.Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)     {}
func (noopLogger) Info(string, ...any)      {}
func (noopLogger) Warn(string, ...any)      {}
func (noopLogger) Error(string, ...any)     {}
func (noopLogger) With(...any) ports.Logger { return noopLogger{} }

func NewMockProber(t *testing.T) *MockProber {
	ctrl := gomock.NewController(t)
	return &MockProber{ctrl: ctrl}
}

type MockProber struct {
	ctrl *gomock.Controller
}

func (m *MockProber) Probe(address string, port int, timeout time.Duration) (time.Duration, error) {
	ret := m.ctrl.Call(m, "Probe", address, port, timeout)
	var err error
	if ret[1] != nil {
		err = ret[1].(error)
	}
	return ret[0].(time.Duration), err
}

func (m *MockProber) EXPECT() *MockProberExpect {
	return &MockProberExpect{m}
}

type MockProberExpect struct {
	*MockProber
}

func (m *MockProberExpect) Probe(address, port, timeout interface{}) *MockProberProbeCall {
	call := m.ctrl.RecordCall(m.MockProber, "Probe", address, port, timeout)
	return &MockProberProbeCall{Call: call}
}

type MockProberProbeCall struct {
	*gomock.Call
}

func (c *MockProberProbeCall) Return(rtt time.Duration, err error) *MockProberProbeCall {
	c.Call = c.Call.Return(rtt, err)
	return c
}

func MockAny() gomock.Matcher {
	return gomock.Any()
}

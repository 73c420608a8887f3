package logging

import (
	"testing"
)

func TestWithReturnsIndependentLogger(t *testing.T) {
	base := New("debug", false)
	child := base.With("component", "test")
	if child == nil {
		t.Fatal("With returned nil")
	}
	// must not panic and must implement ports.Logger's full surface.
	child.Info("hello", "k", "v")
	child.Debug("hello", "k", "v")
	child.Warn("hello", "k", "v")
	child.Error("hello", "k", "v")
}

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	l := New("bogus-level", true)
	if l == nil {
		t.Fatal("New returned nil")
	}
	l.Info("should not panic")
}

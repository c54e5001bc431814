package store

import (
	"context"
	"sync"

	"github.com/ardnew/otgmode/port"
)

// Memory is an in-process mode store.
type Memory struct {
	mu   sync.RWMutex
	mode port.Mode
	set  bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// DefaultMode returns the stored mode, or port.ModeAuto.
func (m *Memory) DefaultMode(context.Context) (port.Mode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return port.ModeAuto, nil
	}
	return m.mode, nil
}

// SetDefaultMode stores mode. Invalid modes are rejected.
func (m *Memory) SetDefaultMode(_ context.Context, mode port.Mode) error {
	if _, err := encodeMode(mode); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.set = true
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

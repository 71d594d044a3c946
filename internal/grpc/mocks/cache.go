package mocks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockCacher is a mock implementation of the cache interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockCacher struct {
	GetFunc   func(ctx context.Context, key string, dest any) error
	SetFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	CloseFunc func() error

	mu      sync.Mutex
	setKeys []string
}

// Get implements the cache interface
func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return errors.New("cache miss")
}

// Set implements the cache interface
func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	m.mu.Lock()
	m.setKeys = append(m.setKeys, key)
	m.mu.Unlock()
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

// Close implements the cache interface
func (m *MockCacher) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// SetKeys returns the keys passed to Set so far, in call order.
func (m *MockCacher) SetKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.setKeys...)
}

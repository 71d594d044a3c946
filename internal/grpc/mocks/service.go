package mocks

import (
	"context"
	"errors"

	"github.com/godilite/salesrace/internal/service"
)

// MockKeyframeService is a mock implementation of the KeyframeService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockKeyframeService struct {
	BarRaceFunc func(ctx context.Context, ref string) (service.BarRace, error)
	TreeMapFunc func(ctx context.Context, ref string, width, height float64) (service.TreeMap, error)
}

// BarRace implements the KeyframeService interface
func (m *MockKeyframeService) BarRace(ctx context.Context, ref string) (service.BarRace, error) {
	if m.BarRaceFunc != nil {
		return m.BarRaceFunc(ctx, ref)
	}
	return service.BarRace{}, errors.New("BarRaceFunc not implemented")
}

// TreeMap implements the KeyframeService interface
func (m *MockKeyframeService) TreeMap(ctx context.Context, ref string, width, height float64) (service.TreeMap, error) {
	if m.TreeMapFunc != nil {
		return m.TreeMapFunc(ctx, ref, width, height)
	}
	return service.TreeMap{}, errors.New("TreeMapFunc not implemented")
}

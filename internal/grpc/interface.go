package grpc

import (
	"context"

	"github.com/godilite/salesrace/internal/service"
)

type KeyframeService interface {
	BarRace(ctx context.Context, ref string) (service.BarRace, error)
	TreeMap(ctx context.Context, ref string, width, height float64) (service.TreeMap, error)
}

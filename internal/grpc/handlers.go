package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/godilite/salesrace/api/v1"
	"github.com/godilite/salesrace/internal/ledger"
	"github.com/godilite/salesrace/internal/service"
	"github.com/godilite/salesrace/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 60 * time.Second
	defaultWidth         = 960
	defaultHeight        = 540
)

type CacheKeyType string

const (
	cacheKeyBarRace CacheKeyType = "grpc:bar_race"
	cacheKeyTreeMap CacheKeyType = "grpc:tree_map"
)

type GRPCHandlers struct {
	pb.UnimplementedKeyframeServer
	keyframes     KeyframeService
	cache         *cache.ReadThrough
	logger        *zap.Logger
	defaultSource string
	width         float64
	height        float64
}

type Option func(*GRPCHandlers)

// WithDefaultSource is used for requests that name no source.
func WithDefaultSource(ref string) Option {
	return func(h *GRPCHandlers) { h.defaultSource = ref }
}

// WithTreeMapSize sets the layout area used when a request gives none.
func WithTreeMapSize(width, height float64) Option {
	return func(h *GRPCHandlers) {
		if width > 0 && height > 0 {
			h.width, h.height = width, height
		}
	}
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(keyframes KeyframeService, c cache.Cacher, logger *zap.Logger, ttl time.Duration, opts ...Option) *GRPCHandlers {
	if keyframes == nil {
		panic("nil KeyframeService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	h := &GRPCHandlers{
		keyframes: keyframes,
		cache:     cache.NewReadThrough(c, ttl, logger),
		logger:    logger.Named("grpc-handler"),
		width:     defaultWidth,
		height:    defaultHeight,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until pending cache writes have finished.
func (s *GRPCHandlers) Wait() {
	s.cache.Wait()
}

func (s *GRPCHandlers) source(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()[pb.FieldSource]
	if !ok {
		return s.defaultSource, nil
	}
	str, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Error(codes.InvalidArgument, "source must be a string")
	}
	if ref := strings.TrimSpace(str.StringValue); ref != "" {
		return ref, nil
	}
	return s.defaultSource, nil
}

func (s *GRPCHandlers) dimension(req *structpb.Struct, field string, fallback float64) (float64, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return fallback, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", field)
	}
	if n.NumberValue <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be positive", field)
	}
	return n.NumberValue, nil
}

func normalizeKey(prefix CacheKeyType, ref string, dims ...float64) string {
	key := fmt.Sprintf("%s:%s", prefix, ref)
	if len(dims) == 2 {
		key += ":" + strconv.FormatFloat(dims[0], 'f', -1, 64) + "x" + strconv.FormatFloat(dims[1], 'f', -1, 64)
	}
	return key
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrMissingSource):
		return status.Error(codes.InvalidArgument, "source is required")
	case errors.Is(err, ledger.ErrUnsupportedSource),
		errors.Is(err, ledger.ErrInvalidTable),
		errors.Is(err, service.ErrInvalidDimensions):
		s.logger.Info("rejected request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrSourceFailure):
		s.logger.Error("ledger source failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "ledger source error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

// toStruct converts a JSON-tagged DTO into its Struct form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GRPCHandlers) GetBarRace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := s.source(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	race, err := cache.FindAndCache(ctx, s.cache, normalizeKey(cacheKeyBarRace, ref), func(fetchCtx context.Context) (service.BarRace, error) {
		return s.keyframes.BarRace(fetchCtx, ref)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetBarRace", err)
	}

	out, err := toStruct(race)
	if err != nil {
		return nil, s.handleError(ctx, "GetBarRace", err)
	}
	return out, nil
}

func (s *GRPCHandlers) GetTreeMap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := s.source(req)
	if err != nil {
		return nil, err
	}
	width, err := s.dimension(req, pb.FieldWidth, s.width)
	if err != nil {
		return nil, err
	}
	height, err := s.dimension(req, pb.FieldHeight, s.height)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	key := normalizeKey(cacheKeyTreeMap, ref, width, height)
	tm, err := cache.FindAndCache(ctx, s.cache, key, func(fetchCtx context.Context) (service.TreeMap, error) {
		return s.keyframes.TreeMap(fetchCtx, ref, width, height)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetTreeMap", err)
	}

	out, err := toStruct(tm)
	if err != nil {
		return nil, s.handleError(ctx, "GetTreeMap", err)
	}
	return out, nil
}

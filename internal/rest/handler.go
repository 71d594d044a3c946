// Package rest serves the keyframe API over HTTP with gin.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/ledger"
	"github.com/godilite/salesrace/internal/service"
	"github.com/godilite/salesrace/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	requestTimeout       = 60 * time.Second
	defaultWidth         = 960
	defaultHeight        = 540

	// statusClientClosedRequest is reported when the caller went away.
	statusClientClosedRequest = 499
)

type KeyframeService interface {
	BarRace(ctx context.Context, ref string) (service.BarRace, error)
	TreeMap(ctx context.Context, ref string, width, height float64) (service.TreeMap, error)
}

// Handler serves the keyframe routes.
type Handler struct {
	keyframes     KeyframeService
	cache         *cache.ReadThrough
	logger        *zap.Logger
	defaultSource string
	width         float64
	height        float64
}

type HandlerOption func(*Handler)

func WithDefaultSource(ref string) HandlerOption {
	return func(h *Handler) { h.defaultSource = ref }
}

func WithTreeMapSize(width, height float64) HandlerOption {
	return func(h *Handler) {
		if width > 0 && height > 0 {
			h.width, h.height = width, height
		}
	}
}

func NewHandler(keyframes KeyframeService, c cache.Cacher, logger *zap.Logger, ttl time.Duration, opts ...HandlerOption) *Handler {
	if keyframes == nil {
		panic("nil KeyframeService provided to NewHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	h := &Handler{
		keyframes: keyframes,
		cache:     cache.NewReadThrough(c, ttl, logger),
		logger:    logger.Named("http-handler"),
		width:     defaultWidth,
		height:    defaultHeight,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the keyframe routes under router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/keyframes/bar-race", h.GetBarRace)
	router.GET("/keyframes/tree-map", h.GetTreeMap)
}

// Wait blocks until pending cache writes have finished.
func (h *Handler) Wait() {
	h.cache.Wait()
}

func (h *Handler) source(c *gin.Context) string {
	if ref := strings.TrimSpace(c.Query("source")); ref != "" {
		return ref
	}
	return h.defaultSource
}

func dimension(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return v, nil
}

func cacheKey(kind, ref string, dims ...float64) string {
	key := "http:" + kind + ":" + ref
	if len(dims) == 2 {
		key += ":" + strconv.FormatFloat(dims[0], 'f', -1, 64) + "x" + strconv.FormatFloat(dims[1], 'f', -1, 64)
	}
	return key
}

func (h *Handler) writeError(ctx context.Context, c *gin.Context, op string, err error) {
	switch ctx.Err() {
	case context.Canceled:
		h.logger.Warn("request canceled", zap.String("op", op))
		c.JSON(statusClientClosedRequest, gin.H{"error": "request canceled"})
		return
	case context.DeadlineExceeded:
		h.logger.Warn("request timeout", zap.String("op", op))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
		return
	}

	switch {
	case errors.Is(err, service.ErrMissingSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
	case errors.Is(err, ledger.ErrUnsupportedSource),
		errors.Is(err, ledger.ErrInvalidTable),
		errors.Is(err, service.ErrInvalidDimensions):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSourceFailure):
		h.logger.Error("ledger source failure", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger source error"})
	default:
		h.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s failed: %v", op, err)})
	}
}

// GetBarRace GET /api/keyframes/bar-race?source=
func (h *Handler) GetBarRace(c *gin.Context) {
	ref := h.source(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	race, err := cache.FindAndCache(ctx, h.cache, cacheKey("bar_race", ref), func(fetchCtx context.Context) (service.BarRace, error) {
		return h.keyframes.BarRace(fetchCtx, ref)
	})
	if err != nil {
		h.writeError(ctx, c, "GetBarRace", err)
		return
	}
	c.JSON(http.StatusOK, race)
}

// GetTreeMap GET /api/keyframes/tree-map?source=&width=&height=
func (h *Handler) GetTreeMap(c *gin.Context) {
	ref := h.source(c)
	width, err := dimension(c, "width", h.width)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	height, err := dimension(c, "height", h.height)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	key := cacheKey("tree_map", ref, width, height)
	tm, err := cache.FindAndCache(ctx, h.cache, key, func(fetchCtx context.Context) (service.TreeMap, error) {
		return h.keyframes.TreeMap(fetchCtx, ref, width, height)
	})
	if err != nil {
		h.writeError(ctx, c, "GetTreeMap", err)
		return
	}
	c.JSON(http.StatusOK, tm)
}

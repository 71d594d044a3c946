package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	host        string
	port        int
	logger      *zap.Logger
	release     bool
	readTimeout time.Duration
}

type Option func(*Options)

func WithHost(host string) Option {
	return func(o *Options) { o.host = host }
}

func WithPort(port int) Option {
	return func(o *Options) { o.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithReleaseMode turns off gin's debug output.
func WithReleaseMode(enabled bool) Option {
	return func(o *Options) { o.release = enabled }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) { o.readTimeout = d }
}

// Server is the HTTP front of the keyframe API.
type Server struct {
	router *gin.Engine
	srv    *http.Server
	lis    net.Listener
	logger *zap.Logger
}

// New builds the router, mounts h under /api and binds the listener.
func New(h *Handler, opts ...Option) (*Server, error) {
	options := &Options{
		port:        8080,
		logger:      zap.NewNop(),
		readTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.port < 0 || options.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", options.port)
	}
	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	{
		h.RegisterRoutes(api)
	}

	addr := net.JoinHostPort(options.host, strconv.Itoa(options.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		router: router,
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: options.readTimeout,
		},
		lis:    lis,
		logger: logger.Named("http-server"),
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("HTTP server starting", zap.String("addr", s.lis.Addr().String()))
	go func() {
		if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("forced shutdown due to timeout", zap.Error(err))
		_ = s.srv.Close()
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestIDMiddleware keeps a caller supplied request ID or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggingMiddleware logs each request the way the gRPC interceptor does.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_addr", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP request failed", fields...)
			return
		}
		logger.Info("HTTP request completed", fields...)
	}
}

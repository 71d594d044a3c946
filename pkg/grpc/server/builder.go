package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultPort = 50051

type Option func(*config)

type config struct {
	host         string
	port         int
	logger       *zap.Logger
	reflection   bool
	logging      bool
	recovery     bool
	maxRecv      int
	maxSend      int
	interceptors []grpc.UnaryServerInterceptor
}

// WithHost binds the listener to one interface. Empty listens on all.
func WithHost(host string) Option {
	return func(c *config) { c.host = host }
}

// WithPort sets the listening port. 0 picks a free one.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithReflection(enabled bool) Option {
	return func(c *config) { c.reflection = enabled }
}

// WithUnaryInterceptors appends interceptors after the built-in ones.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(c *config) { c.interceptors = append(c.interceptors, interceptors...) }
}

func WithLogging(enabled bool) Option {
	return func(c *config) { c.logging = enabled }
}

func WithRecovery(enabled bool) Option {
	return func(c *config) { c.recovery = enabled }
}

// WithMaxMessageSize sets the message size limits in bytes. Zero keeps the
// grpc default.
func WithMaxMessageSize(recv, send int) Option {
	return func(c *config) {
		c.maxRecv = recv
		c.maxSend = send
	}
}

// serverOptions turns the config into grpc options. Recovery runs outermost
// so a panic in any later interceptor is still caught.
func (c *config) serverOptions() []grpc.ServerOption {
	var opts []grpc.ServerOption
	if c.maxRecv > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(c.maxRecv))
	}
	if c.maxSend > 0 {
		opts = append(opts, grpc.MaxSendMsgSize(c.maxSend))
	}

	var chain []grpc.UnaryServerInterceptor
	if c.recovery {
		chain = append(chain, RecoveryInterceptor(c.logger))
	}
	if c.logging {
		chain = append(chain, LoggingInterceptor(c.logger))
	}
	chain = append(chain, c.interceptors...)
	if len(chain) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(chain...))
	}
	return opts
}

// Server is a grpc.Server with a health service that tracks every service
// registered through it.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *zap.Logger

	mu       sync.Mutex
	services []string
}

func New(opts ...Option) (*Server, error) {
	c := &config{port: defaultPort, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.port < 0 || c.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", c.port)
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	gs := grpc.NewServer(c.serverOptions()...)
	if c.reflection {
		reflection.Register(gs)
	}
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpc:   gs,
		health: hs,
		lis:    lis,
		logger: c.logger.Named("grpc-server"),
	}, nil
}

var _ grpc.ServiceRegistrar = (*Server)(nil)

// RegisterService adds impl under desc and reports the service as serving.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl any) {
	s.grpc.RegisterService(desc, impl)

	s.mu.Lock()
	s.services = append(s.services, desc.ServiceName)
	s.mu.Unlock()

	s.health.SetServingStatus(desc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("registered service", zap.String("service", desc.ServiceName))
}

// Services lists the registered service names in registration order.
func (s *Server) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.services...)
}

// Drain reports every service, and the server as a whole, as not serving.
// In-flight and new calls are still handled until Shutdown.
func (s *Server) Drain() {
	for _, name := range append(s.Services(), "") {
		s.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	s.logger.Info("health set to not serving")
}

// Start serves in the background.
func (s *Server) Start() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("gRPC server listening", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.grpc.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown drains health and stops gracefully, forcing a stop when ctx ends
// first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Drain()

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		s.logger.Warn("gRPC server stopped before pending calls finished")
		return ctx.Err()
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

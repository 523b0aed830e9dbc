package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/Playground/backend/internal/api/http"
	"github.com/GriffinCanCode/Playground/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Playground/backend/internal/api/ws"
	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	pool    *sandbox.Pool
	states  *state.Manager
	stream  *ws.Handler
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing Playground Server",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
		zap.Duration("sandbox_timeout", cfg.Sandbox.Timeout),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("playground", logger.Logger)

	transpiler, err := NewTranspiler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transpiler: %w", err)
	}

	sandboxCfg := SandboxConfig(cfg)

	var pool *sandbox.Pool
	if cfg.Sandbox.PoolSize > 0 {
		pool, err = sandbox.NewPool(sandboxCfg, logger.Sandbox(), cfg.Sandbox.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create context pool: %w", err)
		}
		logger.Info("Warm context pool ready", zap.Int("size", cfg.Sandbox.PoolSize))
	}

	store, err := OpenStore(cfg)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	states := state.NewManager(store, cfg.Store.Namespace, logger.Named("state")).WithMetrics(metrics)

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Sandbox:    sandboxCfg,
		Pool:       pool,
		Transpiler: transpiler,
		State:      states,
		Share:      NewShareCodec(cfg),
		Metrics:    metrics,
		Tracer:     tracer,
		Logger:     logger.Logger,
	})
	stream := ws.NewHandler(sandboxCfg, handlers.RunnerOptions(), states, logger.Named("ws")).
		WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	router.Use(middleware.BodyLimit(utils.MaxBodySize))

	handlers.Routes(router)
	router.GET("/stream", stream.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handler, err := middleware.Compress(router)
	if err != nil {
		return nil, fmt.Errorf("failed to build compression handler: %w", err)
	}

	s := &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		pool:    pool,
		states:  states,
		stream:  stream,
	}
	s.httpSrv.RegisterOnShutdown(stream.Shutdown)

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the pool, the store and the tracer
func (s *Server) Close() error {
	var errs []error

	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context pool: %w", err))
		}
	}
	if err := s.states.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close state store: %w", err))
	}
	s.tracer.Close()

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Shutdown incomplete", zap.Error(err))
		return err
	}
	s.logger.Info("Server closed")
	return nil
}

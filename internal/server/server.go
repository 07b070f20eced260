package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/motionbridge/internal/api/http"
	"github.com/GriffinCanCode/motionbridge/internal/api/middleware"
	"github.com/GriffinCanCode/motionbridge/internal/api/ws"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
	"github.com/GriffinCanCode/motionbridge/internal/script"
	"github.com/GriffinCanCode/motionbridge/internal/stage"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wraps the devtools HTTP server and the stage it drives.
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	stage   *stage.Stage
	fetcher *scene.Fetcher
	tracer  *tracing.Tracer
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
}

// New builds the stage and the router. Nothing listens until Run.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	metrics := monitoring.NewMetrics()
	st, err := stage.New(stage.Config{
		FrameInterval: cfg.Runtime.FrameInterval,
		Sanitize:      cfg.Runtime.SanitizePages,
		Script: script.Config{
			Timeout:          cfg.Runtime.ScriptTimeout,
			MaxCallStackSize: cfg.Runtime.MaxCallStackSize,
			EnableConsole:    true,
			MaxConsole:       script.DefaultConfig().MaxConsole,
		},
	}, stage.WithLogger(logger.Logger), stage.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	fetcher := scene.NewFetcher(scene.WithFetchLogger(logger.Component("scene")))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	tracer := tracing.New("devtools", logger.Component("trace"))

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(corsCfg))
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

	apihttp.NewHandlers(st, fetcher, logger.Component("api"), apihttp.WithLevelController(logger)).Register(router)
	router.GET("/ws", ws.NewHandler(st.Tree(), metrics, logger.Component("ws")).HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s := &Server{
		config:  cfg,
		logger:  logger,
		stage:   st,
		fetcher: fetcher,
		tracer:  tracer,
		router:  router,
		handler: router,
	}
	if cfg.Server.Compress {
		s.handler = compress(router)
	}

	logger.Info("Server initialized",
		zap.Duration("frame_interval", cfg.Runtime.FrameInterval),
		zap.Duration("script_timeout", cfg.Runtime.ScriptTimeout),
		zap.Bool("compress", cfg.Server.Compress),
	)
	return s, nil
}

// compress gzips responses except WebSocket upgrades, which need the raw
// connection.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stage returns the stage driven by the server.
func (s *Server) Stage() *stage.Stage {
	return s.stage
}

// LoadScenes plays the scenes named by the configuration: every file
// matching SCENE_PATH in path order, then SCENE_URL. It stops at the first
// failure.
func (s *Server) LoadScenes(ctx context.Context) error {
	var scenes []*scene.Scene
	if s.config.Scene.Path != "" {
		loaded, err := scene.LoadGlob(s.config.Scene.Path)
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			s.logger.Warn("No scenes match path", zap.String("path", s.config.Scene.Path))
		}
		scenes = append(scenes, loaded...)
	}
	if s.config.Scene.URL != "" {
		fetched, err := s.fetcher.Fetch(ctx, s.config.Scene.URL)
		if err != nil {
			return err
		}
		scenes = append(scenes, fetched)
	}

	for _, sc := range scenes {
		if _, err := s.stage.Play(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

// Close stops the stage and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()
	if err := s.stage.Close(); err != nil {
		s.logger.Error("Failed to close stage", zap.Error(err))
		return fmt.Errorf("failed to close stage: %w", err)
	}
	_ = s.logger.Sync()
	return nil
}

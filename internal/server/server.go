package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"wsecho/config"
	"wsecho/internal/handler"
	"wsecho/internal/middleware"
	"wsecho/internal/redis"
	"wsecho/internal/route"
	"wsecho/internal/transport/httpdto"
	"wsecho/internal/websocket"
	"wsecho/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	redis      *goredis.Client
	hub        *websocket.Hub
	ws         *websocket.Handler
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	hub := websocket.NewHub()
	ws := websocket.NewHandler(hub, websocket.Options{
		ReadLimit:      cfg.WSReadLimit,
		PongWait:       cfg.WSPongWait,
		WriteWait:      cfg.WSWriteWait,
		AllowedOrigins: cfg.WSAllowedOrigins,
	}, websocket.NewWebSocketLogger(l.Logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		hub:    hub,
		ws:     ws,
	}
	if cfg.RedisAddr != "" {
		s.redis = redis.NewClient(redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return s
}

// Engine exposes the gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Routes builds the registration table for every endpoint of the service.
func (s *Server) Routes() *route.Table {
	var limiter middleware.HandshakeLimiter
	if s.redis != nil {
		limiter = redis.NewRateLimiter(s.redis, redis.RateLimitConfig{
			ConnectLimit:  s.config.WSConnectLimit,
			ConnectWindow: s.config.WSConnectWindow,
		})
	}
	items := handler.NewItemHandler()

	table := route.NewTable()
	table.GET("/ping", "ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	table.GET("/health", "health", s.health)
	table.GET("/", "read_root", items.Root)
	table.GET("/items/:item_id", "read_item", items.Read)
	table.PUT("/items/:item_id", "update_item", items.Update)
	table.GET("/demo", "demo_page", handler.Demo)
	table.GET("/ws", "websocket_echo", middleware.WebSocketRateLimitMiddleware(limiter), s.ws.Connect)
	return table
}

func (s *Server) SetupRoutes(table *route.Table) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	table.Mount(s.engine)
}

func (s *Server) health(c *gin.Context) {
	if s.redis != nil {
		if err := redis.Ping(c.Request.Context(), s.redis); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), httpdto.CodeUnhealthy))
			return
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{
		"status":      "healthy",
		"connections": s.hub.Count(),
	}))
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener, without signal handling.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server is running on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Quitting signal received.. Shutting down within %s", s.config.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("Error in the graceful shutdown of the server: %s", err)
		return err
	}
	// hijacked WebSocket connections are not tracked by http.Server
	if err := s.ws.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("WebSocket sessions did not finish: %s", err)
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}

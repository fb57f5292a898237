package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pivot_backtest/pkg/logger"
)

// Server: HTTP API над прогонами.
type Server struct {
	engine *gin.Engine
	server *http.Server
}

func NewServer(h *Handler, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware())

	api := engine.Group("/api")
	{
		api.GET("/runs/last", h.GetLastRun)
		api.GET("/runs/last/trades", h.GetTrades)
		api.GET("/runs/last/quality", h.GetQuality)
		api.POST("/runs", h.TriggerRun)
	}

	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Serve(ln net.Listener) error {
	logger.Info("[API] listening on %s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Debug("[API] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

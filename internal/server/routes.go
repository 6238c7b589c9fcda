package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wbkim0504/pms-emul/internal/observability"
)

// Router returns the HTTP status surface, built once.
func (s *Server) Router() *gin.Engine {
	s.routerOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		r.Use(observability.RequestLogger(s.logger, s.cfg.Addr))
		r.Use(observability.RequestMetricsMiddleware())
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
		s.RegisterRoutes(r)
		s.router = r
	})
	return s.router
}

func (s *Server) RegisterRoutes(routes gin.IRoutes) {
	routes.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"connected": s.registry.Len(),
			"capacity":  s.registry.Capacity(),
			"draining":  s.draining.Load(),
		})
	})

	routes.GET("/clients", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"clients": s.registry.Snapshot(),
		})
	})

	// Per-connection selectors are private to their handlers; only the
	// shared one is reported.
	routes.GET("/selector", func(c *gin.Context) {
		if s.cfg.SelectorScope == ScopeConnection {
			c.JSON(http.StatusOK, gin.H{"scope": s.cfg.SelectorScope})
			return
		}
		sel := s.selector.Load()
		c.JSON(http.StatusOK, gin.H{
			"scope":    s.cfg.SelectorScope,
			"kind":     sel.Kind.String(),
			"sub_unit": sel.SubUnit,
			"instance": sel.Instance,
		})
	})

	routes.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", addr).Msg("http status listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

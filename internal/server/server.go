// Package server exposes the document pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/config"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/docgen"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/excel"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/handle"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ocr"
)

const shutdownTimeout = 10 * time.Second

// sweepInterval controls how often leaked handles are collected.
const sweepInterval = time.Minute

// Server wires the pipeline services behind the HTTP routes.
type Server struct {
	cfg       *config.Config
	generator *docgen.Generator
	store     *handle.Store
	ocrClient *ocr.Client
	exporter  *excel.Exporter
	logger    *zap.Logger
	engine    *gin.Engine
}

// New builds the server and registers all routes. ocrClient may be nil when
// the document-understanding service is not configured; the analyze route
// then reports the feature as unavailable.
func New(cfg *config.Config, generator *docgen.Generator, store *handle.Store, ocrClient *ocr.Client, exporter *excel.Exporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		generator: generator,
		store:     store,
		ocrClient: ocrClient,
		exporter:  exporter,
		logger:    logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.limitBodySize())

	engine.GET("/healthz", s.health)

	api := engine.Group("/api")
	api.POST("/documents/:template", s.generateDocument)
	api.POST("/ledger/aggregate", s.aggregateLedger)
	api.POST("/payments/slip", s.buildPaymentSlip)
	api.POST("/excel/budget-sheet", s.exportBudgetSheet)
	api.POST("/ocr", s.analyzeDocument)

	engine.GET("/documents/:id", s.downloadDocument)
	engine.DELETE("/documents/:id", s.revokeDocument)

	s.engine = engine
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then drains in-flight requests.
// Leaked document handles are swept periodically while the server runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Address(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("server listening", zap.String("address", s.cfg.Address()))

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.store.Sweep(s.cfg.HandleTTL)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			s.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

// requestLogger records one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// limitBodySize caps request bodies at the configured upload limit.
func (s *Server) limitBodySize() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"handles": s.store.Live(),
	})
}

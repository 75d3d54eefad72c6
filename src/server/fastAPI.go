package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"
	"volume-spike-detector/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config        *models.MConfig
	Logger        *logger.Logger
	Control       interfaces.IDetectorControl
	Summary       interfaces.ISummaryControl
	Tokens        interfaces.ITokenStore
	MetricsSource interfaces.IMetricsSource
	Metrics       *observability.Metrics

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients     map[*dashboardClient]struct{}
	broadcast   chan models.MSpikeEvent // Buffered so Broadcast never blocks the dispatcher
	register    chan *dashboardClient
	unregister  chan *dashboardClient
	history     chan historyRequest
	done        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once
	connections atomic.Int64

	// Recent alerts replayed to new clients
	recent *utils.RingBuffer
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(
	cfg *models.MConfig,
	control interfaces.IDetectorControl,
	summary interfaces.ISummaryControl,
	tokens interfaces.ITokenStore,
	metricsSource interfaces.IMetricsSource,
	metrics *observability.Metrics,
	logger *logger.Logger,
) *FastAPIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:        cfg,
		Logger:        logger,
		Control:       control,
		Summary:       summary,
		Tokens:        tokens,
		MetricsSource: metricsSource,
		Metrics:       metrics,
		engine:        gin.New(),
		clients:       make(map[*dashboardClient]struct{}),
		broadcast:     make(chan models.MSpikeEvent, 256),
		register:      make(chan *dashboardClient),
		unregister:    make(chan *dashboardClient),
		history:       make(chan historyRequest),
		done:          make(chan struct{}),
		recent:        utils.NewRingBuffer(cfg.Detector.RecentAlerts),
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.getHealth)
		api.GET("/status", s.getStatus)
		api.GET("/alerts", s.getAlerts)

		api.POST("/detector/start", s.postStart)
		api.POST("/detector/stop", s.postStop)
		api.POST("/detector/restart", s.postRestart)

		api.POST("/summary/send", s.postSummarySend)
		api.POST("/summary/done", s.postSummaryDone)

		api.POST("/auth/token", s.postToken)
	}

	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.serveDashboard)
}

// Handler returns the router with the websocket hub running.
func (s *FastAPIServer) Handler() http.Handler {
	s.startHub()
	return s.engine
}

func (s *FastAPIServer) startHub() {
	s.hubOnce.Do(func() { go s.runHub() })
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Shutdown is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.startHub()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	var latest int64
	if evs := s.recent.GetLatest(1); len(evs) == 1 {
		latest = evs[0].ObservedAt.UnixMilli()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"detector":     s.Control.Status().State,
		"connections":  s.connectionCount(),
		"latest_alert": latest,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStatus(c *gin.Context) {
	resp := gin.H{"supervisor": s.Control.Status()}
	if s.MetricsSource != nil {
		resp["processing_metrics"] = s.MetricsSource.ProcessingMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getAlerts(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), s.recent.Capacity())
	c.JSON(http.StatusOK, s.recent.GetLatest(limit))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postStart(c *gin.Context) {
	s.command(c, "start", s.Control.RequestStart)
}

func (s *FastAPIServer) postStop(c *gin.Context) {
	s.command(c, "stop", s.Control.RequestStop)
}

func (s *FastAPIServer) postRestart(c *gin.Context) {
	s.command(c, "restart", s.Control.RequestRestart)
}

func (s *FastAPIServer) command(c *gin.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	s.Logger.Info("Accepted %s command from %s", name, c.ClientIP())
	c.JSON(http.StatusAccepted, gin.H{"accepted": name})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postSummarySend(c *gin.Context) {
	if s.Summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary disabled"})
		return
	}
	s.Summary.SendNow()
	c.JSON(http.StatusAccepted, gin.H{"accepted": "send"})
}

func (s *FastAPIServer) postSummaryDone(c *gin.Context) {
	if s.Summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary disabled"})
		return
	}
	s.Summary.DoneForToday()
	c.JSON(http.StatusOK, gin.H{"accepted": "done"})
}

// -----------------------------------------------------------------------------

type tokenRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

func (s *FastAPIServer) postToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_token is required"})
		return
	}
	if err := s.Tokens.SaveToken(req.AccessToken); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

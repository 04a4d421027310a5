// Package server exposes the HTTP surface: the Meetstream webhook, the
// bot and summary API, the WebSocket event stream, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verimeet/verimeet/pkg/agent"
	"github.com/verimeet/verimeet/pkg/buildinfo"
	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/integrations/meetstream"
	"github.com/verimeet/verimeet/pkg/logging"
)

// BotCreator sends bots into meetings.
type BotCreator interface {
	CreateBot(ctx context.Context, meetingURL, botName string) (*meetstream.Bot, error)
	IsConfigured() bool
}

// Config holds HTTP server settings.
type Config struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// Server wires the meeting pipeline to HTTP.
type Server struct {
	cfg    Config
	agent  *agent.Agent
	bots   BotCreator
	hub    *Hub
	log    logging.Logger
	engine *gin.Engine
}

// New creates the HTTP server. A nil bots client disables the create-bot
// endpoint with a clear error instead of a panic.
func New(cfg Config, a *agent.Agent, bots BotCreator, hub *Hub, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:   cfg,
		agent: a,
		bots:  bots,
		hub:   hub,
		log:   log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())
	engine.Use(s.cors())

	engine.GET("/", s.handleHealth)
	engine.POST("/webhook/meetstream", s.handleWebhook)
	engine.POST("/api/create-bot", s.handleCreateBot)
	engine.GET("/api/summary", s.handleSummary)
	engine.GET("/api/sessions/:bot_id", s.handleSession)
	engine.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logging.F("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logging.F("method", c.Request.Method),
			logging.F("path", c.Request.URL.Path),
			logging.F("status", c.Writer.Status()),
			logging.F("latency_ms", time.Since(start).Milliseconds()))
	}
}

func (s *Server) cors() gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(s.cfg.AllowOrigins))
	for _, o := range s.cfg.AllowOrigins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "VeriMeet",
		"version": buildinfo.Get().Version,
	})
}

// webhookPayload is the Meetstream callback body. Fields are populated
// depending on event_type.
type webhookPayload struct {
	EventType    string `json:"event_type"`
	BotID        string `json:"bot_id"`
	Transcript   string `json:"transcript"`
	MeetingID    string `json:"meeting_id"`
	MeetingTitle string `json:"meeting_title"`
	MeetingURL   string `json:"meeting_url"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid JSON body"})
		return
	}

	s.log.Info("webhook received",
		logging.F("event_type", payload.EventType),
		logging.F("bot_id", payload.BotID))

	switch payload.EventType {
	case "transcript":
		if payload.Transcript == "" {
			// Empty transcript frames are acknowledged and ignored.
			c.JSON(http.StatusOK, gin.H{"status": "received"})
			return
		}
		if _, err := s.agent.ProcessTranscript(c.Request.Context(), payload.BotID, payload.Transcript); err != nil {
			s.webhookError(c, err)
			return
		}

	case "meeting_ended":
		if _, err := s.agent.FinalizeMeeting(c.Request.Context(), payload.BotID, payload.MeetingTitle); err != nil {
			s.webhookError(c, err)
			return
		}

	case "bot_joined":
		session := s.agent.Registry().GetOrCreate(payload.BotID)
		session.SetMeetingURL(payload.MeetingURL)

	default:
		s.log.Warn("unhandled webhook event", logging.F("event_type", payload.EventType))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (s *Server) webhookError(c *gin.Context, err error) {
	s.log.Error("webhook processing failed", logging.Err(err))
	status := http.StatusInternalServerError
	if errors.Is(err, vmerrors.ErrInvalidState) {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"status": "error", "error": err.Error()})
}

type createBotRequest struct {
	MeetingURL string `json:"meeting_url"`
	BotName    string `json:"bot_name"`
}

func (s *Server) handleCreateBot(c *gin.Context) {
	var req createBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	if req.MeetingURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "meeting_url is required"})
		return
	}
	if s.bots == nil || !s.bots.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "meetstream is not configured"})
		return
	}

	bot, err := s.bots.CreateBot(c.Request.Context(), req.MeetingURL, req.BotName)
	if err != nil {
		s.log.Error("create bot", logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	session := s.agent.Registry().GetOrCreate(bot.ID)
	session.SetMeetingURL(req.MeetingURL)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"bot_id":      bot.ID,
		"status":      bot.Status,
		"meeting_url": req.MeetingURL,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	session := s.agent.Registry().Latest()
	if botID := c.Query("bot_id"); botID != "" {
		session = s.agent.Registry().Lookup(botID)
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "No active meeting session"})
		return
	}
	text := session.Summary()
	if text == "" {
		text = "No summary yet."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": text})
}

func (s *Server) handleSession(c *gin.Context) {
	session := s.agent.Registry().Lookup(c.Param("bot_id"))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "unknown bot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"bot_id":         session.BotID(),
		"state":          session.State(),
		"meeting_url":    session.MeetingURL(),
		"segments":       len(session.Segments()),
		"facts_checked":  len(session.FactChecks()),
		"facts_verified": session.VerifiedCount(),
		"intents":        session.IntentCount(),
		"summary":        session.Summary(),
	})
}

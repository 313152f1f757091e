package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"cgt-timeline-backend/internal/analysis"
	"cgt-timeline-backend/internal/auth"
	"cgt-timeline-backend/internal/board"
	"cgt-timeline-backend/internal/cache"
	"cgt-timeline-backend/internal/cch"
	"cgt-timeline-backend/internal/config"
	"cgt-timeline-backend/internal/handler"
)

// Server Fiber server wrapper
type Server struct {
	app             *fiber.App
	cfg             *config.Config
	db              *gorm.DB
	boards          *board.Manager
	authHandler     *handler.AuthHandler
	timelineHandler *handler.TimelineHandler
	analysisHandler *handler.AnalysisHandler
	boardHandler    *handler.BoardHandler
	boardWSHandler  *handler.BoardWSHandler
	cchHandler      *handler.CCHHandler
	reportHandler   *handler.ReportHandler
	healthHandler   *handler.HealthHandler
	jwtManager      *auth.JWTManager
}

// New creates a Server.
func New(cfg *config.Config, db *gorm.DB, redis *cache.RedisClient) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "CGT Timeline Backend",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // incompatible with WebSocket
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             10 * 1024 * 1024, // 10MB
		DisableStartupMessage: false,
	})

	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	analysisClient := analysis.NewClient(
		cfg.Analysis.BaseURL,
		cfg.Analysis.ResponseMode,
		cfg.Analysis.LLMProvider,
		cfg.Analysis.Timeout,
	)
	analysisClient.SetDemoDelay(cfg.Analysis.DemoDelay)
	if !analysisClient.Configured() {
		log.Println("ℹ️ Analysis API not configured, serving demo responses")
	}

	cchClient := cch.NewClient(cfg.CCH.BaseURL, cfg.CCH.Timeout)
	if !cchClient.Configured() {
		log.Println("ℹ️ CCH API not configured (verification disabled)")
	}

	boards := board.NewManager(cfg.Board.IdleTTL)

	return &Server{
		app:             app,
		cfg:             cfg,
		db:              db,
		boards:          boards,
		authHandler:     handler.NewAuthHandler(jwtManager, cfg.Auth),
		timelineHandler: handler.NewTimelineHandler(redis, cfg.Share.TTL, cfg.Server),
		analysisHandler: handler.NewAnalysisHandler(analysisClient, db),
		boardHandler:    handler.NewBoardHandler(boards, redis, analysisClient),
		boardWSHandler:  handler.NewBoardWSHandler(boards),
		cchHandler:      handler.NewCCHHandler(cchClient),
		reportHandler:   handler.NewReportHandler(db),
		healthHandler:   handler.NewHealthHandler(db, redis, analysisClient, cchClient),
		jwtManager:      jwtManager,
	}
}

// SetupMiddleware installs the middleware stack.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Australia/Sydney",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes registers all routes.
func (s *Server) SetupRoutes() {
	// Health
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Brute force protection on the login endpoint
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Adviser auth
	authGroup := s.app.Group("/auth")
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/refresh", authLimiter, s.authHandler.Refresh)
	authGroup.Post("/logout", auth.AuthMiddleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.Me)

	// Analysis
	s.app.Post("/api/calculate-cgt", s.analysisHandler.Calculate)

	// CCH verification
	s.app.Post("/api/cch/verify-and-compare", s.cchHandler.VerifyAndCompare)
	s.app.Get("/api/cch/health", s.cchHandler.Health)

	// Shared timelines
	timelineGroup := s.app.Group("/api/timeline")
	timelineGroup.Post("/save", s.timelineHandler.Save)
	timelineGroup.Get("/:shareId", s.timelineHandler.Get)
	timelineGroup.Put("/:shareId", s.timelineHandler.Update)
	timelineGroup.Delete("/:shareId", s.timelineHandler.Delete)

	// Board state (annotations, sections, verification flow)
	boardGroup := s.app.Group("/api/board/:shareId")
	boardGroup.Get("", s.boardHandler.State)
	boardGroup.Post("/range", s.boardHandler.SetRange)
	boardGroup.Post("/metrics", s.boardHandler.SetMetrics)

	boardGroup.Post("/notes", s.boardHandler.CreateNote)
	boardGroup.Get("/notes", s.boardHandler.ListNotes)
	boardGroup.Patch("/notes/:id", s.boardHandler.UpdateNote)
	boardGroup.Post("/notes/:id/move", s.boardHandler.MoveNote)
	boardGroup.Post("/notes/:id/front", s.boardHandler.BringNoteToFront)
	boardGroup.Post("/notes/:id/arrow", s.boardHandler.ToggleArrow)
	boardGroup.Put("/notes/:id/arrow", s.boardHandler.UpdateArrowTarget)
	boardGroup.Delete("/notes/:id", s.boardHandler.DeleteNote)

	boardGroup.Post("/drawings", s.boardHandler.CreateDrawing)
	boardGroup.Get("/drawings", s.boardHandler.ListDrawings)
	boardGroup.Delete("/drawings/:id", s.boardHandler.DeleteDrawing)

	boardGroup.Post("/sections", s.boardHandler.RegisterSection)
	boardGroup.Put("/sections", s.boardHandler.UpdateSection)
	boardGroup.Delete("/sections", s.boardHandler.DeregisterSection)

	boardGroup.Post("/alerts", s.boardHandler.SetAlerts)
	boardGroup.Get("/alerts", s.boardHandler.ListAlerts)
	boardGroup.Post("/alerts/proceed", s.boardHandler.Proceed)
	boardGroup.Post("/alerts/:id/resolve", s.boardHandler.ResolveAlert)
	boardGroup.Post("/alerts/:id/reopen", s.boardHandler.ReopenAlert)

	// Adviser-only report review
	reportGroup := s.app.Group("/api/reports", auth.AuthMiddleware(s.jwtManager), auth.AdviserOnly())
	reportGroup.Get("", s.reportHandler.List)
	reportGroup.Get("/:id", s.reportHandler.Get)
	reportGroup.Put("/:id/review", s.reportHandler.Review)
	reportGroup.Delete("/:id", s.reportHandler.Delete)

	// WebSocket upgrade gate
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Live board WebSocket
	s.app.Get("/ws/board/:shareId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		shareID := c.Params("shareId")
		if shareID == "" {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		c.Locals("shareId", shareID)

		return c.Next()
	}, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}))
}

// Start runs the server with graceful shutdown.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		s.boards.Close()
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 CGT Timeline Backend starting on %s", s.cfg.Server.Port)
	log.Printf("📡 Board WebSocket endpoint: ws://localhost%s/ws/board/:shareId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	s.boards.Close()
	return s.app.ShutdownWithTimeout(30 * time.Second)
}

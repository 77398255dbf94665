package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/config"
	"github.com/emilythestrangee/blogsocial/backend/internal/database"
	"github.com/emilythestrangee/blogsocial/backend/internal/handlers"
	"github.com/emilythestrangee/blogsocial/backend/internal/metrics"
	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/realtime"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg     *config.Config
	db      database.Service
	svc     *social.Service
	handler *handlers.Handler
	tokens  *middleware.Tokens
	hub     *realtime.Hub
	limiter *middleware.IPRateLimiter
	log     *slog.Logger
}

// NewServer wires the service, handlers and live hub on top of db.
func NewServer(cfg *config.Config, db database.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	hub := realtime.NewHub(log.With("component", "realtime"))
	svc := social.New(db.GetDB(), social.Options{
		FeedLimit: cfg.FeedLimit,
		Logger:    log,
		Notifier:  hub,
		Recorder:  metrics.Recorder{},
	})
	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	return &Server{
		cfg:     cfg,
		db:      db,
		svc:     svc,
		handler: handlers.NewHandler(svc, tokens, log),
		tokens:  tokens,
		hub:     hub,
		limiter: middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		log:     log,
	}
}

// Service exposes the domain service, mainly for the CLI.
func (s *Server) Service() *social.Service {
	return s.svc
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.log))
	r.Use(metrics.Middleware())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAll(s.cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", s.hub.ServeWS)

	auth := middleware.AuthMiddleware(s.tokens, s.svc)
	optional := middleware.OptionalAuth(s.tokens, s.svc)
	limit := middleware.RateLimit(s.limiter)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/auth/register", limit, s.handler.Auth.Register)
		api.POST("/auth/login", limit, s.handler.Auth.Login)

		// Public reads; a session, when presented, changes what is visible
		public := api.Group("", optional)
		{
			public.GET("/posts", s.handler.Post.GetPosts)
			public.GET("/posts/:id/comments", s.handler.Comment.GetComments)
			public.GET("/users/search", s.handler.User.SearchUsers)
			public.GET("/users/public/:username", s.handler.User.GetPublicProfile)
			public.GET("/users/:id/followers", s.handler.User.GetFollowers)
			public.GET("/users/:id/following", s.handler.User.GetFollowing)
			for _, tab := range views.Tabs {
				public.GET("/users/:id/"+tab.Path(), s.handler.User.GetTab(tab))
			}
		}

		// Protected routes (authentication required)
		protected := api.Group("", auth, limit)
		{
			protected.GET("/users/me", s.handler.Auth.GetMe)
			protected.PUT("/users/me", s.handler.User.UpdateMe)
			protected.GET("/users/me/following", s.handler.User.GetMyFollowing)
			protected.GET("/users/:id", s.handler.User.GetUserProfile)
			protected.POST("/users/:id/follow", s.handler.User.FollowUser)

			protected.POST("/posts", s.handler.Post.CreatePost)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)
			protected.PATCH("/posts/:id/visibility", s.handler.Post.ToggleVisibility)
			protected.POST("/posts/:id/like", s.handler.Post.LikePost)
			protected.POST("/posts/:id/repost", s.handler.Post.RepostPost)
			protected.POST("/posts/:id/comments", s.handler.Comment.CreateComment)

			protected.DELETE("/comments/:id", s.handler.Comment.DeleteComment)
			protected.POST("/comments/:id/like", s.handler.Comment.LikeComment)
		}

		admin := api.Group("/admin", auth, middleware.AdminOnly())
		{
			admin.GET("/stats", s.handler.Admin.GetStats)
			admin.PATCH("/users/:id/active", s.handler.Admin.SetUserActive)
		}
	}

	return r
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// HTTPServer builds the http.Server for the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.StartBackground(ctx)

	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// StartBackground runs the hub and limiter sweeper without an HTTP listener,
// for callers that mount RegisterRoutes themselves.
func (s *Server) StartBackground(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.limiter.Run(ctx, 10*time.Minute)
}

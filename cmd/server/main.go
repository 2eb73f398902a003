package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/database"
	"github.com/cardledger/internal/handler"
	"github.com/cardledger/internal/middleware"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/internal/session"
	"github.com/cardledger/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := middleware.InitLogger(cfg.Server.LogDir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := database.Open(cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Auto migrate database
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize session store
	var (
		sessions session.Store
		rdb      *redis.Client
		sweeper  *worker.SessionSweeper
	)
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		rdb = initRedis(cfg)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		sessions = session.NewRedisStore(rdb)
	default:
		memory := session.NewMemoryStore()
		sweeper = worker.NewSessionSweeper(memory, 10*time.Minute)
		go sweeper.Start()
		sessions = memory
	}

	policy := session.Policy{
		Inactivity:    time.Duration(cfg.Session.InactivityDays) * 24 * time.Hour,
		EphemeralIdle: time.Duration(cfg.Session.EphemeralIdleHours) * time.Hour,
		TokenLifetime: cfg.JWT.TokenLifetime(),
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessions, policy, cfg.JWT)
	categoryService := service.NewCategoryService(categoryRepo)
	usageService := service.NewUsageService(usageRepo, categoryService, cfg.Ledger.Location(), cfg.Ledger.PageSize)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Server.SecureCookie)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	usageHandler := handler.NewUsageHandler(usageService)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"version":   Version,
			"commit":    Commit,
			"buildTime": BuildTime,
			"time":      time.Now().Unix(),
		})
	})

	root := router.Group("")
	{
		authMiddleware := middleware.AuthMiddleware(authService, cfg.Server.SecureCookie)

		// Auth routes (register/login public, logout/me protected)
		authHandler.RegisterRoutes(root, authMiddleware)

		// Ledger routes (protected)
		categoryHandler.RegisterRoutes(root, authMiddleware)
		usageHandler.RegisterRoutes(root, authMiddleware)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server in goroutine
	go func() {
		middleware.LogInfo("Starting server on %s (version=%s)", addr, Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	middleware.LogInfo("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	// Close Redis connection
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			middleware.LogError("Error closing Redis connection: %v", err)
		}
	}

	if err := database.Close(db); err != nil {
		middleware.LogError("Error closing database: %v", err)
	}

	middleware.LogInfo("Server exited properly")
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

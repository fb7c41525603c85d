package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campattend/internal/attendance"
	"campattend/internal/auth"
	"campattend/internal/cloudinary"
	"campattend/internal/config"
	"campattend/internal/geo"
	"campattend/internal/httpmiddleware"
	"campattend/internal/model"
	"campattend/internal/queue"
	"campattend/internal/session"
	"campattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	docs := store.NewPostgresStore(db.Client)
	if err := docs.Init(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var resync queue.Queue
	if cfg.QueueBackend == "memory" {
		resync = queue.NewInMemory(64)
	} else {
		resync = queue.NewRedisQueue(redisClient.Client, "attendance:resync")
	}

	repo := attendance.NewRepository(attendance.NewRedisCache(redisClient.Client), docs)
	locator := geo.NewLocator(geo.NewIPLocator(cfg.IPAPIBaseURL), cfg.LocationTimeout)
	svc := attendance.NewService(repo, locator, resync)

	sessions := session.NewManager(session.NewRedisStore(redisClient.Client), cfg.SessionTTL)
	verifier := auth.NewVerifier(docs, auth.NewRedisAttempts(redisClient.Client, cfg.LoginMaxAttempts, cfg.LoginLockout))

	// Cloudinary client (nil when not configured; detail submission with
	// images then answers 503).
	var cdn *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdn = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	app := &application{
		cfg:      cfg,
		svc:      svc,
		repo:     repo,
		locator:  locator,
		sessions: sessions,
		verifier: verifier,
		cdn:      cdn,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).PerIP())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Tighter bucket on credential endpoints, on top of the Redis lockout.
	loginLimit := httpmiddleware.NewTokenBucket(10, 10).PerIP()
	r.POST("/v1/login", loginLimit, app.handleLogin)
	r.POST("/v1/admin/login", loginLimit, app.handleAdminLogin)

	nurseGroup := r.Group("/v1", auth.SessionAuth(cfg.JWTSigningKey, cfg.JWTIssuer, model.RoleNurse, sessions))
	nurseGroup.GET("/session", app.handleSession)
	nurseGroup.POST("/logout", app.handleLogout)
	nurseGroup.POST("/punch-in", app.handlePunchIn)
	nurseGroup.POST("/punch-out", app.handlePunchOut)
	nurseGroup.POST("/details", app.handleSubmitDetails)
	nurseGroup.GET("/records", app.handleMyRecord)

	adminGroup := r.Group("/v1/admin", auth.SessionAuth(cfg.JWTSigningKey, cfg.JWTIssuer, model.RoleAdmin, sessions))
	adminGroup.GET("/session", app.handleSession)
	adminGroup.POST("/logout", app.handleLogout)
	adminGroup.GET("/records", app.handleAdminRecords)
	adminGroup.GET("/records/export", app.handleAdminExport)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

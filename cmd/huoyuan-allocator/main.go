// Command huoyuan-allocator runs the HTTP surface over the allocation
// core: upload a workbook or a pre-parsed dataset, solve, fetch or
// export the result. Configuration comes from the environment; the
// server shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cigdist/huoyuan-allocator/internal/cache"
	"github.com/cigdist/huoyuan-allocator/internal/httpapi"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
	"github.com/cigdist/huoyuan-allocator/internal/obsmetrics"
	"github.com/cigdist/huoyuan-allocator/internal/sessionstore"
)

// serverConfig holds the process-level bootstrap settings, read from
// the environment by this command only — never by the core pipeline.
type serverConfig struct {
	Port          string
	Environment   string
	LogLevel      string
	EnablePersist bool
	EnableMetrics bool
}

func loadServerConfig() serverConfig {
	return serverConfig{
		Port:          getEnv("ALLOCATOR_PORT", "8080"),
		Environment:   getEnv("ALLOCATOR_ENV", "development"),
		LogLevel:      getEnv("ALLOCATOR_LOG_LEVEL", "info"),
		EnablePersist: getEnv("ALLOCATOR_ENABLE_PERSIST", "false") == "true",
		EnableMetrics: getEnv("ALLOCATOR_ENABLE_METRICS", "true") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := loadServerConfig()

	log := obslog.New(obslog.Config{
		Level:       cfg.LogLevel,
		ServiceName: "huoyuan-allocator",
		Environment: cfg.Environment,
	})
	defer log.Sync()

	var store *sessionstore.Store
	if cfg.EnablePersist {
		connected, err := sessionstore.Connect(sessionstore.DefaultConfig())
		if err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("sessionstore: connect failed, continuing without persistence")
		} else {
			if err := sessionstore.Migrate(sessionstore.DefaultConfig()); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("sessionstore: migrate failed")
			}
			store = connected
		}
	}

	var redisClient *redis.Client
	if addr := getEnv("ALLOCATOR_REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
	}
	paramsCache := cache.New(redisClient)

	var metrics *obsmetrics.Metrics
	if cfg.EnableMetrics {
		metrics = obsmetrics.New()
	}

	controller := httpapi.NewController(store, paramsCache, metrics, log)
	server := initHTTPServer(cfg, controller)
	startServer(server, log)
}

func initHTTPServer(cfg serverConfig, controller *httpapi.Controller) *http.Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", controller.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/upload", controller.Upload)
		api.POST("/upload/file", controller.UploadFile)
		api.POST("/solve", controller.Solve)
		api.GET("/result", controller.Result)
		api.GET("/export", controller.Export)
	}

	if cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // a solve can run up to the configured wall-clock limit
		IdleTimeout:  60 * time.Second,
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func startServer(server *http.Server, log *obslog.Logger) {
	go func() {
		log.Info("starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pidash/internal/collector"
	"pidash/internal/config"
	"pidash/internal/containers"
	"pidash/internal/handlers"
	"pidash/internal/health"
	"pidash/internal/history"
	"pidash/internal/logger"
	"pidash/internal/middleware"
	"pidash/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Flush(log)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewSQLite(cfg.DBPath, log)
	if err != nil {
		log.Fatal("open metrics store", zap.Error(err))
	}
	defer store.Close()

	buffer := history.NewBuffer(cfg.BufferCapacity())
	sys := collector.NewSystem(cfg.DiskPath)
	hub := middleware.NewHub(log)
	go hub.Run()

	sampler := history.NewSampler(sys, buffer, hub, cfg.SampleInterval, log)
	flusher := history.NewFlusher(buffer, store, cfg.FlushInterval, log)
	engine := history.NewEngine(buffer, store, log)
	checker := health.NewChecker(cfg.Services, cfg.ProbeInterval, cfg.ProbeTimeout, log)

	sampler.Start()
	flusher.Start()
	checker.Start()

	sweepStop := startRetentionSweep(store, cfg.RetentionDays, log)

	var source containers.Source
	if cfg.DockerEnabled {
		source = containers.NewCLI()
	}

	rateLimiter := middleware.NewRateLimiter(rate.Every(time.Minute/300), 30)
	api := handlers.NewAPI(sys, engine, checker, source, log)
	router := setupRouter(cfg, api, hub, rateLimiter)

	srv := &http.Server{
		Addr:           ":" + strconv.Itoa(cfg.Port),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("starting server", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	sampler.Stop()
	checker.Stop()
	close(sweepStop)
	flusher.Stop() // runs a final flush after the loop halts
	rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
}

// startRetentionSweep prunes durable rows beyond the retention horizon once
// a day. Best effort: a failed sweep is retried on the next tick.
func startRetentionSweep(store storage.Store, retentionDays int, log *zap.Logger) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
				if _, err := store.DeleteOlderThan(context.Background(), cutoff); err != nil {
					log.Warn("retention sweep failed", zap.Error(err))
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func setupRouter(cfg *config.Config, api *handlers.API, hub *middleware.Hub, rl *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rl.Middleware())

	r.GET("/", api.Root)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/metrics", api.Metrics)
		apiGroup.GET("/metrics/history/:metric_type", api.History)
		apiGroup.GET("/metrics/:metric_type", api.Metric)
		apiGroup.GET("/services/health", api.ServicesHealth)
		apiGroup.GET("/services/health/:name", api.ServiceHealth)
		apiGroup.GET("/docker", api.Containers)
	}

	r.GET("/ws", hub.HandleWebSocket())

	return r
}

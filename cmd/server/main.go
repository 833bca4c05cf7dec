package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/cache"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/database"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/model"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/monitoring"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/ratelimit"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/recommend"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/risk"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/scoring"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/security"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/types"
)

// serverDeps bundles the initialized components the router wires together
type serverDeps struct {
	pipeline    *scoring.Pipeline
	history     *database.HistoryService
	db          *database.DB
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	cache       *cache.Cache
	rateLimiter *ratelimit.RateLimiter
	corsOrigins []string
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	port := getEnvOrDefault("PORT", "8080")
	artifactsDir := getEnvOrDefault("ARTIFACTS_DIR", "./artifacts")
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := getEnvIntOrDefault("REDIS_DB", 0)
	retentionDays := getEnvIntOrDefault("HISTORY_RETENTION_DAYS", 365)
	cacheTTL := time.Duration(getEnvIntOrDefault("CACHE_TTL_MINUTES", 15)) * time.Minute
	topN := getEnvIntOrDefault("TOP_DRIVERS", 3)

	thresholds := risk.Thresholds{
		Low:  getEnvFloatOrDefault("RISK_THRESHOLD_LOW", risk.DefaultLowThreshold),
		High: getEnvFloatOrDefault("RISK_THRESHOLD_HIGH", risk.DefaultHighThreshold),
	}

	// Load model artifacts. The service must not accept scoring requests
	// with an unloaded or misconfigured model, so every failure here is fatal.
	churnModel, err := model.Load(filepath.Join(artifactsDir, "model.json"))
	if err != nil {
		slog.Error("Failed to load model artifact", "error", err)
		os.Exit(1)
	}

	featureSchema, err := schema.Load(filepath.Join(artifactsDir, "schema.json"))
	if err != nil {
		slog.Error("Failed to load schema artifact", "error", err)
		os.Exit(1)
	}

	pipeline, err := scoring.NewPipeline(churnModel, featureSchema, thresholds, topN, recommend.DefaultMapper())
	if err != nil {
		slog.Error("Invalid scoring configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Scoring pipeline ready",
		"features", len(featureSchema.Features()),
		"columns", featureSchema.Width(),
		"baseline_probability", pipeline.Baseline(),
		"threshold_low", thresholds.Low,
		"threshold_high", thresholds.High,
		"top_drivers", topN)

	// Initialize score history store
	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	historyService := database.NewHistoryService(database.NewRepository(db))
	historyService.StartRetentionLoop(retentionDays)

	// Monitoring
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Rate limiting: Redis sliding window with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(redisAddr, redisPassword, redisDB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer errors.SafeClose(redisClient, "redis")

	rateLimiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	// Response cache: valid because scoring is deterministic over the
	// immutable model snapshot
	appCache := cache.NewCache(cacheTTL)

	r, err := setupRouter(serverDeps{
		pipeline:    pipeline,
		history:     historyService,
		db:          db,
		metrics:     appMetrics,
		logger:      appLogger,
		cache:       appCache,
		rateLimiter: rateLimiter,
		corsOrigins: strings.Split(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
	})
	if err != nil {
		slog.Error("Failed to configure router", "error", err)
		os.Exit(1)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// setupRouter builds the full middleware chain and route table over the
// initialized components. main and the handler tests share it.
func setupRouter(deps serverDeps) (*gin.Engine, error) {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(deps.metrics, deps.logger))

	// Error handling
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	// Security middleware
	securityConfig := security.DefaultSecurityConfig()
	securityMiddleware := security.NewSecurityMiddleware(securityConfig)

	if err := r.SetTrustedProxies(securityConfig.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(securityMiddleware.LimitBodySize)

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.corsOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsConfig))

	r.Use(deps.rateLimiter.IPRateLimitMiddleware())
	r.Use(deps.cache.Middleware(deps.metrics, "/score"))

	r.GET("/health", func(c *gin.Context) {
		healthResponse := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"model": gin.H{
				"columns":              deps.pipeline.Schema().Width(),
				"baseline_probability": deps.pipeline.Baseline(),
			},
		}

		if err := deps.db.Ping(); err != nil {
			healthResponse["status"] = "degraded"
			healthResponse["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, healthResponse)
			return
		}

		c.JSON(http.StatusOK, healthResponse)
	})

	r.POST("/score", func(c *gin.Context) {
		start := time.Now()

		var req types.ScoreRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewInvalidArgumentError("request body must contain a customer object", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := deps.pipeline.Score(req.Customer)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		deps.metrics.RecordScore(string(result.Tier))
		deps.logger.ScoreLogger(result.Probability, string(result.Tier), len(result.Drivers), time.Since(start))

		// Persist history async; a storage failure must never affect the
		// scoring response
		go recordHistory(deps.history, req.Customer, result)

		c.JSON(http.StatusOK, result)
	})

	r.POST("/score/batch", func(c *gin.Context) {
		var req types.BatchScoreRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewInvalidArgumentError("request body must contain a customers array", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if len(req.Customers) == 0 {
			appErr := errors.NewInvalidArgumentError("customers array cannot be empty")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		deps.metrics.IncrementBatchScore()

		// One independent computation per customer; a failure for one
		// never affects the others
		results := make([]gin.H, len(req.Customers))
		for i, customer := range req.Customers {
			result, err := deps.pipeline.Score(customer)
			if err != nil {
				appErr := errors.ToAppError(err)
				results[i] = gin.H{"index": i, "error": appErr}
				continue
			}

			deps.metrics.RecordScore(string(result.Tier))
			results[i] = gin.H{"index": i, "result": result}

			go recordHistory(deps.history, customer, result)
		}

		c.JSON(http.StatusOK, gin.H{"results": results})
	})

	// Feature layout for intake form rendering
	r.GET("/schema", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"features": deps.pipeline.Schema().Features(),
			"columns":  deps.pipeline.Schema().Columns(),
			"thresholds": gin.H{
				"low":  deps.pipeline.Thresholds().Low,
				"high": deps.pipeline.Thresholds().High,
			},
			"top_drivers": deps.pipeline.TopN(),
		})
	})

	// History endpoints
	r.GET("/history/summary/:period", func(c *gin.Context) {
		period := c.Param("period")

		summary, err := deps.history.Summary(period)
		if err != nil {
			if stderrors.Is(err, database.ErrUnknownPeriod) {
				appErr := errors.NewInvalidArgumentError("unknown summary period", period)
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}

			deps.logger.APIErrorLogger(err, "GET", "/history/summary/"+period, c.ClientIP(), http.StatusInternalServerError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate score history"})
			return
		}

		c.JSON(http.StatusOK, summary)
	})

	r.GET("/history/:hash", func(c *gin.Context) {
		customerHash := c.Param("hash")
		limit := 20

		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		records, err := deps.history.CustomerHistory(customerHash, limit)
		if err != nil {
			deps.logger.APIErrorLogger(err, "GET", "/history/"+customerHash, c.ClientIP(), http.StatusInternalServerError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve score history"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"customer_hash": customerHash, "records": records})
	})

	r.DELETE("/history/:hash", func(c *gin.Context) {
		customerHash := c.Param("hash")

		deleted, err := deps.history.DeleteCustomer(customerHash)
		if err != nil {
			deps.logger.APIErrorLogger(err, "DELETE", "/history/"+customerHash, c.ClientIP(), http.StatusInternalServerError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete score history"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "score history deleted",
			"deleted_rows": deleted,
		})
	})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		stats := deps.metrics.GetStats()
		c.JSON(http.StatusOK, stats)
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		stats := deps.cache.Stats()
		c.JSON(http.StatusOK, stats)
	})

	// Pool stats endpoints
	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": deps.db.GetPoolStats(),
		})
	})

	r.GET("/pools/ratelimit", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "ratelimit",
			"stats": deps.rateLimiter.GetStats(),
		})
	})

	return r, nil
}

func recordHistory(history *database.HistoryService, customer types.CustomerRecord, result scoring.ScoreResult) {
	topDriver := ""
	topContribution := 0.0
	if len(result.Drivers) > 0 {
		topDriver = result.Drivers[0].Feature
		topContribution = result.Drivers[0].Contribution
	}

	if err := history.RecordScore(customer, result.Probability, string(result.Tier), topDriver, topContribution); err != nil {
		slog.Error("Failed to record score history", "error", err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		slog.Warn("Invalid float in environment, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

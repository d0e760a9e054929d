package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/sync_backend/config"
	"github.com/mmdatafocus/sync_backend/middlewares"
	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/schema"
	"github.com/mmdatafocus/sync_backend/store"
	"github.com/mmdatafocus/sync_backend/syncapi"
	"github.com/mmdatafocus/sync_backend/syncengine"
	"github.com/mmdatafocus/sync_backend/syncentity"
	"github.com/mmdatafocus/sync_backend/utils"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen first so the platform health check passes while the database comes up.
	var ready atomic.Bool
	var current atomic.Pointer[gin.Engine]
	current.Store(newRouter(logger, ready.Load, nil))

	srv := &http.Server{
		Addr: ":" + port,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current.Load().ServeHTTP(w, r)
		}),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	if err := config.ConnectDatabaseWithRetry(sigCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Error(err)
		shutdown(srv)
		return
	}
	config.ConnectRedisWithRetry(sigCtx)

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	defer func() {
		if rdb := config.GetRedisDB(); rdb != nil {
			_ = rdb.Close()
		}
	}()
	defer config.ClosePubSub()

	if !config.EnvBoolDefault("SKIP_MIGRATIONS", false) {
		err := config.WithRedisLock(sigCtx, "sync:migrate", time.Minute, func() error {
			return models.MigrateTable(db)
		})
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	settings := config.LoadSyncSettings()
	schemaModels, err := schema.Load(sigCtx, settings.SchemaSource, settings.SchemaPath, db)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "schema", "source": settings.SchemaSource, "path": settings.SchemaPath}).Fatal(err)
	}
	registry, err := syncentity.Build(syncentity.DefaultCatalog(), schemaModels)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "catalog"}).Fatal(err)
	}
	if unresolved := registry.Unresolved(); len(unresolved) > 0 {
		entry := logger.WithFields(logrus.Fields{"field": "catalog", "unresolved": unresolved})
		if settings.StrictCatalog {
			entry.Fatal("catalog targets missing from schema")
		}
		entry.Warn("catalog targets missing from schema; they are not exposed")
	}
	logger.WithFields(logrus.Fields{"field": "catalog", "entities": len(registry.Configs()), "models": registry.ModelNames()}).Info("entity registry built")

	opts := []syncengine.Option{syncengine.WithDefaultLimit(settings.DefaultLimit)}
	if settings.EventsTopic != "" {
		opts = append(opts, syncengine.WithNotifier(syncengine.PubSubNotifier{Topic: settings.EventsTopic}))
	}
	engine := syncengine.New(registry, store.NewGormClient(db, registry.Tables()), logger, opts...)

	current.Store(newRouter(logger, ready.Load, syncapi.NewHandler(engine, settings.MaxLimit)))
	ready.Store(true)
	logger.WithFields(logrus.Fields{"field": "server", "port": port}).Info("sync service ready")

	select {
	case <-sigCtx.Done():
		shutdown(srv)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// newRouter builds the HTTP surface. A nil handler yields the boot router,
// which only answers health checks.
func newRouter(logger *logrus.Logger, ready func() bool, handler *syncapi.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestLogger(logger))
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.ReadinessMiddleware(ready))
	r.Use(cors.New(corsConfig()))
	if rdb := config.GetRedisDB(); rdb != nil && config.EnvBoolDefault("RATE_LIMIT_ENABLED", false) {
		limit := int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		window := time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		r.Use(middlewares.NewRateLimiter(rdb, limit, window).RateLimitMiddleware)
	}
	r.Use(gin.Recovery())

	if handler != nil {
		api := r.Group("/api/v1")
		api.Use(middlewares.AuthMiddleware())
		handler.Register(api)
	}

	r.NoRoute(func(c *gin.Context) {
		utils.AbortWithError(c, http.StatusNotFound, "Route not found.")
	})
	return r
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if config.IsProduction() {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.CorrelationHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

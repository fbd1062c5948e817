package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/config"
	"github.com/formvoice/core/internal/database"
	"github.com/formvoice/core/internal/middleware"
	"github.com/formvoice/core/internal/pkg/blobstore"
	pkgcron "github.com/formvoice/core/internal/pkg/cron"
	"github.com/formvoice/core/internal/pkg/events"
	"github.com/formvoice/core/internal/pkg/jwt"
	pkgredis "github.com/formvoice/core/internal/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	store  blobstore.Store
	signer *jwt.Signer
	hub    *events.Hub
	sched  *pkgcron.Scheduler
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New initializes the application: config → DB → Redis → storage → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, errors.Wrap(err, "database")
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, builder sessions and events stay in-process", zap.Error(err))
		rc = nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "storage")
	}

	signer := jwt.NewSigner(cfg.JWTSecret)
	if signer.IsDefault() {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())
	hub := events.NewHub(rc, logger)
	go hub.Run(ctx)

	a := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		rc:     rc,
		store:  store,
		signer: signer,
		hub:    hub,
		sched:  pkgcron.New(logger.Named("CronService")),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if err := a.registerRoutes(); err != nil {
		cancel()
		return nil, err
	}
	a.sched.Start(ctx)
	return a, nil
}

func openStore(cfg *config.AppConfig) (blobstore.Store, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		s3 := cfg.Storage.S3
		return blobstore.NewS3(blobstore.S3Options{
			Endpoint:        s3.Endpoint,
			Region:          s3.Region,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			PathStyle:       s3.PathStyle,
			CustomDomain:    s3.CustomDomain,
		})
	}
	base := strings.TrimSpace(cfg.Storage.PublicBaseURL)
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d%s", cfg.Port, storageRoute)
	}
	return blobstore.NewLocal(cfg.LocalStorageDir(), base)
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-Template-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool { return originAllowed(patterns, origin) }
	} else {
		c.AllowOriginFunc = func(string) bool { return true }
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
}

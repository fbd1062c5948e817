package app

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/middleware"
	"github.com/formvoice/core/internal/modules/builder"
	"github.com/formvoice/core/internal/modules/form"
	"github.com/formvoice/core/internal/modules/health"
	"github.com/formvoice/core/internal/modules/invoice"
	"github.com/formvoice/core/internal/modules/templates"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/blobstore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	apiPrefix    = "/api/v1"
	storageRoute = "/storage"
)

var processStart = time.Now()

func (a *App) registerRoutes() error {
	be := backend.New(a.db)
	authMW := middleware.Auth(a.signer)

	formSvc := form.NewService(be, a.hub, a.logger)
	tplSvc := templates.NewService(be, a.store, a.cfg.Storage.TemplateBucket, a.cfg.TemplateMaxBytes(), a.hub, a.logger)
	invoiceSvc := invoice.NewService(be, tplSvc, a.hub, a.logger)
	builderSvc := builder.NewService(a.sessionRepository(), formSvc, a.logger)

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()
	if err := tplSvc.EnsureDefault(ctx); err != nil {
		return errors.Wrap(err, "install default template")
	}
	registerCronJobs(a.sched, tplSvc, a.logger)

	if local, ok := a.store.(*blobstore.Local); ok {
		a.router.Static(storageRoute, local.Root())
	}

	var rdb *redis.Client
	if a.rc != nil {
		rdb = a.rc.Raw()
	}
	submitLimit := middleware.RateLimit(rdb, middleware.RateLimitOptions{Scope: "submission"}, a.logger)

	api := a.router.Group(apiPrefix, middleware.OptionalAuth(a.signer))
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uptime": time.Since(processStart).Truncate(time.Second).String()})
	})

	health.RegisterRoutes(api, health.Deps{DB: a.db, Redis: a.rc, Sched: a.sched, LogDir: a.cfg.LogDir()}, authMW)
	form.NewHandler(formSvc).RegisterRoutes(api, authMW, submitLimit)
	builder.NewHandler(builderSvc).RegisterRoutes(api, authMW)
	templates.NewHandler(tplSvc).RegisterRoutes(api, authMW)
	invoice.NewHandler(invoiceSvc).RegisterRoutes(api, authMW)
	return nil
}

func (a *App) sessionRepository() builder.Repository {
	ttl := time.Duration(a.cfg.Redis.SessionTTLHours) * time.Hour
	if a.rc == nil {
		return builder.NewMemoryRepository(ttl)
	}
	return builder.NewRedisRepository(a.rc, ttl)
}

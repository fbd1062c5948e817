package app

import (
	"context"
	"time"

	"github.com/formvoice/core/internal/modules/templates"
	pkgcron "github.com/formvoice/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// orphanGrace keeps blobs of uploads still between storage and insert.
const orphanGrace = time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, tplSvc *templates.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "template-orphan-sweep",
		Description: "Remove stored template files no active template references",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			res, err := tplSvc.SweepOrphans(ctx, orphanGrace)
			if err != nil {
				return err
			}
			cronLogger.Info("template sweep finished",
				zap.Int("scanned", res.Scanned),
				zap.Strings("removed", res.Removed))
			return nil
		},
	})
}

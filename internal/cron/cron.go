package cron

import (
	"context"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/vaulty/mailvault/config"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/tracing"
)

// QuotaRenewer resets counters for addresses whose renewal period elapsed.
type QuotaRenewer interface {
	RenewExpiredQuotas(ctx context.Context) (int64, error)
}

type CronManager struct {
	cfg      *config.QuotaConfig
	log      logger.Logger
	cron     *cronv3.Cron
	jobIDs   map[string]cronv3.EntryID
	renewals QuotaRenewer
}

func NewCronManager(cfg *config.QuotaConfig, log logger.Logger, renewals QuotaRenewer) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		jobIDs:   make(map[string]cronv3.EntryID),
		renewals: renewals,
	}
}

// Start initializes and starts the cron scheduler.
func (cm *CronManager) Start() error {
	cm.log.Info("Starting cron manager")
	c := cronv3.New(cronv3.WithChain(
		cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
		cronv3.Recover(cronv3.DefaultLogger),
	))

	if cm.cfg.RenewalSchedule != "" {
		id, err := c.AddFunc(cm.cfg.RenewalSchedule, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.renewQuotas()
		})
		if err != nil {
			return err
		}
		cm.jobIDs["quota_renewal"] = id
		cm.log.Infof("Registered quota renewal job with schedule: %s", cm.cfg.RenewalSchedule)
	}

	c.Start()
	cm.cron = c
	return nil
}

// Stop gracefully stops the cron manager and waits for running jobs.
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
}

func (cm *CronManager) renewQuotas() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.renewQuotas")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	renewed, err := cm.renewals.RenewExpiredQuotas(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to renew expired quotas: %v", err)
		return
	}

	if renewed > 0 {
		cm.log.Infof("Renewed quota for %d addresses", renewed)
	}
}

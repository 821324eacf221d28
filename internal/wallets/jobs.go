package wallets

import (
	"context"
	"time"

	"parkly/pkg/logger"
)

// ReconcileJob periodically checks every wallet balance against its ledger
type ReconcileJob struct {
	service  Service
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}
}

func NewReconcileJob(service Service, interval time.Duration, log *logger.Logger) *ReconcileJob {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReconcileJob{
		service:  service,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start runs the job in the background until Stop or ctx cancellation
func (j *ReconcileJob) Start(ctx context.Context) {
	j.log.Info("Starting wallet reconciliation job", "interval", j.interval.String())
	go j.run(ctx)
}

func (j *ReconcileJob) Stop() {
	close(j.done)
	j.log.Info("Wallet reconciliation job stopped")
}

func (j *ReconcileJob) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single reconciliation sweep
func (j *ReconcileJob) RunOnce(ctx context.Context) {
	start := time.Now()
	drifted, err := j.service.ReconcileAll(ctx)
	if err != nil {
		j.log.WithError(err).Error("Wallet reconciliation sweep failed")
		return
	}

	if drifted > 0 {
		j.log.Warn("Wallet reconciliation found drift", "drifted_wallets", drifted, "duration", time.Since(start).String())
		return
	}
	j.log.Debug("Wallet reconciliation clean", "duration", time.Since(start).String())
}

package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/media"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/repository"
)

// RetentionWorker periodically prunes the alert log and deletes the images
// of removed alerts.
type RetentionWorker struct {
	Repo     repository.AlertRepository
	Store    media.Store
	Policy   repository.RetentionPolicy
	Interval time.Duration
	Metrics  *metrics.Backend
	Log      *zap.SugaredLogger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Run prunes once immediately and then every Interval until ctx is done.
func (rw *RetentionWorker) Run(ctx context.Context) error {
	if !rw.Policy.Enabled() || rw.Interval <= 0 {
		rw.Log.Infof("workers.retention: Retention disabled, alerts are kept indefinitely")
		<-ctx.Done()
		return nil
	}

	rw.Log.Infof("workers.retention: Keeping at most %d alerts, max age %s, checked every %s",
		rw.Policy.MaxAlerts, rw.Policy.MaxAge, rw.Interval)

	ticker := time.NewTicker(rw.Interval)
	defer ticker.Stop()
	for {
		if _, err := rw.RunOnce(ctx); err != nil {
			rw.Log.Errorf("workers.retention: ERROR pruning %s store: %v", rw.Repo.Name(), err)
		}
		select {
		case <-ctx.Done():
			rw.Log.Infof("workers.retention: stopping: %v", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce applies the policy and returns how many alerts were removed.
func (rw *RetentionWorker) RunOnce(ctx context.Context) (int, error) {
	now := time.Now()
	if rw.Now != nil {
		now = rw.Now()
	}

	removed, err := rw.Repo.Prune(ctx, rw.Policy, now)
	if err != nil {
		return 0, err
	}

	for _, alert := range removed {
		if alert.ImageRef == nil || rw.Store == nil {
			continue
		}
		if err := rw.Store.Delete(ctx, *alert.ImageRef); err != nil {
			rw.Log.Warnf("workers.retention: failed to delete image %s of alert %s: %v", *alert.ImageRef, alert.ID, err)
		}
	}

	if len(removed) > 0 {
		if rw.Metrics != nil {
			rw.Metrics.AlertsPruned.Add(uint64(len(removed)))
		}
		rw.Log.Infof("workers.retention: Pruned %d alert(s)", len(removed))
	}
	return len(removed), nil
}

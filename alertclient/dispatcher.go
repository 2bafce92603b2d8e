package alertclient

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maanas1234/Celestia-Hackathon/detection"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/models"
	"github.com/maanas1234/Celestia-Hackathon/rules"
)

// Submitter queues an alert for delivery without blocking.
type Submitter interface {
	Submit(event models.AlertEvent) bool
}

// Dispatcher turns per-frame counts into queued alerts. A token bucket
// spaces out alerts for a scene that keeps matching the rule.
type Dispatcher struct {
	rule      rules.Rule
	limiter   *rate.Limiter
	submitter Submitter
	metrics   *metrics.Client
	log       *zap.SugaredLogger
}

// NewDispatcher allows one alert per minInterval; minInterval <= 0 disables
// the cooldown.
func NewDispatcher(rule rules.Rule, minInterval time.Duration, submitter Submitter, m *metrics.Client, log *zap.SugaredLogger) *Dispatcher {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Dispatcher{
		rule:      rule,
		limiter:   rate.NewLimiter(limit, 1),
		submitter: submitter,
		metrics:   m,
		log:       log,
	}
}

// Decide evaluates the rule for counts at the local hour of now.
func (d *Dispatcher) Decide(counts detection.FrameCounts, now time.Time) (string, bool) {
	return d.rule.Evaluate(counts, now.Hour())
}

// Dispatch queues an alert with text for counts observed at now. encode is
// only called when the alert passes the cooldown; an encoding error sends the
// alert without an image. It reports whether the alert was queued.
func (d *Dispatcher) Dispatch(text string, counts detection.FrameCounts, now time.Time, encode func() ([]byte, error)) bool {
	d.metrics.AlertsRaised.Add(1)
	if !d.limiter.AllowN(now, 1) {
		d.metrics.AlertsSuppressed.Add(1)
		d.log.Debugf("alertclient: cooldown active, skipping alert %q", text)
		return false
	}

	event := models.AlertEvent{
		AlertText:  text,
		MenCount:   counts.Men,
		WomenCount: counts.Women,
		Timestamp:  now.UTC(),
	}
	if encode != nil {
		img, err := encode()
		if err != nil {
			d.log.Warnf("alertclient: failed to encode alert frame, sending without image: %v", err)
		} else {
			event.Image = img
		}
	}

	queued := d.submitter.Submit(event)
	if queued {
		d.log.Infof("alertclient: ALERT %q (men=%d women=%d)", text, counts.Men, counts.Women)
	}
	return queued
}

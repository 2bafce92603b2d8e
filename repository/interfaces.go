package repository

import (
	"context"
	"time"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// RetentionPolicy bounds the alert log. A zero field disables that bound.
type RetentionPolicy struct {
	MaxAlerts int
	MaxAge    time.Duration
}

// Enabled reports whether the policy bounds anything at all.
func (p RetentionPolicy) Enabled() bool {
	return p.MaxAlerts > 0 || p.MaxAge > 0
}

// AlertRepository is the append-only alert log owned by the backend.
type AlertRepository interface {
	// Append stores a new alert. Records are never modified afterwards.
	Append(ctx context.Context, alert *models.Alert) error
	// Latest returns at most limit alerts, newest timestamp first.
	Latest(ctx context.Context, limit int) ([]models.Alert, error)
	// Prune applies the retention policy relative to now and returns the
	// removed records so their images can be deleted.
	Prune(ctx context.Context, policy RetentionPolicy, now time.Time) ([]models.Alert, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	// Durable reports whether appended alerts survive a restart.
	Durable() bool
	Name() string
	Close() error
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// MemoryAlertRepository keeps a bounded, process-local alert log. It is used
// when no database is configured and as the fallback when one is unreachable.
type MemoryAlertRepository struct {
	mu       sync.RWMutex
	alerts   []models.Alert
	capacity int
}

// NewMemoryAlertRepository creates a log holding at most capacity alerts; the
// oldest appended alert is evicted first once it is full.
func NewMemoryAlertRepository(capacity int) *MemoryAlertRepository {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryAlertRepository{capacity: capacity}
}

func (r *MemoryAlertRepository) Name() string { return "memory" }

func (r *MemoryAlertRepository) Durable() bool { return false }

func (r *MemoryAlertRepository) Append(_ context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.alerts) >= r.capacity {
		r.alerts = append(r.alerts[:0], r.alerts[len(r.alerts)-r.capacity+1:]...)
	}
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *MemoryAlertRepository) Latest(_ context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return []models.Alert{}, nil
	}

	r.mu.RLock()
	sorted := make([]models.Alert, len(r.alerts))
	copy(sorted, r.alerts)
	r.mu.RUnlock()

	sortNewestFirst(sorted)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *MemoryAlertRepository) Prune(_ context.Context, policy RetentionPolicy, now time.Time) ([]models.Alert, error) {
	if !policy.Enabled() {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]models.Alert, len(r.alerts))
	copy(sorted, r.alerts)
	sortNewestFirst(sorted)

	cutoff := now.Add(-policy.MaxAge)
	var kept, removed []models.Alert
	for i, a := range sorted {
		tooOld := policy.MaxAge > 0 && a.Timestamp.Before(cutoff)
		tooMany := policy.MaxAlerts > 0 && i >= policy.MaxAlerts
		if tooOld || tooMany {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	// keep insertion order for eviction: oldest first
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	r.alerts = kept
	return removed, nil
}

func (r *MemoryAlertRepository) Ping(context.Context) error { return nil }

func (r *MemoryAlertRepository) Close() error { return nil }

// Len returns the number of alerts currently held.
func (r *MemoryAlertRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

func sortNewestFirst(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].Timestamp.After(alerts[j].Timestamp)
		}
		return alerts[i].CreatedAt > alerts[j].CreatedAt
	})
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/maanas1234/Celestia-Hackathon/database"
	"github.com/maanas1234/Celestia-Hackathon/models"
	"gorm.io/gorm"
)

// GormAlertRepository stores alerts in sqlite through GORM
type GormAlertRepository struct {
	DB *gorm.DB
}

// NewGormAlertRepository creates a new instance of GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{DB: db}
}

func (r *GormAlertRepository) Name() string { return "gorm" }

func (r *GormAlertRepository) Durable() bool { return true }

// Append inserts a new alert record
func (r *GormAlertRepository) Append(ctx context.Context, alert *models.Alert) error {
	if err := r.DB.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to append alert %s: %w", alert.ID, err)
	}
	return nil
}

// Latest retrieves the newest alerts, ordered by timestamp then insertion
func (r *GormAlertRepository) Latest(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return []models.Alert{}, nil
	}
	var alerts []models.Alert
	err := r.DB.WithContext(ctx).
		Order("timestamp DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list latest %d alerts: %w", limit, err)
	}
	return alerts, nil
}

// Prune deletes alerts older than MaxAge and everything beyond the newest MaxAlerts
func (r *GormAlertRepository) Prune(ctx context.Context, policy RetentionPolicy, now time.Time) ([]models.Alert, error) {
	if !policy.Enabled() {
		return nil, nil
	}

	sqlDB, err := r.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	expired := make(map[string]struct{})
	if policy.MaxAge > 0 {
		ids, err := database.SelectAlertIDsOlderThan(sqlDB, now.Add(-policy.MaxAge))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			expired[id] = struct{}{}
		}
	}
	if policy.MaxAlerts > 0 {
		ids, err := database.SelectAlertIDsBeyond(sqlDB, policy.MaxAlerts)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			expired[id] = struct{}{}
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(expired))
	for id := range expired {
		ids = append(ids, id)
	}

	var removed []models.Alert
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&removed).Error; err != nil {
		return nil, fmt.Errorf("failed to load %d expired alerts: %w", len(ids), err)
	}

	if _, err := database.DeleteAlertsByID(sqlDB, ids); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *GormAlertRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormAlertRepository) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

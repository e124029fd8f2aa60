package repository

import (
	"context"

	"github.com/yashrajoria/storefront/models"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	SaveLog(ctx context.Context, log *models.NotificationLog) error
	ListByOrder(ctx context.Context, orderID string) ([]models.NotificationLog, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) SaveLog(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *notificationRepository) ListByOrder(ctx context.Context, orderID string) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// NopNotificationRepository discards logs when no Postgres store is configured.
type NopNotificationRepository struct{}

func (NopNotificationRepository) SaveLog(context.Context, *models.NotificationLog) error {
	return nil
}

func (NopNotificationRepository) ListByOrder(context.Context, string) ([]models.NotificationLog, error) {
	return nil, nil
}

package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

func (s *PostgresStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translate(s.db.WithContext(ctx).Create(notification).Error)
}

// ListNotifications returns one page of the recipient's history, newest first.
func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	var (
		notifications []models.Notification
		total         int64
	)
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Notification{}).Where("user_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := db.Where("user_id = ?", recipientID).
		Order("created_at DESC").Order("id DESC").
		Offset(pageOffset(page, limit)).Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return notifications, total, nil
}

func (s *PostgresStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, translate(err)
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, recipientID, notificationID string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, recipientID).
		Update("read", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
	return translate(err)
}

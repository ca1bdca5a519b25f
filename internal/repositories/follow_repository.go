package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

func (s *PostgresStore) CreateFollow(ctx context.Context, follow *models.Follow) error {
	return translate(s.db.WithContext(ctx).Create(follow).Error)
}

func (s *PostgresStore) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	var follow models.Follow
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&follow).Error
	if err != nil {
		return nil, translate(err)
	}
	return &follow, nil
}

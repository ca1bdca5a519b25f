package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

func (s *PostgresStore) CreateLike(ctx context.Context, like *models.Like) error {
	return translate(s.db.WithContext(ctx).Create(like).Error)
}

// DeleteLike removes the like of userID on postID, ErrNotFound if there was none.
func (s *PostgresStore) DeleteLike(ctx context.Context, userID, postID string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindLike(ctx context.Context, userID, postID string) (*models.Like, error) {
	var like models.Like
	if err := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error; err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

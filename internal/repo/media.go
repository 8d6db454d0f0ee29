package repo

import (
	"context"

	"github.com/Skotchmaster/gogomedia/internal/models"
)

// MediaFilter narrows ListMedia; nil fields match everything.
type MediaFilter struct {
	Medium        *models.Medium
	ConsumedState *models.ConsumedState
}

func (r *GormRepo) FindMediaByID(ctx context.Context, id uint) (*models.Media, error) {
	var m models.Media
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *GormRepo) ListMedia(ctx context.Context, ownerID uint, f MediaFilter) ([]models.Media, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", ownerID)
	if f.Medium != nil {
		q = q.Where("medium = ?", *f.Medium)
	}
	if f.ConsumedState != nil {
		q = q.Where("consumed_state = ?", *f.ConsumedState)
	}

	items := make([]models.Media, 0)
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) InsertMedia(ctx context.Context, m *models.Media) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

// UpdateMedia writes every column of m, including zero values.
func (r *GormRepo) UpdateMedia(ctx context.Context, m *models.Media) error {
	return r.DB.WithContext(ctx).Save(m).Error
}

// DeleteMedia removes the item only when it belongs to ownerID and reports
// how many rows went away.
func (r *GormRepo) DeleteMedia(ctx context.Context, ownerID, id uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Media{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/models"
)

var ErrUserAlreadyExist = errors.New("user already exist")

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUserAlreadyExist
		}
		return err
	}
	return nil
}

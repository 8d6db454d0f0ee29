package revocation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/gogomedia/internal/models"
)

type GormStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *GormStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *GormStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	rec := models.RevokedToken{Token: token, RevokedAt: s.now()}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *GormStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	var count int64
	if err := s.DB.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

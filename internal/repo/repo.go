package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// Transaction runs fn against a repository bound to a single database
// transaction. Any error returned by fn rolls every write back.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Package media validates, applies and lists per-user media mutations.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
)

var ErrOwnership = errors.New("logged in user doesn't have media with given id")

type Engine struct {
	Repo *repo.GormRepo
}

func NewEngine(r *repo.GormRepo) *Engine {
	return &Engine{Repo: r}
}

// Upsert applies a batch for ownerID inside one transaction. Every item is
// validated and ownership-checked before the first write; the first failure
// in input order aborts the batch with nothing persisted. Results follow
// input order.
func (e *Engine) Upsert(ctx context.Context, ownerID uint, items []RawItem) ([]models.Media, error) {
	if len(items) == 0 {
		return nil, invalid("", msgEmptyList)
	}

	var results []models.Media
	err := e.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		patches := make([]Patch, len(items))
		targets := make([]*models.Media, len(items))
		byID := make(map[uint]*models.Media)

		for i, item := range items {
			p, err := Validate(item)
			if err != nil {
				return err
			}
			patches[i] = p

			if !p.ID.Set {
				continue
			}
			target, err := ownedItem(ctx, tx, ownerID, p.ID.Value, byID)
			if err != nil {
				return err
			}
			targets[i] = target
		}

		results = make([]models.Media, len(items))
		for i, p := range patches {
			if targets[i] == nil {
				m := newItem(ownerID, p)
				if err := tx.InsertMedia(ctx, m); err != nil {
					return fmt.Errorf("insert media: %w", err)
				}
				results[i] = *m
				continue
			}
			applyPatch(targets[i], p)
			if err := tx.UpdateMedia(ctx, targets[i]); err != nil {
				return fmt.Errorf("update media %d: %w", targets[i].ID, err)
			}
			results[i] = *targets[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ownedItem loads id once per batch so repeated ids patch the same row.
func ownedItem(ctx context.Context, tx *repo.GormRepo, ownerID uint, id int64, seen map[uint]*models.Media) (*models.Media, error) {
	if id <= 0 {
		return nil, ErrOwnership
	}
	key := uint(id)
	if m, ok := seen[key]; ok {
		return m, nil
	}

	m, err := tx.FindMediaByID(ctx, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOwnership
		}
		return nil, fmt.Errorf("load media %d: %w", key, err)
	}
	if m.UserID != ownerID {
		return nil, ErrOwnership
	}
	seen[key] = m
	return m, nil
}

func newItem(ownerID uint, p Patch) *models.Media {
	m := &models.Media{
		UserID:        ownerID,
		Name:          p.Name.Value,
		Medium:        models.MediumOther,
		ConsumedState: models.StateNotStarted,
	}
	applyPatch(m, p)
	return m
}

func applyPatch(m *models.Media, p Patch) {
	if p.Name.Set {
		m.Name = p.Name.Value
	}
	if p.Medium.Set {
		m.Medium = p.Medium.Value
	}
	if p.ConsumedState.Set {
		m.ConsumedState = p.ConsumedState.Value
	}
	if p.Description.Set {
		m.Description = p.Description.Value
	}
	if p.Order.Set {
		m.Order = p.Order.Value
	}
}

// List returns ownerID's items narrowed by f, oldest first.
func (e *Engine) List(ctx context.Context, ownerID uint, f repo.MediaFilter) ([]models.Media, error) {
	return e.Repo.ListMedia(ctx, ownerID, f)
}

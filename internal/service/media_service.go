package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gogomedia/internal/events"
	"github.com/Skotchmaster/gogomedia/internal/logging"
	"github.com/Skotchmaster/gogomedia/internal/media"
	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/search"
	"github.com/Skotchmaster/gogomedia/internal/util"
)

type MediaService struct {
	Engine   *media.Engine
	Repo     *repo.GormRepo
	Index    search.Indexer
	Notifier *Notifier
	Recorder Recorder
}

func (s *MediaService) record(result string) {
	if s.Recorder != nil {
		s.Recorder.MediaBatch(result)
	}
}

func batchResult(err error) string {
	var verr *media.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.Is(err, media.ErrOwnership):
		return "ownership_error"
	default:
		return "error"
	}
}

// Upsert applies a batch for owner. The search projection and events are
// updated only after the batch committed.
func (s *MediaService) Upsert(ctx context.Context, owner *models.User, items []media.RawItem) ([]models.Media, error) {
	result, err := s.Engine.Upsert(ctx, owner.ID, items)
	s.record(batchResult(err))
	if err != nil {
		return nil, err
	}

	if s.Index != nil {
		if err := s.Index.Index(ctx, result...); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "owner_id", owner.ID, "error", err)
		}
	}

	ids := make([]uint, len(result))
	for i, m := range result {
		ids[i] = m.ID
	}
	s.Notifier.media(ctx, events.MediaUpserted, owner.ID, map[string]any{"ids": ids})
	return result, nil
}

func (s *MediaService) List(ctx context.Context, owner *models.User, f repo.MediaFilter) ([]models.Media, error) {
	items, err := s.Engine.List(ctx, owner.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return items, nil
}

// Delete removes id when owner holds it. Unknown or foreign ids are a no-op.
func (s *MediaService) Delete(ctx context.Context, owner *models.User, id int64) error {
	if id <= 0 {
		return nil
	}
	n, err := s.Repo.DeleteMedia(ctx, owner.ID, uint(id))
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if n == 0 {
		return nil
	}

	if s.Index != nil {
		if err := s.Index.Delete(ctx, uint(id)); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "media_id", id, "error", err)
		}
	}
	s.Notifier.media(ctx, events.MediaDeleted, owner.ID, map[string]any{"id": id})
	return nil
}

type SearchResult struct {
	Total int64          `json:"total"`
	Items []models.Media `json:"items"`
}

func (s *MediaService) Search(ctx context.Context, owner *models.User, query string, page, size int) (SearchResult, error) {
	if s.Index == nil {
		return SearchResult{}, search.ErrDisabled
	}
	from, limit := util.Calculate(page, size)
	total, items, err := s.Index.Search(ctx, owner.ID, query, from, limit)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Total: total, Items: items}, nil
}

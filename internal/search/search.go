// Package search keeps a full-text projection of media items in
// Elasticsearch and queries it per owner.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/gogomedia/internal/models"
)

var ErrDisabled = errors.New("search is disabled")

type Indexer interface {
	Index(ctx context.Context, items ...models.Media) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, ownerID uint, query string, from, size int) (int64, []models.Media, error)
}

type Config struct {
	URL      string
	User     string
	Password string
}

type ESIndexer struct {
	ES    *elasticsearch.Client
	Index string
}

// NewClient connects and checks the cluster answers before returning.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return client, nil
}

func NewESIndexer(client *elasticsearch.Client, index string) *ESIndexer {
	return &ESIndexer{ES: client, Index: index}
}

type document struct {
	ID            uint                 `json:"id"`
	UserID        uint                 `json:"user_id"`
	Name          string               `json:"name"`
	Medium        models.Medium        `json:"medium"`
	ConsumedState models.ConsumedState `json:"consumed_state"`
	Description   string               `json:"description"`
	Order         int                  `json:"order"`
}

func toDocument(m models.Media) document {
	return document{
		ID:            m.ID,
		UserID:        m.UserID,
		Name:          m.Name,
		Medium:        m.Medium,
		ConsumedState: m.ConsumedState,
		Description:   m.Description,
		Order:         m.Order,
	}
}

func (d document) media() models.Media {
	return models.Media{
		ID:            d.ID,
		UserID:        d.UserID,
		Name:          d.Name,
		Medium:        d.Medium,
		ConsumedState: d.ConsumedState,
		Description:   d.Description,
		Order:         d.Order,
	}
}

func (x *ESIndexer) Index(ctx context.Context, items ...models.Media) error {
	for _, m := range items {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(toDocument(m)); err != nil {
			return fmt.Errorf("index media %d: %w", m.ID, err)
		}

		res, err := x.ES.Index(
			x.Index,
			&buf,
			x.ES.Index.WithContext(ctx),
			x.ES.Index.WithDocumentID(strconv.FormatUint(uint64(m.ID), 10)),
		)
		if err != nil {
			return fmt.Errorf("index media %d: %w", m.ID, err)
		}
		err = responseError(res.StatusCode, res.IsError(), res.Body)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("index media %d: %w", m.ID, err)
		}
	}
	return nil
}

// Delete removes the document; a missing document is not an error.
func (x *ESIndexer) Delete(ctx context.Context, id uint) error {
	res, err := x.ES.Delete(
		x.Index,
		strconv.FormatUint(uint64(id), 10),
		x.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if err := responseError(res.StatusCode, res.IsError(), res.Body); err != nil {
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	return nil
}

func (x *ESIndexer) Search(ctx context.Context, ownerID uint, query string, from, size int) (int64, []models.Media, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": ownerID},
				},
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res.StatusCode, res.IsError(), res.Body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	items := make([]models.Media, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source.media()
	}
	return r.Hits.Total.Value, items, nil
}

func responseError(status int, isErr bool, body io.Reader) error {
	if !isErr {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	return fmt.Errorf("elasticsearch status %d: %s", status, bytes.TrimSpace(msg))
}

// Disabled answers every query with ErrDisabled and ignores writes.
type Disabled struct{}

func (Disabled) Index(context.Context, ...models.Media) error { return nil }

func (Disabled) Delete(context.Context, uint) error { return nil }

func (Disabled) Search(context.Context, uint, string, int, int) (int64, []models.Media, error) {
	return 0, nil, ErrDisabled
}

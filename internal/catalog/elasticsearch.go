package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"startup-match-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchSource reads the catalog from a search index kept in sync by the catalog owner.
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticsearchSource(client *elasticsearch.Client, index string) *ElasticsearchSource {
	return &ElasticsearchSource{client: client, index: index, size: 1000}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Startup `json:"_source"`
			Sort   []interface{}  `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// ListActiveProviders pages through the index with search_after on the id keyword,
// so catalogs larger than one page are read completely.
func (e *ElasticsearchSource) ListActiveProviders(ctx context.Context) ([]models.Startup, error) {
	var (
		startups []models.Startup
		after    []interface{}
	)
	for {
		page, err := e.search(ctx, after)
		if err != nil {
			return nil, err
		}

		for _, hit := range page.Hits.Hits {
			s := hit.Source
			if s.ID == "" {
				s.ID = hit.ID
			}
			startups = append(startups, s)
		}

		hits := page.Hits.Hits
		if len(hits) < e.size || hits[len(hits)-1].Sort == nil {
			break
		}
		after = hits[len(hits)-1].Sort
	}

	return FilterActive(startups), nil
}

func (e *ElasticsearchSource) search(ctx context.Context, after []interface{}) (*searchResponse, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"ativo": true}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}
	if after != nil {
		query["search_after"] = after
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
		e.client.Search.WithSize(e.size),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", e.index, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &r, nil
}

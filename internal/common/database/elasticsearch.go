package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"startup-match-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

// StartupIndexMapping keyword-maps the fields the catalog filters on.
func StartupIndexMapping() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	text := map[string]interface{}{"type": "text"}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":             keyword,
				"nome":           text,
				"descricao":      text,
				"categoria":      keyword,
				"vertical":       keyword,
				"modelo_negocio": keyword,
				"tags":           keyword,
				"ativo":          map[string]interface{}{"type": "boolean"},
			},
		},
	}
}

// EnsureIndex creates index with the startup mapping when it does not exist.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, index string) (bool, error) {
	res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("index exists check failed: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
	default:
		return false, fmt.Errorf("index exists check error: %s", res.Status())
	}

	body, err := json.Marshal(StartupIndexMapping())
	if err != nil {
		return false, err
	}
	created, err := c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, fmt.Errorf("create index %s failed: %w", index, err)
	}
	defer created.Body.Close()
	if created.IsError() {
		return false, fmt.Errorf("create index %s error: %s", index, created.Status())
	}
	return true, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

type ProductDocument struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	CategoryID   uint      `json:"category_id"`
	CategoryName string    `json:"category_name"`
	ImageURL     string    `json:"image_url,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SearchResult struct {
	Total int64             `json:"total"`
	Items []ProductDocument `json:"items"`
}

type ProductIndex struct {
	Client *elasticsearch.Client
	Index  string
}

const productMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "name":          {"type": "text"},
      "description":   {"type": "text"},
      "price":         {"type": "scaled_float", "scaling_factor": 100},
      "stock":         {"type": "integer"},
      "category_id":   {"type": "long"},
      "category_name": {"type": "keyword"},
      "image_url":     {"type": "keyword", "index": false},
      "updated_at":    {"type": "date"}
    }
  }
}`

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.Client.Indices.Exists([]string{p.Index}, p.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = p.Client.Indices.Create(p.Index,
		p.Client.Indices.Create.WithContext(ctx),
		p.Client.Indices.Create.WithBody(bytes.NewReader([]byte(productMapping))),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func (p *ProductIndex) IndexProduct(ctx context.Context, doc ProductDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := p.Client.Index(p.Index, bytes.NewReader(body),
		p.Client.Index.WithContext(ctx),
		p.Client.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

func (p *ProductIndex) DeleteProduct(ctx context.Context, id uint) error {
	res, err := p.Client.Delete(p.Index, strconv.FormatUint(uint64(id), 10),
		p.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

func (p *ProductIndex) Search(ctx context.Context, query string, from, size int) (*SearchResult, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := p.Client.Search(
		p.Client.Search.WithContext(ctx),
		p.Client.Search.WithIndex(p.Index),
		p.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source ProductDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{Total: r.Hits.Total.Value, Items: make([]ProductDocument, 0, len(r.Hits.Hits))}
	for _, hit := range r.Hits.Hits {
		out.Items = append(out.Items, hit.Source)
	}
	return out, nil
}

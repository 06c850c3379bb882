package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

const backendElasticsearch = "elasticsearch"

// indexMapping keeps brand and category exact-match and createdAt sortable.
var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":            map[string]interface{}{"type": "keyword"},
			"title":         map[string]interface{}{"type": "text"},
			"price":         map[string]interface{}{"type": "double"},
			"imageUrl":      map[string]interface{}{"type": "keyword", "index": false},
			"instructor":    map[string]interface{}{"type": "keyword"},
			"description":   map[string]interface{}{"type": "text"},
			"category":      map[string]interface{}{"type": "keyword"},
			"brand":         map[string]interface{}{"type": "keyword"},
			"createdAt":     map[string]interface{}{"type": "date"},
			"viewCount":     map[string]interface{}{"type": "integer"},
			"purchaseCount": map[string]interface{}{"type": "integer"},
			"rating":        map[string]interface{}{"type": "float"},
		},
	},
}

// ElasticsearchStore keeps one document per product, keyed by product id.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchStore {
	return &ElasticsearchStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"catalogBackend": backendElasticsearch, "index": index}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type getResponse struct {
	Found       bool           `json:"found"`
	SeqNo       *int           `json:"_seq_no"`
	PrimaryTerm *int           `json:"_primary_term"`
	Source      models.Product `json:"_source"`
}

// EnsureIndex creates the products index with its mapping when missing.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, responseError(res))
	}

	s.logger.Info("catalog index created", nil)
	return nil
}

// BuildRecentQuery is the search body for the candidate query.
func BuildRecentQuery(q models.CandidateQuery) map[string]interface{} {
	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if q.Brand != "" {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"brand": q.Brand}},
				},
			},
		}
	}

	return map[string]interface{}{
		"size":  NormalizeLimit(q.Limit),
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc", "unmapped_type": "date"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc", "unmapped_type": "keyword"}},
		},
	}
}

func (s *ElasticsearchStore) Recent(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	body, err := json.Marshal(BuildRecentQuery(q))
	if err != nil {
		return nil, readError(ctx, backendElasticsearch, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, readError(ctx, backendElasticsearch, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, readError(ctx, backendElasticsearch, fmt.Errorf("search: %s", responseError(res)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, readError(ctx, backendElasticsearch, fmt.Errorf("decode search response: %w", err))
	}

	products := make([]models.Product, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		p := hit.Source
		if p.ID == "" {
			p.ID = hit.ID
		}
		products = append(products, p)
	}

	s.logger.Debug("candidates loaded", map[string]interface{}{
		"brand": q.Brand,
		"count": len(products),
	})
	return products, nil
}

func (s *ElasticsearchStore) Get(ctx context.Context, id string) (*models.Product, error) {
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &doc.Source, nil
}

func (s *ElasticsearchStore) lookup(ctx context.Context, id string) (*getResponse, error) {
	res, err := esapi.GetRequest{Index: s.index, DocumentID: id}.Do(ctx, s.client)
	if err != nil {
		return nil, readError(ctx, backendElasticsearch, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, readError(ctx, backendElasticsearch, fmt.Errorf("get: %s", responseError(res)))
	}

	var parsed getResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, readError(ctx, backendElasticsearch, fmt.Errorf("decode get response: %w", err))
	}
	if !parsed.Found {
		return nil, ErrNotFound
	}
	if parsed.Source.ID == "" {
		parsed.Source.ID = id
	}
	return &parsed, nil
}

func (s *ElasticsearchStore) Insert(ctx context.Context, p *models.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return writeError(string(models.CatalogActionInsert), err)
	}

	req := esapi.CreateRequest{
		Index:      s.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}
	return s.write(ctx, models.CatalogActionInsert, req)
}

// Update replaces the whole document, so fields cleared by the caller are
// cleared in the index too. The write is conditional on the sequence number
// read first, which keeps a concurrent delete from being undone.
func (s *ElasticsearchStore) Update(ctx context.Context, p *models.Product) error {
	current, err := s.lookup(ctx, p.ID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return writeError(string(models.CatalogActionUpdate), err)
	}

	req := esapi.IndexRequest{
		Index:         s.index,
		DocumentID:    p.ID,
		Body:          bytes.NewReader(body),
		IfSeqNo:       current.SeqNo,
		IfPrimaryTerm: current.PrimaryTerm,
		Refresh:       "wait_for",
	}
	return s.write(ctx, models.CatalogActionUpdate, req)
}

func (s *ElasticsearchStore) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: id,
		Refresh:    "wait_for",
	}
	return s.write(ctx, models.CatalogActionDelete, req)
}

func (s *ElasticsearchStore) write(ctx context.Context, action models.CatalogAction, req esapi.Request) error {
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return writeError(string(action), err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound && action != models.CatalogActionInsert {
		return ErrNotFound
	}
	if res.IsError() {
		return writeError(string(action), fmt.Errorf("%s", responseError(res)))
	}
	return nil
}

func responseError(res *esapi.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var parsed struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Type != "" {
		return fmt.Sprintf("[%d] %s: %s", res.StatusCode, parsed.Error.Type, parsed.Error.Reason)
	}
	return fmt.Sprintf("[%d] %s", res.StatusCode, string(raw))
}

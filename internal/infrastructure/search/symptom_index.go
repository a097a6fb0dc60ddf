package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// SymptomIndex keeps a searchable copy of symptom logs in Elasticsearch.
type SymptomIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewSymptomIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *SymptomIndex {
	return &SymptomIndex{ES: es, Index: index, Logger: logger}
}

// Document is the indexed projection of a symptom log.
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SymptomName string    `json:"symptom_name"`
	Category    string    `json:"category"`
	Severity    int       `json:"severity"`
	Description string    `json:"description"`
	Notes       string    `json:"notes,omitempty"`
	Tags        []string  `json:"tags"`
	Resolved    bool      `json:"resolved"`
	LoggedAt    time.Time `json:"logged_at"`
}

func NewDocument(s *entity.SymptomLog) Document {
	return Document{
		ID:          s.ID.Hex(),
		UserID:      s.UserID.Hex(),
		SymptomName: s.SymptomName,
		Category:    s.Category,
		Severity:    s.Severity,
		Description: s.Description,
		Notes:       s.Notes,
		Tags:        s.Tags,
		Resolved:    s.Resolved,
		LoggedAt:    s.LoggedAt,
	}
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":           map[string]any{"type": "keyword"},
			"user_id":      map[string]any{"type": "keyword"},
			"symptom_name": map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"category":     map[string]any{"type": "keyword"},
			"severity":     map[string]any{"type": "integer"},
			"description":  map[string]any{"type": "text"},
			"notes":        map[string]any{"type": "text"},
			"tags":         map[string]any{"type": "keyword"},
			"resolved":     map[string]any{"type": "boolean"},
			"logged_at":    map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *SymptomIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	b, _ := json.Marshal(indexMapping)
	res, err = x.ES.Indices.Create(x.Index, x.ES.Indices.Create.WithContext(c), x.ES.Indices.Create.WithBody(bytes.NewReader(b)))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}

func (x *SymptomIndex) Put(ctx context.Context, s *entity.SymptomLog) error {
	b, err := json.Marshal(NewDocument(s))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: s.ID.Hex(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index symptom %s: %s", s.ID.Hex(), res.Status())
	}
	return nil
}

func (x *SymptomIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete symptom %s: %s", id, res.Status())
	}
	return nil
}

// BuildQuery scopes a multi_match query to one owner.
func BuildQuery(userID, q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"symptom_name^3", "tags^2", "description", "notes"},
						"fuzziness": "AUTO",
					}},
				},
			},
		},
		"_source": false,
		"size":    size,
	}
}

// Search returns matching log ids for userID, best match first.
func (x *SymptomIndex) Search(ctx context.Context, userID, q string, size int) ([]string, error) {
	if size <= 0 || size > 100 {
		size = 20
	}
	b, _ := json.Marshal(BuildQuery(userID, strings.TrimSpace(q), size))

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", x.Index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

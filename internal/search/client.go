package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Index names
const (
	IndexProjects = "projects"
	IndexUsers    = "users"
)

// Client indexes and queries projects and users in Elasticsearch.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to the cluster at url and checks it answers.
func NewClient(ctx context.Context, url string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return &Client{es: es}, nil
}

var projectMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "keyword"},
			"title":       map[string]interface{}{"type": "text", "analyzer": "standard"},
			"description": map[string]interface{}{"type": "text", "analyzer": "standard"},
			"author_id":   map[string]interface{}{"type": "keyword"},
			"author_name": map[string]interface{}{"type": "text"},
			"is_public":   map[string]interface{}{"type": "boolean"},
			"like_count":  map[string]interface{}{"type": "integer"},
			"created_at":  map[string]interface{}{"type": "date"},
		},
	},
}

var userMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "keyword"},
			"username": map[string]interface{}{
				"type":     "text",
				"analyzer": "standard",
				"fields":   map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
			},
			"display_name":   map[string]interface{}{"type": "text", "analyzer": "standard"},
			"bio":            map[string]interface{}{"type": "text", "analyzer": "standard"},
			"follower_count": map[string]interface{}{"type": "integer"},
		},
	},
}

// InitializeIndices creates the indices that do not exist yet.
func (c *Client) InitializeIndices(ctx context.Context) error {
	if err := c.createIndex(ctx, IndexProjects, projectMapping); err != nil {
		return fmt.Errorf("failed to create projects index: %w", err)
	}
	if err := c.createIndex(ctx, IndexUsers, userMapping); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, name string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	res, err = c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	return responseError(res, "creating index")
}

// ProjectDoc is the indexed form of a project.
type ProjectDoc struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	IsPublic    bool      `json:"is_public"`
	LikeCount   int       `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserDoc is the indexed form of a user.
type UserDoc struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	Bio           string `json:"bio"`
	FollowerCount int    `json:"follower_count"`
}

func projectDoc(p *models.Project) ProjectDoc {
	return ProjectDoc{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName,
		IsPublic:    p.IsPublic,
		LikeCount:   p.LikeCount,
		CreatedAt:   p.CreatedAt,
	}
}

func userDoc(u *models.User) UserDoc {
	return UserDoc{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Bio:           u.Bio,
		FollowerCount: u.FollowerCount,
	}
}

// IndexProject upserts a project document. Private projects are indexed too and
// filtered at query time, so a visibility change only needs a reindex.
func (c *Client) IndexProject(ctx context.Context, p *models.Project) error {
	return c.index(ctx, IndexProjects, p.ID, projectDoc(p))
}

// IndexUser upserts a user document.
func (c *Client) IndexUser(ctx context.Context, u *models.User) error {
	return c.index(ctx, IndexUsers, u.ID, userDoc(u))
}

// DeleteProject removes a project document. A missing document is not an error.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	res, err := c.es.Delete(IndexProjects, projectID, c.es.Delete.WithContext(ctx))
	if err != nil {
		recordIndexOp(IndexProjects, "delete", err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		recordIndexOp(IndexProjects, "delete", nil)
		return nil
	}
	err = responseError(res, "deleting project")
	recordIndexOp(IndexProjects, "delete", err)
	return err
}

func (c *Client) index(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", index, err)
	}
	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		recordIndexOp(index, "index", err)
		return fmt.Errorf("failed to index %s document: %w", index, err)
	}
	err = responseError(res, "indexing "+index)
	recordIndexOp(index, "index", err)
	return err
}

func recordIndexOp(index, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Get().SearchIndexOpsTotal.WithLabelValues(index, operation, result).Inc()
}

// ProjectIDs returns ids of public projects matching query, best match first.
func (c *Client) ProjectIDs(ctx context.Context, query string, limit int) ([]string, error) {
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"title^3", "description", "author_name"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{"term": map[string]interface{}{"is_public": true}},
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"like_count": "desc"}},
		"size": limit,
	}
	return c.searchIDs(ctx, IndexProjects, q)
}

// UserIDs returns ids of users matching query.
func (c *Client) UserIDs(ctx context.Context, query string, limit int) ([]string, error) {
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":         query,
				"fields":        []string{"username^2", "display_name^1.5", "bio^0.5"},
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"follower_count": "desc"}},
		"size": limit,
	}
	return c.searchIDs(ctx, IndexUsers, q)
}

func (c *Client) searchIDs(ctx context.Context, index string, query map[string]interface{}) ([]string, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithSource("false"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("error searching %s: [%s]", index, res.Status())
	}
	return decodeHitIDs(res.Body)
}

func decodeHitIDs(r io.Reader) ([]string, error) {
	var resp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// responseError closes res and reports an error status.
func responseError(res *esapi.Response, action string) error {
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	var errResp map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("error %s [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}

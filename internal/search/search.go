// Package search finds public projects and users. Elasticsearch serves queries
// when configured; otherwise, or when it fails, a case-insensitive LIKE query
// runs against the database.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/showcase/internal/cache"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/repository"
	"go.uber.org/zap"
)

// Type selects what to search.
type Type string

const (
	TypeProjects Type = "projects"
	TypeUsers    Type = "users"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
	cacheTTL     = 2 * time.Minute
)

var ErrUnknownType = fmt.Errorf("type must be projects or users: %w", apperrors.ErrBadRequest)

// ParseType accepts an empty value as projects.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeProjects:
		return TypeProjects, nil
	case TypeUsers:
		return TypeUsers, nil
	}
	return "", ErrUnknownType
}

// Backend is a full-text index that returns matching ids.
type Backend interface {
	ProjectIDs(ctx context.Context, query string, limit int) ([]string, error)
	UserIDs(ctx context.Context, query string, limit int) ([]string, error)
}

// Results holds the hits for one query. Only the slice for the searched type is set.
type Results struct {
	Query    string            `json:"query"`
	Type     Type              `json:"type"`
	Projects []*models.Project `json:"projects,omitempty"`
	Users    []*models.User    `json:"users,omitempty"`
	Backend  string            `json:"backend"`
}

type Service struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	backend  Backend
	cache    *cache.RedisClient
}

// NewService builds a search service. backend and rc may be nil.
func NewService(projects repository.ProjectRepository, users repository.UserRepository, backend Backend, rc *cache.RedisClient) *Service {
	return &Service{projects: projects, users: users, backend: backend, cache: rc}
}

// Search runs query against the index, falling back to the database.
func (s *Service) Search(ctx context.Context, query string, typ Type, limit int) (*Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Invalid("q", "Search query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	res := &Results{Query: query, Type: typ}
	if s.backend != nil {
		ids, err := s.indexIDs(ctx, query, typ, limit)
		if err == nil {
			res.Backend = "elasticsearch"
			metrics.Get().SearchQueriesTotal.WithLabelValues(res.Backend, string(typ)).Inc()
			return res, s.hydrate(ctx, res, ids)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.WarnWithFields("Search index unavailable, using database", err, zap.String("query", query))
	}

	res.Backend = "database"
	metrics.Get().SearchQueriesTotal.WithLabelValues(res.Backend, string(typ)).Inc()
	var err error
	switch typ {
	case TypeUsers:
		res.Users, err = s.users.SearchUsers(ctx, query, limit)
	default:
		res.Projects, err = s.projects.SearchPublic(ctx, query, limit)
	}
	return res, err
}

func (s *Service) indexIDs(ctx context.Context, query string, typ Type, limit int) ([]string, error) {
	key := cacheKey(typ, query, limit)
	var ids []string
	if s.cache != nil {
		if err := s.cache.GetJSON(ctx, key, &ids); err == nil {
			return ids, nil
		}
	}

	var err error
	if typ == TypeUsers {
		ids, err = s.backend.UserIDs(ctx, query, limit)
	} else {
		ids, err = s.backend.ProjectIDs(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, ids, cacheTTL); err != nil {
			logger.Log.Debug("Search cache write failed", zap.Error(err))
		}
	}
	return ids, nil
}

// hydrate loads rows for index hits. Project rows are re-filtered for visibility
// since the index can lag behind a project going private.
func (s *Service) hydrate(ctx context.Context, res *Results, ids []string) error {
	var err error
	if res.Type == TypeUsers {
		var users []*models.User
		users, err = s.users.GetUsers(ctx, ids)
		res.Users = orderUsers(users, ids)
		return err
	}
	res.Projects, err = s.projects.ListPublicByIDs(ctx, ids)
	return err
}

func orderUsers(users []*models.User, ids []string) []*models.User {
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]*models.User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

func cacheKey(typ Type, query string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", typ, strings.ToLower(query), limit)))
	return "search:" + string(typ) + ":" + hex.EncodeToString(sum[:8])
}

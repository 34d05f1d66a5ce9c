package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode selects which projects a feed draws from.
type Mode string

const (
	ModeDiscover  Mode = "discover"
	ModeFollowing Mode = "following"
)

// EmptyFollowingMessage is returned instead of an error when the viewer follows nobody.
const EmptyFollowingMessage = "You're not following anyone yet. Discover projects to find people to follow."

// Feed is an assembled, ordered list of projects. Message explains an empty
// result and is not an error.
type Feed struct {
	Mode    Mode              `json:"mode"`
	Order   repository.Order  `json:"order"`
	Items   []*models.Project `json:"items"`
	Empty   bool              `json:"empty"`
	Message string            `json:"message,omitempty"`
	Meta    Meta              `json:"meta"`
}

// Meta describes how a feed was assembled.
type Meta struct {
	Count          int `json:"count"`
	FollowingCount int `json:"following_count,omitempty"`
	Batches        int `json:"batches,omitempty"`
}

// Options tunes assembly.
type Options struct {
	// MaxInQuery is the most author ids placed in one membership query.
	MaxInQuery int
	// Concurrency bounds the batch queries in flight.
	Concurrency int
	// DiscoverPublicOnly hides private projects from discover. Off by default,
	// which keeps private projects visible there.
	DiscoverPublicOnly bool
	// ReadTimeout bounds the whole assembly.
	ReadTimeout time.Duration
	// MaxTries is how many times a failed batch read is attempted.
	MaxTries uint
}

func (o Options) withDefaults() Options {
	if o.MaxInQuery <= 0 {
		o.MaxInQuery = 30
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxTries == 0 {
		o.MaxTries = 3
	}
	return o
}

// Service assembles feeds by querying at read time (fan-out on read).
type Service struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	opts     Options
}

// NewService creates a feed service
func NewService(projects repository.ProjectRepository, users repository.UserRepository, opts Options) *Service {
	return &Service{projects: projects, users: users, opts: opts.withDefaults()}
}

// Discover returns every project ordered by creation time.
func (s *Service) Discover(ctx context.Context, order repository.Order) (*Feed, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "feed.discover",
		attribute.String("feed.order", string(order)),
		attribute.Bool("feed.public_only", s.opts.DiscoverPublicOnly),
	)

	projects, err := s.projects.ListAll(ctx, order, s.opts.DiscoverPublicOnly)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	SortByCreated(projects, order)
	s.observe(ModeDiscover, start, len(projects))
	return &Feed{
		Mode:  ModeDiscover,
		Order: order,
		Items: projects,
		Empty: len(projects) == 0,
		Meta:  Meta{Count: len(projects)},
	}, nil
}

// Following returns public projects by authors the viewer follows. The author set is
// split into batches of at most MaxInQuery ids; batches run concurrently and their
// results are merged and re-sorted. A batch that still fails after retries fails the
// whole feed rather than returning a silently truncated one.
func (s *Service) Following(ctx context.Context, viewerID string, order repository.Order) (*Feed, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "feed.following", attribute.String("feed.order", string(order)))

	following, err := s.users.FollowingIDs(ctx, viewerID)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, fmt.Errorf("load following: %w", err)
	}
	span.SetAttributes(attribute.Int("feed.following_count", len(following)))

	if len(following) == 0 {
		telemetry.EndSpan(span, nil)
		s.observe(ModeFollowing, start, 0)
		return &Feed{
			Mode:    ModeFollowing,
			Order:   order,
			Items:   []*models.Project{},
			Empty:   true,
			Message: EmptyFollowingMessage,
		}, nil
	}

	batches := Chunk(following, s.opts.MaxInQuery)
	results := make([][]*models.Project, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			projects, err := s.readBatch(gctx, batch)
			if err != nil {
				metrics.Get().FeedBatchesTotal.WithLabelValues("error").Inc()
				return err
			}
			metrics.Get().FeedBatchesTotal.WithLabelValues("ok").Inc()
			results[i] = projects
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.EndSpan(span, err)
		logger.Log.Warn("Following feed batch failed",
			logger.WithUserID(viewerID),
			zap.Int("batches", len(batches)),
			zap.Error(err))
		return nil, fmt.Errorf("load followed projects: %w", err)
	}

	items := merge(results)
	SortByCreated(items, order)
	telemetry.EndSpan(span, nil)
	s.observe(ModeFollowing, start, len(items))

	return &Feed{
		Mode:  ModeFollowing,
		Order: order,
		Items: items,
		Empty: len(items) == 0,
		Meta: Meta{
			Count:          len(items),
			FollowingCount: len(following),
			Batches:        len(batches),
		},
	}, nil
}

// readBatch retries transient failures with exponential backoff. Reads are idempotent.
func (s *Service) readBatch(ctx context.Context, authorIDs []string) ([]*models.Project, error) {
	return backoff.Retry(ctx, func() ([]*models.Project, error) {
		projects, err := s.projects.ListPublicByAuthors(ctx, authorIDs)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(err)
		}
		return projects, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.opts.MaxTries),
	)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ReadTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.ReadTimeout)
}

func (s *Service) observe(mode Mode, start time.Time, count int) {
	m := metrics.Get()
	m.FeedAssemblySeconds.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	m.FeedItems.WithLabelValues(string(mode)).Observe(float64(count))
}

// merge concatenates batch results, keeping the first copy of any project id.
func merge(batches [][]*models.Project) []*models.Project {
	seen := make(map[string]bool)
	out := make([]*models.Project, 0)
	for _, batch := range batches {
		for _, p := range batch {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(ids)
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// SortKey is the creation time in whole seconds since the epoch. A zero timestamp
// maps to 0, so undated projects sort last under NewestFirst.
func SortKey(p *models.Project) int64 {
	if p.CreatedAt.IsZero() {
		return 0
	}
	return p.CreatedAt.Unix()
}

// SortByCreated orders projects by SortKey. Equal keys keep their incoming order;
// there is no secondary key.
func SortByCreated(projects []*models.Project, order repository.Order) {
	sort.SliceStable(projects, func(i, j int) bool {
		if order == repository.OldestFirst {
			return SortKey(projects[i]) < SortKey(projects[j])
		}
		return SortKey(projects[i]) > SortKey(projects[j])
	})
}

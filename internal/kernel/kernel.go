// Package kernel wires the server's dependencies together and owns their
// shutdown order.
package kernel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zfogg/showcase/internal/auth"
	"github.com/zfogg/showcase/internal/cache"
	"github.com/zfogg/showcase/internal/cleanup"
	"github.com/zfogg/showcase/internal/config"
	"github.com/zfogg/showcase/internal/discussions"
	"github.com/zfogg/showcase/internal/email"
	"github.com/zfogg/showcase/internal/feed"
	"github.com/zfogg/showcase/internal/handlers"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/notify"
	"github.com/zfogg/showcase/internal/profile"
	"github.com/zfogg/showcase/internal/projects"
	"github.com/zfogg/showcase/internal/queue"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/search"
	"github.com/zfogg/showcase/internal/social"
	"github.com/zfogg/showcase/internal/storage"
	"github.com/zfogg/showcase/internal/websocket"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies.
type Kernel struct {
	cfg *config.Config

	// Core infrastructure
	db    *gorm.DB
	cache *cache.RedisClient
	queue *queue.Queue
	hub   *websocket.Hub

	// Optional clients
	search *search.Client
	s3     *storage.S3Uploader
	ses    *email.SESSender

	auth     *auth.Service
	handlers *handlers.Handlers

	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// Options overrides parts of the build, mainly for tests.
type Options struct {
	// SkipExternal leaves Redis, Elasticsearch, S3 and SES unconfigured
	// regardless of the environment.
	SkipExternal bool
	// Google enables SSO. Nil reads GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET.
	Google *oauth2.Config
}

// Build constructs every service on top of an open, migrated database.
// Optional backends that are unconfigured or unreachable are logged and left out.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) (*Kernel, error) {
	k := &Kernel{cfg: cfg, db: db}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if !opts.SkipExternal {
		k.connectExternal(ctx)
	}

	k.queue = queue.New(queue.Options{Workers: cfg.WorkerCount})
	k.queue.Start()
	k.OnShutdown(k.queue.Stop)

	k.hub = websocket.NewHub()
	go k.hub.Run()
	k.OnShutdown(func(context.Context) error {
		k.hub.Shutdown()
		return nil
	})

	if cfg.CleanupInterval > 0 {
		sweeper := cleanup.NewService(db, cfg.CleanupInterval, cfg.NotificationRetention)
		sweeper.Start()
		k.OnShutdown(sweeper.Stop)
	}

	users := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	notifier := notify.NewService(db)
	notifier.SetPusher(k.hub)
	if cfg.AsyncNotifications {
		notifier.SetQueue(k.queue)
	}

	projectSvc := projects.NewService(db, projectRepo, users, notifier)
	profiles := profile.NewService(users, projectRepo, projectSvc, cfg.DefaultPreferences)
	profiles.SetQueue(k.queue)

	k.auth = auth.NewService(db, users, cfg.JWTSecret, cfg.TokenTTL, cfg.DefaultPreferences)
	google := opts.Google
	if google == nil {
		google = config.LoadGoogleOAuth()
	}
	k.auth.SetGoogle(google)

	var backend search.Backend
	if k.search != nil {
		backend = k.search
		projectSvc.SetIndexer(k.search)
		profiles.SetIndexer(k.search)
		k.auth.SetIndexer(k.search)
	}
	if k.s3 != nil {
		profiles.SetUploader(k.s3)
	}
	if k.ses != nil {
		k.auth.SetEmailer(k.ses)
	}

	k.handlers = handlers.NewHandlers(handlers.Services{
		DB:            db,
		Auth:          k.auth,
		Profiles:      profiles,
		Social:        social.NewService(db, users, projectRepo, notifier),
		Projects:      projectSvc,
		Discussions:   discussions.NewService(db),
		Notifications: notifier,
		Feed: feed.NewService(projectRepo, users, feed.Options{
			MaxInQuery:         cfg.Feed.MaxInQuery,
			Concurrency:        cfg.Feed.Concurrency,
			DiscoverPublicOnly: cfg.Feed.DiscoverPublicOnly,
			ReadTimeout:        cfg.Store.ReadTimeout,
		}),
		Search: search.NewService(projectRepo, users, backend, k.cache),
	})
	k.handlers.SetWebSocketHandler(websocket.NewHandler(k.hub, k.auth, allowedOrigins(cfg)))
	return k, nil
}

func (k *Kernel) connectExternal(ctx context.Context) {
	cfg := k.cfg

	if cfg.RedisHost != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, rate limiting and response cache disabled", err)
		} else {
			k.cache = rc
			k.OnShutdown(func(context.Context) error { return rc.Close() })
		}
	}

	if cfg.ElasticsearchURL != "" {
		sc, err := search.NewClient(ctx, cfg.ElasticsearchURL)
		if err == nil {
			err = sc.InitializeIndices(ctx)
		}
		if err != nil {
			logger.WarnWithFields("Elasticsearch unavailable, search uses the database", err)
		} else {
			k.search = sc
		}
	}

	if cfg.S3Bucket != "" {
		up, err := storage.NewS3Uploader(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBaseURL)
		if err != nil {
			logger.WarnWithFields("S3 unavailable, photo uploads disabled", err)
		} else {
			k.s3 = up
		}
	}

	if cfg.EmailFrom != "" {
		sender, err := email.NewSESSender(ctx, cfg.AWSRegion, cfg.EmailFrom, cfg.EmailName, cfg.AppBaseURL)
		if err != nil {
			logger.WarnWithFields("SES unavailable, reset emails disabled", err)
		} else {
			k.ses = sender
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.AppBaseURL}
}

// Validate checks that the required dependencies are present.
func (k *Kernel) Validate() error {
	var missing []string
	if k.cfg == nil {
		missing = append(missing, "config")
	}
	if k.db == nil {
		missing = append(missing, "database")
	}
	if k.cfg != nil && len(k.cfg.JWTSecret) == 0 {
		missing = append(missing, "JWT secret")
	}
	if len(missing) > 0 {
		return NewInitializationError("missing required dependencies", missing)
	}
	return nil
}

// OnShutdown registers fn to run at Shutdown. Hooks run in reverse order.
func (k *Kernel) OnShutdown(fn func(context.Context) error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
}

// Shutdown runs the cleanup hooks, last registered first, and joins their errors.
func (k *Kernel) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	fns := k.cleanupFuncs
	k.cleanupFuncs = nil
	k.mu.Unlock()

	start := time.Now()
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Log.Info("Kernel shut down", zap.Duration("took", time.Since(start)), zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

func (k *Kernel) DB() *gorm.DB                 { return k.db }
func (k *Kernel) Cache() *cache.RedisClient    { return k.cache }
func (k *Kernel) Queue() *queue.Queue          { return k.queue }
func (k *Kernel) Hub() *websocket.Hub          { return k.hub }
func (k *Kernel) Auth() *auth.Service          { return k.auth }
func (k *Kernel) Handlers() *handlers.Handlers { return k.handlers }
func (k *Kernel) Search() *search.Client       { return k.search }

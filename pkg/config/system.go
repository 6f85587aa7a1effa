package config

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/aggregator"
	"github.com/driveio/fedfs/pkg/cache"
	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/gc"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/metrics"
	"github.com/driveio/fedfs/pkg/registry"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
	"github.com/driveio/fedfs/pkg/store/local"
	"github.com/driveio/fedfs/pkg/store/provider"
	"github.com/driveio/fedfs/pkg/upload"
)

// System bundles the shared components built from one configuration. The
// per-user pieces (internal store, aggregator) are derived from it.
type System struct {
	DB       *localdb.DB
	Content  content.Repository
	Registry *registry.Registry

	cfg *Config
}

// Build materializes the configuration: database, content storage and every
// configured provider account.
func Build(ctx context.Context, cfg *Config) (*System, error) {
	db, err := OpenDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	repo, err := CreateContentRepository(ctx, &cfg.Content)
	if err != nil {
		db.Close()
		return nil, err
	}

	var providerMetrics provider.Metrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		providerMetrics = metrics.NewProviderMetrics()
	}

	reg := registry.New(db)
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if err := registerProvider(ctx, reg, db, cfg, p, providerMetrics); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("system ready: %d provider(s) registered", len(cfg.Providers))
	return &System{DB: db, Content: repo, Registry: reg, cfg: cfg}, nil
}

func registerProvider(ctx context.Context, reg *registry.Registry, db *localdb.DB, cfg *Config, p *ProviderConfig, m provider.Metrics) error {
	client, err := CreateProviderClient(ctx, p)
	if err != nil {
		return err
	}
	client = provider.Meter(client, p.Key, m)
	client = provider.Throttle(client, p.RateLimit.RequestsPerSecond, p.RateLimit.Burst)

	owner := uuid.Nil
	if p.Owner != "" {
		owner, err = uuid.Parse(p.Owner)
		if err != nil {
			return fmt.Errorf("provider %s: invalid owner: %w", p.Key, err)
		}
	}

	st, err := provider.New(provider.Options{
		Key:        p.Key,
		ProviderID: p.ID,
		RootTitle:  p.Title,
		RootType:   rootTypeOf(p.Root),
		Owner:      owner,
		Client:     client,
		DB:         db,
		Cache: cache.Config{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		},
	})
	if err != nil {
		return err
	}

	return reg.Register(registry.Registration{
		ID:        p.ID,
		Key:       p.Key,
		Title:     p.Title,
		RootType:  rootTypeOf(p.Root),
		Owner:     owner,
		CreatedOn: time.Now(),
		Store:     st,
	})
}

func rootTypeOf(root string) entry.RootType {
	switch root {
	case "common":
		return entry.RootCommon
	case "virtualrooms":
		return entry.RootVirtualRooms
	default:
		return entry.RootUser
	}
}

// InternalStore derives an internal store acting as the given user.
func (s *System) InternalStore(actor uuid.UUID) (*local.Store, error) {
	return local.New(local.Options{
		DB:      s.DB,
		Content: s.Content,
		Actor:   actor,
	})
}

// AggregatorFor derives an aggregator viewing as the given user.
func (s *System) AggregatorFor(user uuid.UUID, oracle security.Oracle, shares security.ShareResolver) (*aggregator.Aggregator, error) {
	internal, err := s.InternalStore(user)
	if err != nil {
		return nil, err
	}
	return aggregator.New(aggregator.Options{
		Internal:  internal,
		Providers: s.Registry,
		DB:        s.DB,
		Oracle:    oracle,
		Shares:    shares,
		User:      user,
	})
}

// Collector builds the orphaned content collector from the system
// configuration.
func (s *System) Collector() (*gc.Collector, error) {
	return gc.NewCollector(s.DB, s.Content, gc.Config{
		Enabled:     s.cfg.GC.Enabled,
		Interval:    s.cfg.GC.Interval,
		DryRun:      s.cfg.GC.DryRun,
		GracePrefix: s.cfg.GC.GracePrefixes,
	})
}

// UploadManager builds an upload session manager over the store, spilling
// into the system's content repository. Metrics follow the system
// configuration.
func UploadManager[T entry.ID](s *System, st store.Store[T]) *upload.Manager[T] {
	cfg := upload.Config{
		ChunkThreshold: s.cfg.Upload.ChunkThreshold,
		TTL:            s.cfg.Upload.SessionTTL,
	}
	if s.cfg.Metrics.Enabled {
		cfg.Metrics = metrics.NewUploadMetrics()
	}
	return upload.NewManager(st, s.Content, cfg)
}

// Close releases the database.
func (s *System) Close() error {
	return s.DB.Close()
}

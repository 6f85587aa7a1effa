package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/config"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/metrics"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
)

// treeRoots are the folders every deployment starts with.
var treeRoots = []struct {
	rootType entry.RootType
	title    string
}{
	{entry.RootUser, "My Documents"},
	{entry.RootCommon, "Common"},
	{entry.RootTrash, "Trash"},
	{entry.RootRecent, "Recent"},
	{entry.RootFavorites, "Favorites"},
	{entry.RootTemplates, "Templates"},
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/fedfs/config.yaml)")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	asUser := flag.String("user", "", "UUID to act as (default: a generated user)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("fedfs - federated filesystem node")

	user := uuid.New()
	if *asUser != "" {
		user, err = uuid.Parse(*asUser)
		if err != nil {
			log.Fatalf("Invalid -user: %v", err)
		}
	}
	logger.Info("Acting as user %s", user)

	system, err := config.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build system: %v", err)
	}
	defer system.Close()

	collector, err := system.Collector()
	if err != nil {
		log.Fatalf("Failed to create garbage collector: %v", err)
	}
	collector.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := collector.Stop(stopCtx); err != nil {
			logger.Warn("Garbage collector: %v", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server: %v", err)
			}
		}()
	}

	internal, err := system.InternalStore(user)
	if err != nil {
		log.Fatalf("Failed to create internal store: %v", err)
	}
	for _, root := range treeRoots {
		id, err := internal.EnsureRoot(ctx, root.rootType, root.title, user)
		if err != nil {
			log.Fatalf("Failed to ensure %s root: %v", root.rootType, err)
		}
		logger.Debug("Root %q ready with id %d", root.title, id)
	}

	agg, err := system.AggregatorFor(user, security.AllowAll{}, nil)
	if err != nil {
		log.Fatalf("Failed to create aggregator: %v", err)
	}

	userRoot, err := internal.EnsureRoot(ctx, entry.RootUser, "My Documents", user)
	if err != nil {
		log.Fatalf("Failed to resolve user root: %v", err)
	}
	page, err := agg.GetEntries(ctx, entry.Internal(userRoot), 0, 0, store.ListOptions{})
	if err != nil {
		log.Fatalf("Failed to list user root: %v", err)
	}
	logger.Info("User root holds %d entries", page.Total)
	for _, e := range page.Entries {
		kind := "file"
		if e.IsFolder() {
			kind = "folder"
		}
		logger.Info("  %-6s %s (%s)", kind, e.Title, e.Ref.String())
	}

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %s, shutting down", sig)
	cancel()
}

// Package gc removes orphaned blobs from the content repository.
//
// A blob is orphaned when no file node references its content id. Orphans
// accumulate from crashes between a metadata commit and the matching blob
// delete, and from upload spill blobs whose session died with the process.
package gc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/localdb"
)

// Collector periodically scans the content repository for orphaned blobs
// and deletes them.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	db     *localdb.DB
	repo   content.Lister
	full   content.Repository
	config Config
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether garbage collection is active.
	Enabled bool

	// Interval is how often to run garbage collection (default: 24h).
	Interval time.Duration

	// GracePrefix names blob id prefixes the collector never touches.
	// Defaults to the upload spill prefix; live upload sessions reference
	// their spill blobs only in memory, so the collector cannot tell a
	// live spill from a dead one.
	GracePrefix []string

	// DryRun logs what would be deleted without deleting.
	DryRun bool
}

// NewCollector creates a garbage collector over the database and content
// repository. The repository must implement content.Lister.
//
// The collector is initialized but not started; call Start() to begin
// background collection.
func NewCollector(db *localdb.DB, repo content.Repository, config Config) (*Collector, error) {
	lister, ok := repo.(content.Lister)
	if !ok {
		return nil, fmt.Errorf("content repository does not support listing")
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.GracePrefix == nil {
		config.GracePrefix = []string{"upload-spill-"}
	}

	return &Collector{
		db:     db,
		repo:   lister,
		full:   repo,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start begins background garbage collection. Safe to call when disabled;
// it then does nothing.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s dry_run=%v",
		c.config.Interval, c.config.DryRun)

	go c.worker()
}

// Stop stops the collector and waits for any in-progress run to finish, or
// for the context to expire.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate collection run and blocks until it completes
// or the context is cancelled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs one run:
//  1. read every content id referenced by a file node
//  2. list every blob in the repository
//  3. delete blobs that are neither referenced nor grace-prefixed
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	referenced, err := c.db.AllContentIDs()
	if err != nil {
		return stats, fmt.Errorf("failed to read referenced content: %w", err)
	}
	stats.ReferencedCount = len(referenced)

	referencedSet := make(map[string]struct{}, len(referenced))
	for _, id := range referenced {
		referencedSet[id] = struct{}{}
	}

	existing, err := c.repo.ListAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = len(existing)

	var orphaned []content.ContentID
	for _, id := range existing {
		if _, ok := referencedSet[string(id)]; ok {
			continue
		}
		if c.graced(string(id)) {
			continue
		}
		orphaned = append(orphaned, id)
	}
	stats.OrphanedCount = len(orphaned)

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC dry run: would delete %d blob(s)", len(orphaned))
		for _, id := range orphaned {
			logger.Debug("GC dry run: orphan %s", id)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	for _, id := range orphaned {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}
		if err := c.full.Delete(ctx, id); err != nil {
			logger.Warn("GC: failed to delete %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	stats.EndTime = time.Now()
	return stats, nil
}

func (c *Collector) graced(id string) bool {
	for _, p := range c.config.GracePrefix {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// Stats contains statistics from one collection run.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount int
	ExistingCount   int
	OrphanedCount   int
	DeletedCount    int
	FailedCount     int
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}

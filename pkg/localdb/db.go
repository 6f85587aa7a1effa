// Package localdb is the local bookkeeping database of the filesystem layer.
//
// It persists the rows that attach local metadata to entries regardless of
// where their bytes live: identifier mapping rows translating stable hash ids
// to federated paths, tag rows (favorite, template, recent, new, locked), and
// security rows. The internal folder/file store also keeps its metadata here.
//
// Backed by BadgerDB. Every multi-row mutation runs inside one Badger
// transaction, which gives the short-lived local atomicity the deletion
// cascade requires; no transaction ever spans a remote provider call.
package localdb

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driveio/fedfs/internal/logger"
)

// DB wraps the Badger handle shared by the mapping, tag, security and
// internal-store row families.
//
// Thread Safety:
// BadgerDB transactions provide isolation; DB is safe for concurrent use.
type DB struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Options configures the database.
type Options struct {
	// Path is the directory for the Badger value log and LSM tree.
	// Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Used by tests and ephemeral runs.
	InMemory bool
}

// Open opens (or creates) the local database.
func Open(opts Options) (*DB, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("database path is required")
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	seq, err := db.GetSequence(keyIDSequence, 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	logger.Debug("local database opened: path=%q in_memory=%v", opts.Path, opts.InMemory)

	return &DB{db: db, seq: seq}, nil
}

// Close releases the id sequence and closes the database.
func (d *DB) Close() error {
	if err := d.seq.Release(); err != nil {
		logger.Warn("failed to release id sequence: %v", err)
	}
	return d.db.Close()
}

// NextID allocates the next internal entry identifier. Ids start at 1; 0 is
// reserved as the invalid id.
func (d *DB) NextID() (int, error) {
	n, err := d.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return int(n) + 1, nil
}

// Update runs fn inside a read-write transaction.
func (d *DB) Update(fn func(txn *badger.Txn) error) error {
	return d.db.Update(fn)
}

// View runs fn inside a read-only transaction.
func (d *DB) View(fn func(txn *badger.Txn) error) error {
	return d.db.View(fn)
}

// Package registry tracks the connected provider accounts and routes
// federated identifiers to their stores.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store"
	"github.com/driveio/fedfs/pkg/store/provider"
)

// Registration is one connected provider account.
type Registration struct {
	ID        int
	Key       string
	Title     string
	RootType  entry.RootType
	Owner     uuid.UUID
	CreatedOn time.Time
	Store     *provider.Store
}

// Registry is the provider registration table.
//
// Thread Safety:
// Safe for concurrent use.
type Registry struct {
	db *localdb.DB

	mu   sync.RWMutex
	byID map[int]*Registration
	keys map[string]*Registration
}

// New returns an empty registry backed by the local database for
// unregistration cascades.
func New(db *localdb.DB) *Registry {
	return &Registry{
		db:   db,
		byID: make(map[int]*Registration),
		keys: make(map[string]*Registration),
	}
}

// Register adds a provider account. Keys must be unique.
func (r *Registry) Register(reg Registration) error {
	if reg.Key == "" || strings.Contains(reg.Key, ":") {
		return store.InvalidArgument("provider key %q must be non-empty and contain no ':'", reg.Key)
	}
	if reg.Store == nil {
		return store.InvalidArgument("provider %s: store is required", reg.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[reg.Key]; exists {
		return store.Conflict("provider key %s is already registered", reg.Key)
	}
	if _, exists := r.byID[reg.ID]; exists {
		return store.Conflict("provider id %d is already registered", reg.ID)
	}
	r.keys[reg.Key] = &reg
	r.byID[reg.ID] = &reg
	return nil
}

// Unregister removes a provider account and cascades away every local
// mapping, tag and security row attached to its entries. Remote content is
// untouched.
func (r *Registry) Unregister(ctx context.Context, key string) error {
	r.mu.Lock()
	reg, ok := r.keys[key]
	if ok {
		delete(r.keys, key)
		delete(r.byID, reg.ID)
	}
	r.mu.Unlock()
	if !ok {
		return store.NotFound(key)
	}
	return r.db.CascadeDelete(reg.Store.RootFolderID())
}

// ByKey returns the registration for a provider key.
func (r *Registry) ByKey(key string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.keys[key]
	return reg, ok
}

// ByID returns the registration for a numeric provider id.
func (r *Registry) ByID(id int) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[id]
	return reg, ok
}

// All returns the registrations in key order.
func (r *Registry) All() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Registration, 0, len(r.keys))
	for _, reg := range r.keys {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StoreFor resolves a federated identifier to its provider store by the key
// prefix before the first ':'.
func (r *Registry) StoreFor(id string) (*provider.Store, error) {
	key, _, ok := strings.Cut(id, ":")
	if !ok {
		return nil, store.InvalidArgument("malformed federated identifier %q", id)
	}
	reg, found := r.ByKey(key)
	if !found {
		return nil, store.NotFound(id)
	}
	return reg.Store, nil
}

// RootStubs returns a synthetic root folder per registration mounted under
// the given tree, built purely from registration metadata. Listing a tree
// that mounts providers shows these without any remote call; the remote is
// first touched when a stub is opened.
func (r *Registry) RootStubs(rootType entry.RootType) []*entry.Folder[string] {
	regs := r.All()
	out := make([]*entry.Folder[string], 0, len(regs))
	for _, reg := range regs {
		if reg.RootType != rootType {
			continue
		}
		out = append(out, &entry.Folder[string]{
			ID: reg.Store.RootFolderID(),
			Attributes: entry.Attributes{
				Title:         reg.Title,
				CreatedBy:     reg.Owner,
				CreatedOn:     reg.CreatedOn,
				ModifiedBy:    reg.Owner,
				ModifiedOn:    reg.CreatedOn,
				RootType:      reg.RootType,
				ProviderEntry: true,
				ProviderID:    reg.ID,
				ProviderKey:   reg.Key,
			},
			FolderInfo: entry.FolderInfo{RootStub: true},
		})
	}
	return out
}

package provider

import (
	"context"
	"errors"
	"fmt"
	stdpath "path"
	"strings"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/cache"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
)

// Store adapts one provider account, reached through a Client, to the common
// store contract with string identifiers of the form "<key>:<path>".
//
// All provider entries share one identifier space, so the key prefix is both
// the routing discriminator and the cache namespace. The path half is the
// provider-native path, which means identifiers change on rename and move;
// the mapping table keeps hash ids stable across those rewrites so tags and
// shares follow the entry.
type Store struct {
	key        string
	providerID int
	rootTitle  string
	rootType   entry.RootType
	owner      uuid.UUID

	client *cachedClient
	raw    Client
	db     *localdb.DB
	locker security.Locker
}

// Options configures a federated store.
type Options struct {
	// Key is the provider key, unique across registrations. It must not
	// contain ':' so identifiers stay parseable.
	Key string

	// ProviderID is the numeric registration id.
	ProviderID int

	// RootTitle is the display title of the synthetic root folder.
	RootTitle string

	// RootType is the tree the registration is mounted under.
	RootType entry.RootType

	// Owner is the account that connected the provider. Providers report
	// no per-item authorship, so every entry is attributed to the owner.
	Owner uuid.UUID

	// Client is the backend capability client.
	Client Client

	// DB is the local database holding mappings, tags and security rows.
	DB *localdb.DB

	// Locker guards files against edits by non-holders. Nil means no
	// locking.
	Locker security.Locker

	// Cache configures the read cache over Get and List.
	Cache cache.Config
}

// New builds a federated store from the options.
func New(opts Options) (*Store, error) {
	if opts.Key == "" || strings.Contains(opts.Key, ":") {
		return nil, store.InvalidArgument("provider key %q must be non-empty and contain no ':'", opts.Key)
	}
	if opts.Client == nil {
		return nil, store.InvalidArgument("provider %s: client is required", opts.Key)
	}
	if opts.DB == nil {
		return nil, store.InvalidArgument("provider %s: local database is required", opts.Key)
	}
	locker := opts.Locker
	if locker == nil {
		locker = security.NoLocks{}
	}
	title := opts.RootTitle
	if title == "" {
		title = opts.Key
	}
	return &Store{
		key:        opts.Key,
		providerID: opts.ProviderID,
		rootTitle:  title,
		rootType:   opts.RootType,
		owner:      opts.Owner,
		client:     newCachedClient(opts.Client, cache.New(opts.Cache)),
		raw:        opts.Client,
		db:         opts.DB,
		locker:     locker,
	}, nil
}

// Key returns the provider key this store is registered under.
func (s *Store) Key() string { return s.key }

// RootFolderID returns the identifier of the provider's root folder.
func (s *Store) RootFolderID() string { return s.MakeID("/") }

// MakeID synthesizes the federated identifier for a provider path.
func (s *Store) MakeID(path string) string {
	return s.key + ":" + stdpath.Clean("/"+path)
}

// parsePath extracts the provider path from a federated identifier, checking
// that the identifier belongs to this store.
func (s *Store) parsePath(id string) (string, error) {
	rest, ok := strings.CutPrefix(id, s.key+":")
	if !ok {
		return "", store.InvalidArgument("identifier %q does not belong to provider %s", id, s.key)
	}
	return stdpath.Clean("/" + rest), nil
}

func parentPath(p string) string {
	return stdpath.Dir(p)
}

// mapError translates client failures into domain errors. The federated id
// keeps error paths addressable by the caller.
func (s *Store) mapError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrItemNotFound):
		return store.NotFound(id)
	case errors.Is(err, ErrItemExists):
		return store.Conflict("%s already exists", id)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return store.RemoteProvider(id, err)
	}
}

func (s *Store) attributes(it *Item) entry.Attributes {
	created := it.Created
	if created.IsZero() {
		created = it.Modified
	}
	modified := it.Modified
	if modified.IsZero() {
		modified = created
	}
	return entry.Attributes{
		Title:         it.Name,
		CreatedBy:     s.owner,
		CreatedOn:     created,
		ModifiedBy:    s.owner,
		ModifiedOn:    modified,
		RootType:      s.rootType,
		ProviderEntry: true,
		ProviderID:    s.providerID,
		ProviderKey:   s.key,
	}
}

func (s *Store) folderFromItem(it *Item) *entry.Folder[string] {
	f := &entry.Folder[string]{
		ID:         s.MakeID(it.Path),
		ParentID:   s.MakeID(parentPath(it.Path)),
		Attributes: s.attributes(it),
	}
	if it.Path == "/" {
		f.ParentID = ""
		f.Title = s.rootTitle
	}
	return f
}

func (s *Store) fileFromItem(it *Item) *entry.File[string] {
	f := &entry.File[string]{
		ID:         s.MakeID(it.Path),
		ParentID:   s.MakeID(parentPath(it.Path)),
		Attributes: s.attributes(it),
	}
	f.Version = 1
	f.ContentLength = it.Size
	return f
}

// availableTitle resolves the " (n)" collision policy: the requested title if
// free, otherwise the first suffixed variant with no sibling of that name.
// For files the suffix goes before the extension. The scan reads the raw
// client, not the listing cache, so a sibling created moments ago is seen.
func (s *Store) availableTitle(ctx context.Context, parent string, title string) (string, error) {
	siblings, err := s.raw.List(ctx, parent)
	if err != nil {
		return "", s.mapError(err, s.MakeID(parent))
	}
	taken := make(map[string]struct{}, len(siblings))
	for _, it := range siblings {
		taken[strings.ToLower(it.Name)] = struct{}{}
	}
	if _, ok := taken[strings.ToLower(title)]; !ok {
		return title, nil
	}

	ext := stdpath.Ext(title)
	base := strings.TrimSuffix(title, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, ok := taken[strings.ToLower(candidate)]; !ok {
			return candidate, nil
		}
	}
}

// titleRetries bounds how often a write is retried when a concurrent
// create takes the chosen title between the scan and the write.
const titleRetries = 3

// withTitleRetry runs op with the resolved title and, when the backend
// reports the title as taken, re-scans and retries with the next free
// suffix. The loop is bounded; exhausting it surfaces the conflict.
func (s *Store) withTitleRetry(ctx context.Context, parent, title string, op func(title string) (*Item, error)) (*Item, error) {
	for attempt := 0; ; attempt++ {
		it, err := op(title)
		if err == nil {
			return it, nil
		}
		if !errors.Is(err, ErrItemExists) || attempt >= titleRetries {
			return nil, err
		}
		title, err = s.availableTitle(ctx, parent, title)
		if err != nil {
			return nil, err
		}
	}
}

// checkLock rejects mutations on files locked by someone other than the
// store owner.
func (s *Store) checkLock(ctx context.Context, id string) error {
	holder, err := s.locker.LockedForUser(ctx, entry.Federated(id), s.owner)
	if err != nil {
		return err
	}
	if holder != uuid.Nil && holder != s.owner {
		return store.Conflict("%s is locked by another user", id)
	}
	return nil
}

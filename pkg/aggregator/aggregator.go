// Package aggregator builds the merged listings the rest of the system
// shows: one folder's contents drawn from the internal store, the federated
// stores and the tag-driven virtual views, run through a fixed
// filter, security, sort, paginate, overlay pipeline.
package aggregator

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/registry"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
	"github.com/driveio/fedfs/pkg/store/local"
)

// Aggregator merges entries across stores for one viewing user.
type Aggregator struct {
	internal  *local.Store
	providers *registry.Registry
	db        *localdb.DB
	oracle    security.Oracle
	shares    security.ShareResolver
	user      uuid.UUID
}

// Options configures an Aggregator.
type Options struct {
	// Internal is the internal store.
	Internal *local.Store

	// Providers is the provider registration table.
	Providers *registry.Registry

	// DB is the local database holding tags and mappings.
	DB *localdb.DB

	// Oracle answers per-entry access checks. Nil allows everything.
	Oracle security.Oracle

	// Shares resolves the share-driven views. Nil yields empty views.
	Shares security.ShareResolver

	// User is the viewing user; tags and shares are resolved for them.
	User uuid.UUID
}

// New builds an aggregator from the options.
func New(opts Options) (*Aggregator, error) {
	if opts.Internal == nil {
		return nil, store.InvalidArgument("aggregator: internal store is required")
	}
	if opts.Providers == nil {
		return nil, store.InvalidArgument("aggregator: provider registry is required")
	}
	if opts.DB == nil {
		return nil, store.InvalidArgument("aggregator: local database is required")
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = security.AllowAll{}
	}
	return &Aggregator{
		internal:  opts.Internal,
		providers: opts.Providers,
		db:        opts.DB,
		oracle:    oracle,
		shares:    opts.Shares,
		user:      opts.User,
	}, nil
}

// Page is one window of a listing plus the unpaged total and the aggregate
// counters over the whole listing: each folder contributes its own counts
// plus one, each file contributes one. The counters feed summaries and are
// never persisted.
type Page struct {
	Entries []*entry.Entry
	Total   int

	FoldersCount int
	FilesCount   int
}

// GetEntries lists the folder at parentRef: filtered, security-screened,
// sorted, paginated and overlaid with per-user statuses, in that order.
// from/count select the page; count <= 0 means the rest of the listing.
//
// Pin tags are loaded ahead of the sort, since they decide the folder
// partition. The New sort is the exception to the pipeline order: newness
// comes from the overlay, so the overlay runs over the whole listing before
// sorting and pagination instead of over the page.
func (a *Aggregator) GetEntries(ctx context.Context, parentRef entry.Ref, from, count int, opts store.ListOptions) (*Page, error) {
	var entries []*entry.Entry
	var ordered bool
	var err error

	if fid, federated := parentRef.Str(); federated {
		entries, err = a.ListFederated(ctx, fid, opts)
	} else {
		var parent *entry.Folder[int]
		parent, err = a.folder(ctx, parentRef)
		if err != nil {
			return nil, err
		}
		entries, ordered, err = a.collect(ctx, parent, opts)
	}
	if err != nil {
		return nil, err
	}

	entries, err = a.readable(ctx, entries)
	if err != nil {
		return nil, err
	}
	total := len(entries)
	foldersCount, filesCount := accumulateCounts(entries)

	if opts.OrderBy.SortedBy == entry.SortByNew {
		if err := a.overlay(ctx, entries); err != nil {
			return nil, err
		}
		SortEntries(entries, opts.OrderBy)
		return &Page{
			Entries:      page(entries, from, count),
			Total:        total,
			FoldersCount: foldersCount,
			FilesCount:   filesCount,
		}, nil
	}

	if !ordered {
		if err := a.applyPins(entries); err != nil {
			return nil, err
		}
		SortEntries(entries, opts.OrderBy)
	}
	entries = page(entries, from, count)
	if err := a.overlay(ctx, entries); err != nil {
		return nil, err
	}
	return &Page{
		Entries:      entries,
		Total:        total,
		FoldersCount: foldersCount,
		FilesCount:   filesCount,
	}, nil
}

// accumulateCounts walks the merged listing once: a folder contributes its
// own counts plus one, a file contributes one.
func accumulateCounts(entries []*entry.Entry) (folders, files int) {
	for _, e := range entries {
		if e.IsFolder() {
			folders += e.Folder.FoldersCount + 1
			files += e.Folder.FilesCount
		} else {
			files++
		}
	}
	return folders, files
}

// collect gathers an internal folder's raw entries, branching into the
// virtual views when the folder is one of their roots. ordered reports that
// the view carries its own order which the pipeline must keep.
func (a *Aggregator) collect(ctx context.Context, parent *entry.Folder[int], opts store.ListOptions) (entries []*entry.Entry, ordered bool, err error) {
	if parent.ParentID == 0 {
		switch parent.RootType {
		case entry.RootRecent:
			entries, err = a.recentView(ctx, opts)
			return entries, true, err
		case entry.RootFavorites:
			entries, err = a.favoritesView(ctx, opts)
			return entries, true, err
		case entry.RootTemplates:
			entries, err = a.templatesView(ctx, opts)
			return entries, false, err
		case entry.RootShare, entry.RootVirtualRooms, entry.RootPrivacy:
			shared, err := a.sharedView(ctx, parent.RootType, opts)
			if err != nil {
				return nil, false, err
			}
			stubs := a.stubEntries(parent.RootType, opts)
			return append(shared, stubs...), false, nil
		}
	}
	entries, err = a.listInternal(ctx, parent, opts)
	return entries, false, err
}

// folder resolves an internal parent. Only internal folders can be virtual
// roots; federated parents never reach here.
func (a *Aggregator) folder(ctx context.Context, ref entry.Ref) (*entry.Folder[int], error) {
	id, ok := ref.Int()
	if !ok {
		return nil, store.InvalidArgument("parent reference %s is not internal", ref.String())
	}
	return a.internal.GetFolder(ctx, id)
}

// listInternal lists one concrete folder: child folders and files fetched
// concurrently, plus provider root stubs when the folder is a tree root.
func (a *Aggregator) listInternal(ctx context.Context, parent *entry.Folder[int], opts store.ListOptions) ([]*entry.Entry, error) {
	var folders []*entry.Entry
	var files []*entry.Entry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := a.internal.ListFolders(gctx, parent.ID, opts)
		if err != nil {
			return err
		}
		folders = foldersToEntries(fs)
		return nil
	})
	g.Go(func() error {
		fs, err := a.internal.ListFiles(gctx, parent.ID, opts)
		if err != nil {
			return err
		}
		files = filesToEntries(fs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := append(folders, files...)
	if parent.ParentID == 0 {
		out = append(out, a.stubEntries(parent.RootType, opts)...)
	}
	return out, nil
}

// ListFederated lists one federated folder through its provider store.
func (a *Aggregator) ListFederated(ctx context.Context, parentID string, opts store.ListOptions) ([]*entry.Entry, error) {
	st, err := a.providers.StoreFor(parentID)
	if err != nil {
		return nil, err
	}

	var folders []*entry.Entry
	var files []*entry.Entry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := st.ListFolders(gctx, parentID, opts)
		if err != nil {
			return err
		}
		folders = foldersToEntries(fs)
		return nil
	})
	g.Go(func() error {
		fs, err := st.ListFiles(gctx, parentID, opts)
		if err != nil {
			return err
		}
		files = filesToEntries(fs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(folders, files...), nil
}

// stubEntries converts the provider root stubs mounted under a tree into
// boundary entries, honoring filters that exclude folders.
func (a *Aggregator) stubEntries(rootType entry.RootType, opts store.ListOptions) []*entry.Entry {
	if opts.Filter.ExcludesFolders() {
		return nil
	}
	stubs := a.providers.RootStubs(rootType)
	out := make([]*entry.Entry, 0, len(stubs))
	for _, f := range stubs {
		e := f.AsEntry()
		if matchEntry(e, opts) {
			out = append(out, e)
		}
	}
	return out
}

// readable drops entries the viewing user cannot see.
func (a *Aggregator) readable(ctx context.Context, entries []*entry.Entry) ([]*entry.Entry, error) {
	out := entries[:0]
	for _, e := range entries {
		ok, err := a.oracle.CanRead(ctx, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// entryID returns the tag/security row id of an entry: the decimal id for
// internal entries, the mapping hash id for federated ones. ok is false when
// a federated entry has no mapping yet.
func (a *Aggregator) entryID(e *entry.Entry) (string, bool) {
	if id, isInt := e.Ref.Int(); isInt {
		return strconv.Itoa(id), true
	}
	fid, _ := e.Ref.Str()
	hash, err := a.db.LookupHash(fid)
	if err != nil {
		return "", false
	}
	return hash, true
}

func page(entries []*entry.Entry, from, count int) []*entry.Entry {
	if from < 0 {
		from = 0
	}
	if from >= len(entries) {
		return nil
	}
	entries = entries[from:]
	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}
	return entries
}

func foldersToEntries[T entry.ID](folders []*entry.Folder[T]) []*entry.Entry {
	out := make([]*entry.Entry, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.AsEntry())
	}
	return out
}

func filesToEntries[T entry.ID](files []*entry.File[T]) []*entry.Entry {
	out := make([]*entry.Entry, 0, len(files))
	for _, f := range files {
		out = append(out, f.AsEntry())
	}
	return out
}

// matchEntry applies the type, subject and search filters to one boundary
// entry. Stores do this for their own listings; it is needed where entries
// arrive pre-built, as with stubs and shares.
func matchEntry(e *entry.Entry, opts store.ListOptions) bool {
	if e.IsFolder() {
		if opts.Filter.ExcludesFolders() {
			return false
		}
	} else if opts.Filter == entry.FilterFoldersOnly {
		return false
	} else if !entry.MatchesFilter(e.Title, opts.Filter, opts.Ext) {
		return false
	}
	if opts.Subject != uuid.Nil && e.CreatedBy != opts.Subject {
		return false
	}
	if opts.SearchText != "" && !containsFold(e.Title, opts.SearchText) {
		return false
	}
	return true
}

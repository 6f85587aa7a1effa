package aggregator

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store"
)

// recentView lists the files the user touched, most recent first. The tag
// order is the view's order.
func (a *Aggregator) recentView(ctx context.Context, opts store.ListOptions) ([]*entry.Entry, error) {
	tags, err := a.db.TagsByOwner(a.user, localdb.TagRecent)
	if err != nil {
		return nil, err
	}
	files, _, rank, err := a.resolveTagged(ctx, tags, false, opts)
	if err != nil {
		return nil, err
	}
	sortByRank(files, rank, a)
	return files, nil
}

// favoritesView lists the user's starred entries, folders before files, each
// in tag order.
func (a *Aggregator) favoritesView(ctx context.Context, opts store.ListOptions) ([]*entry.Entry, error) {
	tags, err := a.db.TagsByOwner(a.user, localdb.TagFavorite)
	if err != nil {
		return nil, err
	}
	files, folders, rank, err := a.resolveTagged(ctx, tags, true, opts)
	if err != nil {
		return nil, err
	}
	sortByRank(folders, rank, a)
	sortByRank(files, rank, a)
	return append(folders, files...), nil
}

// templatesView lists the user's template files.
func (a *Aggregator) templatesView(ctx context.Context, opts store.ListOptions) ([]*entry.Entry, error) {
	tags, err := a.db.TagsByOwner(a.user, localdb.TagTemplate)
	if err != nil {
		return nil, err
	}
	files, _, _, err := a.resolveTagged(ctx, tags, false, opts)
	if err != nil {
		return nil, err
	}
	return files, nil
}

// sharedView lists the entries shared into one of the share-driven trees.
func (a *Aggregator) sharedView(ctx context.Context, rootType entry.RootType, opts store.ListOptions) ([]*entry.Entry, error) {
	if a.shares == nil {
		return nil, nil
	}
	shared, err := a.shares.SharesForUser(ctx, a.user, rootType)
	if err != nil {
		return nil, err
	}
	out := make([]*entry.Entry, 0, len(shared))
	for _, e := range shared {
		if matchEntry(e, opts) {
			out = append(out, e)
		}
	}
	return out, nil
}

// resolveTagged loads the entries behind tag rows: internal ids straight
// from the internal store, federated hash ids through the mapping table and
// the owning provider store. Entries sitting in the trash are excluded.
// rank records each tag's position so views can restore tag order after the
// per-store fetches.
func (a *Aggregator) resolveTagged(ctx context.Context, tags []localdb.Tag, foldersToo bool, opts store.ListOptions) (files, folders []*entry.Entry, rank map[string]int, err error) {
	rank = make(map[string]int, len(tags))

	var fileIDs, folderIDs []int
	fedFiles := make(map[string][]string)
	fedFolders := make(map[string][]string)

	for i, tag := range tags {
		rank[tag.EntryID] = i

		if fid, ferr := a.db.FederatedID(tag.EntryID); ferr == nil {
			key, _, _ := splitKey(fid)
			if tag.IsFolder {
				fedFolders[key] = append(fedFolders[key], fid)
			} else {
				fedFiles[key] = append(fedFiles[key], fid)
			}
			continue
		}
		id, aerr := strconv.Atoi(tag.EntryID)
		if aerr != nil {
			continue
		}
		if tag.IsFolder {
			folderIDs = append(folderIDs, id)
		} else {
			fileIDs = append(fileIDs, id)
		}
	}

	fs, err := a.internal.GetFilesFiltered(ctx, fileIDs, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, f := range fs {
		e := f.AsEntry()
		if a.inTrash(ctx, e) {
			continue
		}
		files = append(files, e)
	}

	if foldersToo {
		dirs, err := a.internal.GetFoldersByIDs(ctx, folderIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		dirs = store.FilterFolders(dirs, opts)
		for _, f := range dirs {
			e := f.AsEntry()
			if a.inTrash(ctx, e) {
				continue
			}
			folders = append(folders, e)
		}
	}

	for key, ids := range fedFiles {
		reg, ok := a.providers.ByKey(key)
		if !ok {
			continue
		}
		fs, err := reg.Store.GetFilesFiltered(ctx, ids, opts)
		if err != nil {
			return nil, nil, nil, err
		}
		files = append(files, filesToEntries(fs)...)
	}
	if foldersToo {
		for key, ids := range fedFolders {
			reg, ok := a.providers.ByKey(key)
			if !ok {
				continue
			}
			dirs, err := reg.Store.GetFoldersByIDs(ctx, ids)
			if err != nil {
				return nil, nil, nil, err
			}
			dirs = store.FilterFolders(dirs, opts)
			folders = append(folders, foldersToEntries(dirs)...)
		}
	}
	return files, folders, rank, nil
}

// inTrash reports whether an internal entry sits under the trash root.
// Federated entries have no trash.
func (a *Aggregator) inTrash(ctx context.Context, e *entry.Entry) bool {
	parentID, ok := e.ParentRef.Int()
	if !ok {
		return false
	}
	if parentID == 0 {
		return e.RootType == entry.RootTrash
	}
	chain, err := a.internal.GetParentFolders(ctx, parentID)
	if err != nil || len(chain) == 0 {
		return false
	}
	return chain[0].RootType == entry.RootTrash
}

// sortByRank restores tag order after per-store fetches reshuffled the
// entries.
func sortByRank(entries []*entry.Entry, rank map[string]int, a *Aggregator) {
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := len(rank), len(rank)
		if id, ok := a.entryID(entries[i]); ok {
			if r, found := rank[id]; found {
				ri = r
			}
		}
		if id, ok := a.entryID(entries[j]); ok {
			if r, found := rank[id]; found {
				rj = r
			}
		}
		return ri < rj
	})
}

func splitKey(federatedID string) (key, path string, ok bool) {
	return strings.Cut(federatedID, ":")
}

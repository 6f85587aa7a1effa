package store

import (
	"sort"
	"strings"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/google/uuid"
)

// The filter pipeline is an explicit, ordered list of predicates applied
// client-side after listing: subject filter, type filter, extension filter,
// search-text filter. Keeping the stages explicit keeps the pipeline
// auditable and testable per stage.

// FilterFiles applies the pipeline stages to files, preserving input order.
func FilterFiles[T entry.ID](files []*entry.File[T], opts ListOptions) []*entry.File[T] {
	if opts.Filter == entry.FilterFoldersOnly {
		return nil
	}

	out := files[:0:0]
	for _, f := range files {
		if !matchSubject(f.CreatedBy, opts.Subject) {
			continue
		}
		if !entry.MatchesFilter(f.Title, opts.Filter, opts.Ext) {
			continue
		}
		if !matchSearch(f.Title, opts.SearchText) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FilterFolders applies the subject and search stages to folders. Type
// filters that exclude folders short-circuit to an empty result.
func FilterFolders[T entry.ID](folders []*entry.Folder[T], opts ListOptions) []*entry.Folder[T] {
	if opts.Filter.ExcludesFolders() {
		return nil
	}

	out := folders[:0:0]
	for _, f := range folders {
		if !matchSubject(f.CreatedBy, opts.Subject) {
			continue
		}
		if !matchSearch(f.Title, opts.SearchText) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SortFiles stably sorts files in place under the given order.
func SortFiles[T entry.ID](files []*entry.File[T], orderBy entry.OrderBy) {
	sort.SliceStable(files, func(i, j int) bool {
		return orderBy.Compare(files[i].AsEntry(), files[j].AsEntry()) < 0
	})
}

// SortFolders stably sorts folders in place under the given order.
func SortFolders[T entry.ID](folders []*entry.Folder[T], orderBy entry.OrderBy) {
	sort.SliceStable(folders, func(i, j int) bool {
		return orderBy.Compare(folders[i].AsEntry(), folders[j].AsEntry()) < 0
	})
}

func matchSubject(createdBy, subject uuid.UUID) bool {
	return subject == uuid.Nil || createdBy == subject
}

func matchSearch(title, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(strings.TrimSpace(search)))
}

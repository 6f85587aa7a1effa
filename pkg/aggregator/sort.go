package aggregator

import (
	"sort"
	"strings"

	"github.com/driveio/fedfs/pkg/entry"
)

// SortEntries orders a merged listing: pinned folders first, then the other
// folders, then files, each partition ordered by orderBy. The New sort is
// the exception and orders the whole listing unpartitioned, so unread files
// surface above folders.
func SortEntries(entries []*entry.Entry, orderBy entry.OrderBy) {
	less := func(s []*entry.Entry) func(i, j int) bool {
		return func(i, j int) bool { return orderBy.Compare(s[i], s[j]) < 0 }
	}

	if orderBy.SortedBy == entry.SortByNew {
		sort.SliceStable(entries, less(entries))
		return
	}

	var pinned, folders, files []*entry.Entry
	for _, e := range entries {
		switch {
		case e.IsFolder() && e.Folder.Pinned:
			pinned = append(pinned, e)
		case e.IsFolder():
			folders = append(folders, e)
		default:
			files = append(files, e)
		}
	}
	sort.SliceStable(pinned, less(pinned))
	sort.SliceStable(folders, less(folders))
	sort.SliceStable(files, less(files))

	n := copy(entries, pinned)
	n += copy(entries[n:], folders)
	copy(entries[n:], files)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

package entry

import (
	"path/filepath"
	"strings"
)

// SortedBy selects the sort key of a listing.
type SortedBy int

const (
	SortByDateAndTime SortedBy = iota
	SortByAZ
	SortByAuthor
	SortBySize
	SortByDateAndTimeCreation
	SortByType
	SortByNew
)

// OrderBy pairs a sort key with a direction.
type OrderBy struct {
	SortedBy    SortedBy
	IsAscending bool
}

// DefaultOrder is the listing order used when the caller supplies none:
// newest modification first.
func DefaultOrder() OrderBy {
	return OrderBy{SortedBy: SortByDateAndTime, IsAscending: false}
}

// Compare orders two boundary entries under this OrderBy. The result is
// negative when a sorts before b. Ties always fall back to a title
// comparison so repeated sorts of the same inputs are deterministic.
//
// The New sort is special: it orders by (IsNew desc, ModifiedOn desc) over
// the whole set and ignores the folder/file partition; callers apply the
// partitioning rule, not Compare.
func (o OrderBy) Compare(a, b *Entry) int {
	c := 1
	if !o.IsAscending {
		c = -1
	}

	cmp := 0
	switch o.SortedBy {
	case SortByAZ:
		return c * compareTitles(a.Title, b.Title)
	case SortByAuthor:
		cmp = c * strings.Compare(a.CreatedBy.String(), b.CreatedBy.String())
	case SortBySize:
		if a.File != nil && b.File != nil {
			cmp = c * compareInt64(a.File.ContentLength, b.File.ContentLength)
		}
	case SortByDateAndTime:
		cmp = c * a.ModifiedOn.Compare(b.ModifiedOn)
	case SortByDateAndTimeCreation:
		cmp = c * a.CreatedOn.Compare(b.CreatedOn)
	case SortByType:
		if a.File != nil && b.File != nil {
			cmp = c * strings.Compare(Extension(a.Title), Extension(b.Title))
		}
	case SortByNew:
		newCmp := compareBool(isNew(a), isNew(b))
		if newCmp == 0 {
			newCmp = a.ModifiedOn.Compare(b.ModifiedOn)
		}
		return c * newCmp
	default:
		return c * compareTitles(a.Title, b.Title)
	}

	if cmp == 0 {
		return compareTitles(a.Title, b.Title)
	}
	return cmp
}

// compareTitles orders titles case-insensitively, breaking case-only ties
// with a byte comparison so the order is total.
func compareTitles(a, b string) int {
	if cmp := strings.Compare(strings.ToLower(a), strings.ToLower(b)); cmp != 0 {
		return cmp
	}
	return strings.Compare(a, b)
}

// Extension returns the lowercase extension of a title, including the dot.
func Extension(title string) string {
	return strings.ToLower(filepath.Ext(title))
}

func isNew(e *Entry) bool {
	return e.File != nil && e.File.IsNew
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

package entry

import (
	"testing"
	"time"
)

func fileEntry(title string, modified time.Time, size int64) *Entry {
	e := &Entry{File: &FileInfo{ContentLength: size}}
	e.Title = title
	e.ModifiedOn = modified
	return e
}

func TestOrderBy_TitleAscending(t *testing.T) {
	o := OrderBy{SortedBy: SortByAZ, IsAscending: true}

	a := fileEntry("alpha.txt", time.Time{}, 0)
	b := fileEntry("Beta.txt", time.Time{}, 0)

	if o.Compare(a, b) >= 0 {
		t.Error("Expected alpha.txt before Beta.txt case-insensitively")
	}
	if o.Compare(b, a) <= 0 {
		t.Error("Expected the comparison to be antisymmetric")
	}
}

func TestOrderBy_TitleDescending(t *testing.T) {
	o := OrderBy{SortedBy: SortByAZ, IsAscending: false}

	a := fileEntry("alpha.txt", time.Time{}, 0)
	b := fileEntry("beta.txt", time.Time{}, 0)

	if o.Compare(a, b) <= 0 {
		t.Error("Expected beta.txt first when descending")
	}
}

func TestOrderBy_DateDefaultsNewestFirst(t *testing.T) {
	o := DefaultOrder()

	older := fileEntry("a.txt", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	newer := fileEntry("b.txt", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 0)

	if o.Compare(newer, older) >= 0 {
		t.Error("Expected the newer entry to sort first under the default order")
	}
}

func TestOrderBy_SizeTieBreaksOnTitle(t *testing.T) {
	o := OrderBy{SortedBy: SortBySize, IsAscending: true}

	a := fileEntry("b.txt", time.Time{}, 100)
	b := fileEntry("a.txt", time.Time{}, 100)

	if o.Compare(a, b) <= 0 {
		t.Error("Expected equal sizes to fall back to the title order")
	}
}

func TestOrderBy_NewSortIgnoresDirectionlessTies(t *testing.T) {
	o := OrderBy{SortedBy: SortByNew, IsAscending: false}

	seen := fileEntry("seen.txt", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 0)
	unseen := fileEntry("unseen.txt", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 0)
	unseen.File.IsNew = true

	if o.Compare(unseen, seen) >= 0 {
		t.Error("Expected unseen entries first regardless of modification time")
	}
}

func TestOrderBy_TypeComparesExtensions(t *testing.T) {
	o := OrderBy{SortedBy: SortByType, IsAscending: true}

	doc := fileEntry("x.docx", time.Time{}, 0)
	zip := fileEntry("a.zip", time.Time{}, 0)

	if o.Compare(doc, zip) >= 0 {
		t.Error("Expected .docx before .zip under the type sort")
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Report.DOCX", ".docx"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
	}
	for _, tt := range tests {
		if got := Extension(tt.title); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

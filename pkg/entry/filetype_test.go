package entry

import "testing"

func TestTypeOf(t *testing.T) {
	tests := []struct {
		title string
		want  FileType
	}{
		{"report.docx", FileTypeDocument},
		{"sheet.XLSX", FileTypeSpreadsheet},
		{"deck.pptx", FileTypePresentation},
		{"photo.jpeg", FileTypeImage},
		{"bundle.zip", FileTypeArchive},
		{"song.mp3", FileTypeAudio},
		{"clip.mp4", FileTypeVideo},
		{"binary.bin", FileTypeUnknown},
		{"noext", FileTypeUnknown},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.title); got != tt.want {
			t.Errorf("TypeOf(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestMatchesFilter(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		filter FilterType
		ext    string
		want   bool
	}{
		{"none matches anything", "x.bin", FilterNone, "", true},
		{"files only matches files", "x.bin", FilterFilesOnly, "", true},
		{"folders only never matches a file", "x.bin", FilterFoldersOnly, "", false},
		{"documents match", "a.pdf", FilterDocumentsOnly, "", true},
		{"documents reject images", "a.png", FilterDocumentsOnly, "", false},
		{"media spans audio", "a.flac", FilterMediaOnly, "", true},
		{"media spans video", "a.webm", FilterMediaOnly, "", true},
		{"media rejects documents", "a.txt", FilterMediaOnly, "", false},
		{"extension with dot", "a.csv", FilterByExtension, ".csv", true},
		{"extension without dot", "a.csv", FilterByExtension, "csv", true},
		{"extension mismatch", "a.csv", FilterByExtension, "txt", false},
		{"empty extension matches", "a.csv", FilterByExtension, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesFilter(tt.title, tt.filter, tt.ext); got != tt.want {
				t.Errorf("MatchesFilter(%q, %v, %q) = %v, want %v",
					tt.title, tt.filter, tt.ext, got, tt.want)
			}
		})
	}
}

func TestFilterType_ExcludesFolders(t *testing.T) {
	if FilterNone.ExcludesFolders() {
		t.Error("FilterNone must keep folders")
	}
	if FilterFoldersOnly.ExcludesFolders() {
		t.Error("FilterFoldersOnly must keep folders")
	}
	if !FilterImagesOnly.ExcludesFolders() {
		t.Error("A typed file filter must exclude folders")
	}
}

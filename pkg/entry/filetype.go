package entry

// FileType is the coarse content classification derived from a title's
// extension. Providers expose no typed queries, so type filtering is always
// computed client-side from the name.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeDocument
	FileTypeSpreadsheet
	FileTypePresentation
	FileTypeImage
	FileTypeArchive
	FileTypeAudio
	FileTypeVideo
)

// FilterType selects which entries a listing returns.
type FilterType int

const (
	FilterNone FilterType = iota
	FilterFilesOnly
	FilterFoldersOnly
	FilterDocumentsOnly
	FilterSpreadsheetsOnly
	FilterPresentationsOnly
	FilterImagesOnly
	FilterArchiveOnly
	FilterMediaOnly
	FilterByExtension
)

// ExcludesFolders reports whether the filter removes folders entirely from a
// listing. Such filters also suppress synthetic provider-root folders.
func (f FilterType) ExcludesFolders() bool {
	switch f {
	case FilterFilesOnly, FilterDocumentsOnly, FilterSpreadsheetsOnly,
		FilterPresentationsOnly, FilterImagesOnly, FilterArchiveOnly,
		FilterMediaOnly, FilterByExtension:
		return true
	default:
		return false
	}
}

var typeByExt = map[string]FileType{
	".doc": FileTypeDocument, ".docx": FileTypeDocument, ".odt": FileTypeDocument,
	".rtf": FileTypeDocument, ".txt": FileTypeDocument, ".pdf": FileTypeDocument,
	".html": FileTypeDocument, ".epub": FileTypeDocument, ".md": FileTypeDocument,

	".xls": FileTypeSpreadsheet, ".xlsx": FileTypeSpreadsheet, ".ods": FileTypeSpreadsheet,
	".csv": FileTypeSpreadsheet,

	".ppt": FileTypePresentation, ".pptx": FileTypePresentation, ".odp": FileTypePresentation,

	".bmp": FileTypeImage, ".gif": FileTypeImage, ".jpeg": FileTypeImage,
	".jpg": FileTypeImage, ".png": FileTypeImage, ".svg": FileTypeImage,
	".tiff": FileTypeImage, ".webp": FileTypeImage,

	".zip": FileTypeArchive, ".tar": FileTypeArchive, ".gz": FileTypeArchive,
	".rar": FileTypeArchive, ".7z": FileTypeArchive,

	".aac": FileTypeAudio, ".flac": FileTypeAudio, ".mp3": FileTypeAudio,
	".ogg": FileTypeAudio, ".wav": FileTypeAudio,

	".avi": FileTypeVideo, ".mkv": FileTypeVideo, ".mov": FileTypeVideo,
	".mp4": FileTypeVideo, ".webm": FileTypeVideo,
}

// TypeOf classifies a title by its extension.
func TypeOf(title string) FileType {
	return typeByExt[Extension(title)]
}

// MatchesFilter reports whether a file title passes a type filter.
// FilterByExtension compares against ext (lowercase, with or without the
// leading dot). Folder-only filters never match a file.
func MatchesFilter(title string, filter FilterType, ext string) bool {
	switch filter {
	case FilterNone, FilterFilesOnly:
		return true
	case FilterFoldersOnly:
		return false
	case FilterDocumentsOnly:
		return TypeOf(title) == FileTypeDocument
	case FilterSpreadsheetsOnly:
		return TypeOf(title) == FileTypeSpreadsheet
	case FilterPresentationsOnly:
		return TypeOf(title) == FileTypePresentation
	case FilterImagesOnly:
		return TypeOf(title) == FileTypeImage
	case FilterArchiveOnly:
		return TypeOf(title) == FileTypeArchive
	case FilterMediaOnly:
		t := TypeOf(title)
		return t == FileTypeAudio || t == FileTypeVideo
	case FilterByExtension:
		if ext == "" {
			return true
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		return Extension(title) == ext
	default:
		return true
	}
}

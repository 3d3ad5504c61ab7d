package drive

import (
	"path"
	"slices"
	"strings"
)

// Provider media types.
const (
	FolderMimeType = "application/vnd.google-apps.folder"
	nativePrefix   = "application/vnd.google-apps."
)

// exportTypes maps native document types to the format they are exported as.
var exportTypes = map[string]string{
	"application/vnd.google-apps.document":     "application/pdf",
	"application/vnd.google-apps.presentation": "application/pdf",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.drawing":      "image/png",
}

var exportExtensions = map[string]string{
	"application/pdf": ".pdf",
	"text/csv":        ".csv",
	"image/png":       ".png",
}

// knownExtensions are document extensions that ExportName leaves in place.
var knownExtensions = []string{
	".pdf", ".csv", ".png", ".jpg", ".jpeg", ".txt",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods", ".odp",
}

// Kind tells what a listed item is.
type Kind int

const (
	RegularFile Kind = iota
	// NativeDocument is a provider-native document; it can only be fetched
	// by exporting it, and only when an export type is known.
	NativeDocument
	Folder
)

func (k Kind) String() string {
	switch k {
	case NativeDocument:
		return "native"
	case Folder:
		return "folder"
	default:
		return "file"
	}
}

// Classify resolves the kind of an item from its media type. exportType is
// set for native documents with an export mapping.
func Classify(mimeType string) (kind Kind, exportType string) {
	switch {
	case mimeType == FolderMimeType:
		return Folder, ""
	case strings.HasPrefix(mimeType, nativePrefix):
		return NativeDocument, exportTypes[mimeType]
	default:
		return RegularFile, ""
	}
}

// ExportName appends the export extension to name unless name already
// carries a known document extension. Drive shortcuts such as ".gdoc" still
// get one.
func ExportName(name, exportType string) string {
	ext := exportExtensions[exportType]
	if ext == "" || slices.Contains(knownExtensions, strings.ToLower(path.Ext(name))) {
		return name
	}
	return name + ext
}

// File is a discovered remote file.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	// Path is the slash-joined chain of folder names from the walk root.
	Path       string `json:"path"`
	Kind       Kind   `json:"-"`
	ExportType string `json:"-"`
}

// DownloadSpec says where to fetch a file's content and how to store it.
type DownloadSpec struct {
	URL       string
	Name      string
	MediaType string
}

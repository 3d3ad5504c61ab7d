package drive

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDPattern   = regexp.MustCompile(`[a-zA-Z0-9_-]{10,}`)
	folderIDPattern = regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`)
)

// ParseFolderID extracts a folder id from a bare id or a shareable link.
// Links may carry the id in the path (/folders/<id>) or in the id query
// parameter. It returns "" when no id can be found.
func ParseFolderID(input string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "http") {
		return bareIDPattern.FindString(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if m := folderIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return bareIDPattern.FindString(u.Query().Get("id"))
}

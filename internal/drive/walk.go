package drive

import (
	"context"
	"fmt"
	"iter"
)

// DefaultMaxFiles caps how many files one walk yields.
const DefaultMaxFiles = 1000

// Lister is the part of the API a walk needs.
type Lister interface {
	Metadata(ctx context.Context, id string) (File, error)
	ListChildren(ctx context.Context, folderID, pageToken string) (Page, error)
}

type queuedFolder struct {
	id   string
	path string
}

// Walk enumerates the files below rootID breadth first. Each file carries
// the path of folder names from the root, starting with the root's own name
// (empty when its metadata cannot be read). Folders already visited are
// skipped. The walk stops quietly after maxFiles files; maxFiles <= 0 means
// DefaultMaxFiles. A listing failure is yielded once and ends the walk.
func Walk(ctx context.Context, api Lister, rootID string, maxFiles int) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		if maxFiles <= 0 {
			maxFiles = DefaultMaxFiles
		}

		rootName := ""
		if meta, err := api.Metadata(ctx, rootID); err == nil {
			rootName = meta.Name
		}

		queue := []queuedFolder{{id: rootID, path: rootName}}
		visited := make(map[string]bool)
		yielded := 0

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current.id] {
				continue
			}
			visited[current.id] = true

			pageToken := ""
			for {
				page, err := api.ListChildren(ctx, current.id, pageToken)
				if err != nil {
					yield(File{}, fmt.Errorf("list folder %s: %w", current.id, err))
					return
				}
				for _, f := range page.Files {
					f.Kind, f.ExportType = Classify(f.MimeType)
					if f.Kind == Folder {
						queue = append(queue, queuedFolder{id: f.ID, path: joinPath(current.path, f.Name)})
						continue
					}
					f.Path = current.path
					if !yield(f, nil) {
						return
					}
					yielded++
					if yielded >= maxFiles {
						return
					}
				}
				if page.NextPageToken == "" || page.NextPageToken == pageToken {
					break
				}
				pageToken = page.NextPageToken
			}
		}
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

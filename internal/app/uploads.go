package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// DefaultCategory is used for local resources created without one.
const DefaultCategory = "Other"

// AllowedMediaTypes are the attachment types accepted from local uploads.
var AllowedMediaTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"text/markdown",
	"image/png",
	"image/jpeg",
	"image/webp",
}

// Upload is a file supplied by the user for a local record.
type Upload struct {
	Name      string
	MediaType string
	Data      []byte
}

// ValidateUpload checks u against the local upload rules. An empty media
// type is accepted.
func (a *App) ValidateUpload(u Upload) error {
	if len(u.Data) == 0 {
		return &storage.ValidationError{Field: "file", Reason: "select a file first"}
	}
	if int64(len(u.Data)) > a.opts.MaxAttachmentBytes {
		return &storage.ValidationError{Field: "file", Reason: fmt.Sprintf("file is %s, the limit is %s",
			humanize.IBytes(uint64(len(u.Data))), humanize.IBytes(uint64(a.opts.MaxAttachmentBytes)))}
	}
	if strings.TrimSpace(u.Name) == "" {
		return &storage.ValidationError{Field: "fileName", Reason: "must not be empty"}
	}
	if u.MediaType != "" && !slices.Contains(AllowedMediaTypes, u.MediaType) {
		return &storage.ValidationError{Field: "mediaType", Reason: fmt.Sprintf("%s files are not accepted", u.MediaType)}
	}
	return nil
}

// CreateLocalResource stores a user-created resource with an optional
// attachment. A local resource with the same title (ignoring case) and the
// same file name as an existing local one is refused.
func (a *App) CreateLocalResource(ctx context.Context, title, category string, u *Upload) (models.Resource, error) {
	title, category = strings.TrimSpace(title), strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	if category == models.CategoryDrive {
		return models.Resource{}, &storage.ValidationError{Field: "category", Reason: fmt.Sprintf("%q is reserved for Drive imports", category)}
	}

	r := models.Resource{Title: title, Category: category}
	if u != nil {
		if err := a.ValidateUpload(*u); err != nil {
			return models.Resource{}, err
		}
		r.FileName = strings.TrimSpace(u.Name)
	}
	if dup, ok := a.findLocalDuplicate(title, r.FileName); ok {
		return models.Resource{}, &storage.ValidationError{Field: "title", Reason: fmt.Sprintf("duplicate of resource %s", dup.ID)}
	}

	return withAttachment(ctx, a, u, &r.FileID, func() (models.Resource, error) {
		return a.Store.CreateResource(ctx, r)
	})
}

func (a *App) findLocalDuplicate(title, fileName string) (models.Resource, bool) {
	fold := cases.Fold()
	want := fold.String(title)
	for _, r := range a.Store.Resources() {
		if r.IsRemote() {
			continue
		}
		if fold.String(r.Title) == want && r.FileName == fileName {
			return r, true
		}
	}
	return models.Resource{}, false
}

// CreateSpeech stores a speech with an optional attachment.
func (a *App) CreateSpeech(ctx context.Context, sp models.Speech, u *Upload) (models.Speech, error) {
	if u != nil {
		if err := a.ValidateUpload(*u); err != nil {
			return models.Speech{}, err
		}
		sp.FileName = strings.TrimSpace(u.Name)
	}
	return withAttachment(ctx, a, u, &sp.FileID, func() (models.Speech, error) {
		return a.Store.CreateSpeech(ctx, sp)
	})
}

// withAttachment stores u, points *fileID at it and runs create. The blob is
// removed again when create fails.
func withAttachment[T any](ctx context.Context, a *App, u *Upload, fileID *string, create func() (T, error)) (T, error) {
	if u == nil {
		return create()
	}
	id, err := a.Store.PutBlob(ctx, u.Data, u.Name, u.MediaType)
	if err != nil {
		var zero T
		return zero, err
	}
	*fileID = id
	rec, err := create()
	if err != nil {
		if derr := a.Store.DeleteBlob(ctx, id); derr != nil {
			a.logger.Warn("could not remove orphaned blob", "blob_id", id, "error", derr)
		}
		return rec, err
	}
	return rec, nil
}

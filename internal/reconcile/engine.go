// Package reconcile mirrors discovered Drive files into local resources.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// DefaultMaxSize is the largest attachment accepted from the remote side.
const DefaultMaxSize int64 = 8 << 20

// Store is the part of the record and blob store the engine writes through.
type Store interface {
	FindResourceBySource(sourceID string) (models.Resource, bool)
	FindRemoteResourceByPath(path, fileName string) (models.Resource, bool)
	CreateResource(ctx context.Context, r models.Resource) (models.Resource, error)
	UpdateResource(ctx context.Context, r models.Resource) (models.Resource, error)
	PutBlob(ctx context.Context, data []byte, name, mediaType string) (string, error)
	DeleteBlob(ctx context.Context, id string) error
}

// Fetcher resolves and downloads remote content.
type Fetcher interface {
	DownloadSpec(f drive.File) (drive.DownloadSpec, bool)
	Download(ctx context.Context, spec drive.DownloadSpec, limit int64) ([]byte, error)
}

// Progress receives the running counters after every discovered file.
type Progress func(models.SyncResult)

// Engine runs reconciliation passes. Items are handled one at a time in
// discovery order.
type Engine struct {
	store   Store
	fetch   Fetcher
	maxSize int64
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine writing into store and downloading through fetch.
func New(store Store, fetch Fetcher, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		fetch:   fetch,
		maxSize: DefaultMaxSize,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Skip reasons.
var (
	errUnsupported = errors.New("no export format for native type")
	errOversize    = errors.New("exceeds attachment size limit")
)

// Run reconciles every file yielded by files. A failure on one file is
// logged and counted as a skip. An error yielded by the walk itself ends the
// run; the counts gathered so far are returned with it.
func (e *Engine) Run(ctx context.Context, files iter.Seq2[drive.File, error], progress Progress) (models.SyncResult, error) {
	var res models.SyncResult
	for f, err := range files {
		if err != nil {
			e.logger.Error("drive walk failed", "error", err, "imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped)
			return res, err
		}
		res.Total++

		switch outcome, err := e.apply(ctx, f); {
		case err != nil:
			res.Skipped++
			e.logger.Warn("skipped drive file", "file_id", f.ID, "name", f.Name, "path", f.Path, "reason", err)
		case outcome == updated:
			res.Updated++
		default:
			res.Imported++
		}
		if progress != nil {
			progress(res)
		}
	}
	e.logger.Info("drive import finished", "total", res.Total, "imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

type outcome int

const (
	created outcome = iota
	updated
)

func (e *Engine) apply(ctx context.Context, f drive.File) (outcome, error) {
	spec, ok := e.fetch.DownloadSpec(f)
	if !ok {
		return 0, fmt.Errorf("%w %s", errUnsupported, f.MimeType)
	}
	if f.Size > e.maxSize {
		return 0, fmt.Errorf("listed size %s %w of %s", humanize.IBytes(uint64(f.Size)), errOversize, humanize.IBytes(uint64(e.maxSize)))
	}

	data, err := e.fetch.Download(ctx, spec, e.maxSize)
	if errors.Is(err, drive.ErrTooLarge) {
		return 0, fmt.Errorf("content %w of %s", errOversize, humanize.IBytes(uint64(e.maxSize)))
	}
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}

	blobID, err := e.store.PutBlob(ctx, data, spec.Name, spec.MediaType)
	if err != nil {
		return 0, fmt.Errorf("store content: %w", err)
	}

	existing, found := e.store.FindResourceBySource(f.ID)
	if !found {
		existing, found = e.store.FindRemoteResourceByPath(f.Path, spec.Name)
	}

	if found {
		r := existing
		r.Title = f.Name
		r.FileID = blobID
		r.FileName = spec.Name
		r.SourceFileID = f.ID
		r.Path = f.Path
		r.RemoteModifiedAt = f.ModifiedTime
		if _, err := e.store.UpdateResource(ctx, r); err != nil {
			e.discard(ctx, blobID)
			return 0, fmt.Errorf("update resource %s: %w", existing.ID, err)
		}
		e.logger.Debug("updated drive resource", "id", existing.ID, "file_id", f.ID, "size", humanize.IBytes(uint64(len(data))))
		return updated, nil
	}

	r, err := e.store.CreateResource(ctx, models.Resource{
		Title:            f.Name,
		Category:         models.CategoryDrive,
		FileID:           blobID,
		FileName:         spec.Name,
		SourceFileID:     f.ID,
		Path:             f.Path,
		RemoteModifiedAt: f.ModifiedTime,
	})
	if err != nil {
		e.discard(ctx, blobID)
		return 0, fmt.Errorf("create resource: %w", err)
	}
	e.logger.Debug("imported drive resource", "id", r.ID, "file_id", f.ID, "size", humanize.IBytes(uint64(len(data))))
	return created, nil
}

func (e *Engine) discard(ctx context.Context, blobID string) {
	if err := e.store.DeleteBlob(ctx, blobID); err != nil {
		e.logger.Warn("could not remove orphaned blob", "blob_id", blobID, "error", err)
	}
}

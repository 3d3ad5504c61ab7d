// Package app holds the per-process context shared by every front end: the
// store, the Drive session and the operations that span both.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/reconcile"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/session"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// Options tunes the remote side of an App. Zero values take the package
// defaults of drive and reconcile.
type Options struct {
	// DefaultClientID is used when neither the caller nor the settings name
	// an OAuth client.
	DefaultClientID    string
	APIBase            string
	HTTPClient         *http.Client
	MaxFiles           int
	MaxAttachmentBytes int64
	PageSize           int
}

// App is created once per process and passed to whoever needs it.
type App struct {
	Store   *storage.Store
	Session *session.Session

	opts   Options
	logger *slog.Logger
}

// New wires an App. A nil logger discards output.
func New(store *storage.Store, sess *session.Session, opts Options, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = store.MaxBlobSize()
	}
	return &App{Store: store, Session: sess, opts: opts, logger: logger}
}

// Logger returns the App's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// MaxAttachmentBytes is the upload and import size limit.
func (a *App) MaxAttachmentBytes() int64 {
	return a.opts.MaxAttachmentBytes
}

// clientID picks the explicit id, then the remembered one, then the
// configured default.
func (a *App) clientID(explicit string) (string, error) {
	for _, id := range []string{explicit, a.Store.SettingString(models.SettingDriveClientID), a.opts.DefaultClientID} {
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
	}
	return "", &storage.ValidationError{Field: "clientId", Reason: "a Google OAuth client id is required"}
}

// DriveStatus describes the Drive credential.
type DriveStatus struct {
	ClientID    string `json:"clientId,omitempty"`
	State       string `json:"state"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	FolderInput string `json:"folderInput,omitempty"`
}

// Status reports the current credential state.
func (a *App) Status() DriveStatus {
	st := DriveStatus{
		ClientID:    a.Session.ClientID(),
		State:       a.Session.State().String(),
		FolderInput: a.Store.SettingString(models.SettingDriveFolderInput),
	}
	if st.ClientID == "" {
		st.ClientID = a.Store.SettingString(models.SettingDriveClientID)
	}
	if exp := a.Session.ExpiresAt(); !exp.IsZero() {
		st.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return st
}

// ConnectDrive authorizes clientID interactively and remembers it.
func (a *App) ConnectDrive(ctx context.Context, clientID string) (DriveStatus, error) {
	id, err := a.clientID(clientID)
	if err != nil {
		return DriveStatus{}, err
	}
	if _, err := a.Session.Reauthorize(ctx, id); err != nil {
		return DriveStatus{}, fmt.Errorf("connect drive: %w", err)
	}
	if err := a.Store.SetSetting(ctx, models.SettingDriveClientID, id); err != nil {
		return DriveStatus{}, err
	}
	a.logger.Info("drive connected", "client_id", id)
	return a.Status(), nil
}

// ImportDriveFolder walks the folder named by folderInput (an id or a share
// link) and reconciles every file into local resources. The folder input
// and client id are remembered for next time.
func (a *App) ImportDriveFolder(ctx context.Context, clientID, folderInput string, progress reconcile.Progress) (models.SyncResult, error) {
	folderID := drive.ParseFolderID(folderInput)
	if folderID == "" {
		return models.SyncResult{}, &storage.ValidationError{Field: "folder", Reason: "enter a valid Google Drive folder URL or ID"}
	}
	id, err := a.clientID(clientID)
	if err != nil {
		return models.SyncResult{}, err
	}
	if err := a.Store.SetSetting(ctx, models.SettingDriveFolderInput, strings.TrimSpace(folderInput)); err != nil {
		return models.SyncResult{}, err
	}
	if err := a.Store.SetSetting(ctx, models.SettingDriveClientID, id); err != nil {
		return models.SyncResult{}, err
	}

	client := a.driveClient(id)
	engine := reconcile.New(a.Store, client,
		reconcile.WithMaxSize(a.opts.MaxAttachmentBytes),
		reconcile.WithLogger(a.logger.With("folder_id", folderID)),
	)
	a.logger.Info("drive import started", "folder_id", folderID, "client_id", id)
	res, err := engine.Run(ctx, drive.Walk(ctx, client, folderID, a.opts.MaxFiles), progress)
	if err != nil {
		return res, fmt.Errorf("import drive folder: %w", err)
	}
	return res, nil
}

func (a *App) driveClient(clientID string) *drive.Client {
	var opts []drive.ClientOption
	if a.opts.APIBase != "" {
		opts = append(opts, drive.WithBaseURL(a.opts.APIBase))
	}
	if a.opts.HTTPClient != nil {
		opts = append(opts, drive.WithHTTPClient(a.opts.HTTPClient))
	}
	if a.opts.PageSize > 0 {
		opts = append(opts, drive.WithPageSize(a.opts.PageSize))
	}
	return drive.NewClient(a.Session.For(clientID), opts...)
}

// Attachment is a stored file handed back for download.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// DownloadAttachment resolves a blob id into its bytes and a suggested file
// name.
func (a *App) DownloadAttachment(ctx context.Context, fileID string) (Attachment, error) {
	b, err := a.Store.GetBlob(ctx, fileID)
	if err != nil {
		return Attachment{}, err
	}
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = "attachment"
	}
	return Attachment{Name: name, MediaType: b.MediaType, Data: b.Data}, nil
}

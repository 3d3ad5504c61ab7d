package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/app"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/logging"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/session"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// env is what a command needs once the configuration is loaded.
type env struct {
	app    *app.App
	logger *slog.Logger
	close  func()
}

// openEnv builds the logger, opens the store and wires the Drive session.
// stderr receives logs (unless a log file is configured) and the
// authorization URL.
func openEnv(ctx context.Context, opts *RootOptions, stderr io.Writer) (*env, error) {
	cfg := opts.Config
	logger, logCloser, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: opts.Verbose,
		Stderr:  stderr,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	st, err := storage.Open(ctx, cfg.DataDir, storage.WithMaxBlobSize(cfg.Sync.MaxAttachmentBytes))
	if err != nil {
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	logger.Debug("store ready", "path", st.Path())

	openURL := opts.OpenURL
	if openURL == nil {
		openURL = func(url string) error {
			_, err := fmt.Fprintf(stderr, "Open this URL in your browser to authorize Google Drive:\n\n  %s\n\n", url)
			return err
		}
	}
	requester := session.NewLoopbackRequester(session.LoopbackConfig{
		ClientSecret: cfg.Drive.ClientSecret,
		AuthURL:      cfg.Drive.AuthURL,
		TokenURL:     cfg.Drive.TokenURL,
		RedirectPort: cfg.Drive.RedirectPort,
		OpenURL:      openURL,
		Logger:       logger,
	})

	a := app.New(st, session.New(requester), app.Options{
		DefaultClientID:    cfg.Drive.ClientID,
		APIBase:            cfg.Drive.APIBase,
		MaxFiles:           cfg.Sync.MaxFiles,
		MaxAttachmentBytes: cfg.Sync.MaxAttachmentBytes,
		PageSize:           cfg.Sync.PageSize,
	}, logger)

	return &env{
		app:    a,
		logger: logger,
		close: func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing store", "error", err)
			}
			logCloser.Close()
		},
	}, nil
}

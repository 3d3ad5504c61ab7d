package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/backup"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Write a backup of every record and attachment",
		Long: `Write a backup document with every resource, speech, skill entry,
evaluation, setting and attachment.

Without a path the backup is written to the current directory under a
dated name; a directory path gets the same name inside it; "-" writes to
stdout.

Example:
  debate-vault export
  debate-vault export ~/backups
  debate-vault export - > vault.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(cmd, rootOpts, path)
		},
	}
}

func runExport(cmd *cobra.Command, opts *RootOptions, path string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close()

	if path == "-" {
		snap, err := backup.Export(ctx, e.app.Store)
		if err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		if err := backup.Encode(cmd.OutOrStdout(), snap); err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		return nil
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, backup.FileName(time.Now()))
	}
	snap, err := backup.WriteFile(ctx, e.app.Store, path)
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}
	e.logger.Info("backup exported", "path", path, "files", len(snap.Files))
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d resources, %d speeches, %d skills, %d evaluations and %d files to %s\n",
		len(snap.Resources), len(snap.Speeches), len(snap.Skills), len(snap.Evaluations), len(snap.Files), path)
	return nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Yes bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a backup, replacing all existing data",
		Long: `Restore a backup document written by export. Every existing record,
setting and attachment is replaced. This cannot be undone.

Example:
  debate-vault import debate-vault-backup-2024-06-01.json
  debate-vault import backup.json --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "replace existing data without asking")

	return cmd
}

func confirmReplace(title string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description("All current resources, speeches, skills, evaluations and attachments will be replaced.").
		Affirmative("Replace").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func runImport(cmd *cobra.Command, opts *ImportOptions, file string) error {
	snap, err := backup.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read backup", err)
	}

	if !opts.Yes {
		confirm := opts.Confirm
		if confirm == nil {
			confirm = confirmReplace
		}
		ok, err := confirm(fmt.Sprintf("Replace all data with %s?", filepath.Base(file)))
		if err != nil {
			return WrapExitError(ExitCommandError, "confirmation failed (use --yes in scripts)", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled.")
			return nil
		}
	}

	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close()

	if err := backup.Import(ctx, e.app.Store, snap); err != nil {
		return WrapExitError(ExitFailure, "import failed", err)
	}
	e.logger.Info("backup imported", "path", file, "files", len(snap.Files))
	printImportSummary(cmd.OutOrStdout(), snap)
	return nil
}

func printImportSummary(w io.Writer, snap *backup.Snapshot) {
	fmt.Fprintf(w, "Imported %d resources, %d speeches, %d skills, %d evaluations and %d files. Previous data was replaced.\n",
		len(snap.Resources), len(snap.Speeches), len(snap.Skills), len(snap.Evaluations), len(snap.Files))
}

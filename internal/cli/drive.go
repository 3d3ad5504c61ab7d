package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/app"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// DriveOptions holds flags shared by the drive subcommands.
type DriveOptions struct {
	*RootOptions
	ClientID string
}

// NewDriveCommand creates the drive command group.
func NewDriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Connect to Google Drive and import folders",
	}
	cmd.PersistentFlags().StringVar(&opts.ClientID, "client-id", "", "Google OAuth client id (defaults to the remembered or configured one)")

	cmd.AddCommand(newDriveStatusCommand(opts))
	cmd.AddCommand(newDriveConnectCommand(opts))
	cmd.AddCommand(newDriveImportCommand(opts))

	return cmd
}

func newDriveStatusCommand(opts *DriveOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the remembered client and folder",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()
			return printStatus(cmd.OutOrStdout(), opts.Format, e.app.Status())
		},
	}
}

func newDriveConnectCommand(opts *DriveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Authorize read-only Drive access in the browser",
		Long: `Start the Google authorization flow. The consent page is opened by
visiting the printed URL; the answer arrives on a loopback redirect.

A fresh credential is requested on every run. It lives only as long as
the process, so use the serve command to keep it across imports.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			status, err := e.app.ConnectDrive(cmd.Context(), opts.ClientID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect Google Drive", err)
			}
			return printStatus(cmd.OutOrStdout(), opts.Format, status)
		},
	}
}

func newDriveImportCommand(opts *DriveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [folder]",
		Short: "Import every file below a Drive folder as resources",
		Long: `Walk a Drive folder and its subfolders and store every file as a
resource in the "Google Drive" category. Native documents are exported
(Docs and Slides as PDF, Sheets as CSV, Drawings as PNG). Re-running
updates the existing resources instead of duplicating them.

The folder may be an id or a share link; without one the remembered
folder is used.

Example:
  debate-vault drive import https://drive.google.com/drive/folders/1AbC...
  debate-vault drive import --client-id 123.apps.googleusercontent.com 1AbC...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			folder := e.app.Store.SettingString(models.SettingDriveFolderInput)
			if len(args) == 1 {
				folder = args[0]
			}
			if folder == "" {
				return NewExitError(ExitCommandError, "no folder given and none remembered")
			}

			progress := func(p models.SyncResult) {
				if opts.Verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %d discovered, %d imported, %d updated, %d skipped\n",
						p.Total, p.Imported, p.Updated, p.Skipped)
				}
			}
			res, err := e.app.ImportDriveFolder(cmd.Context(), opts.ClientID, folder, progress)
			if opts.Format != "text" {
				if werr := writeStructured(cmd.OutOrStdout(), opts.Format, res); werr != nil {
					return werr
				}
			} else if err == nil || res.Total > 0 {
				printSyncSummary(cmd.OutOrStdout(), res, err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "drive import failed", err)
			}
			return nil
		},
	}
}

func printStatus(w io.Writer, format string, st app.DriveStatus) error {
	if format != "text" {
		return writeStructured(w, format, st)
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Drive:"), st.State)
	if st.ClientID != "" {
		fmt.Fprintf(w, "Client: %s\n", st.ClientID)
	}
	if st.ExpiresAt != "" {
		fmt.Fprintf(w, "Expires: %s\n", st.ExpiresAt)
	}
	if st.FolderInput != "" {
		fmt.Fprintf(w, "Folder: %s\n", st.FolderInput)
	}
	return nil
}

func printSyncSummary(w io.Writer, res models.SyncResult, err error) {
	heading := okStyle.Render("Drive import finished")
	if err != nil {
		heading = warnStyle.Render(fmt.Sprintf("Drive import stopped after %d files", res.Total))
	}
	body := fmt.Sprintf("%s\n\nImported  %d\nUpdated   %d\nSkipped   %d\nTotal     %d",
		heading, res.Imported, res.Updated, res.Skipped, res.Total)
	fmt.Fprintln(w, summaryStyle.Render(body))
}

package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/config"
)

// RootOptions holds global flags and the configuration resolved from them.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "text" | "json" | "yaml"

	// OpenURL overrides how the authorization page is shown (for testing).
	// If nil, the URL is printed to stderr.
	OpenURL func(url string) error
	// Confirm overrides the interactive yes/no prompt (for testing).
	Confirm func(title string) (bool, error)

	v      *viper.Viper
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the debate-vault CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.v = config.New()

	cmd := &cobra.Command{
		Use:   "debate-vault",
		Short: "Debate Vault - local record keeper for debate practice",
		Long: `A local-first store for study resources, practice speeches, skill
self-assessments and round evaluations, with Google Drive import and
JSON backups. The serve command exposes everything as MCP tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.v, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default <data-dir>/config.yaml)")
	flags.String("data-dir", "./data", "directory for the SQLite database")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "write logs to this rotating file instead of stderr")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	for key, flag := range map[string]string{
		"data_dir":  "data-dir",
		"log_level": "log-level",
		"log_file":  "log-file",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDriveCommand(opts))

	return cmd
}

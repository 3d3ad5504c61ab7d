package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// ListKinds are the collections the list command can print.
var ListKinds = []string{"resources", "speeches", "skills", "evaluations"}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Category string
	Role     string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <resources|speeches|skills|evaluations>",
		Short: "Print a collection, newest first",
		Example: `  debate-vault list resources --category "Google Drive"
  debate-vault list evaluations --format yaml`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     ListKinds,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only resources in this category")
	cmd.Flags().StringVar(&opts.Role, "role", "", "only speeches with this role")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions, kind string) error {
	e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close()

	headers, rows, data, err := collect(e.app.Store, opts, kind)
	if err != nil {
		return err
	}
	if opts.Format != "text" {
		return writeStructured(cmd.OutOrStdout(), opts.Format, data)
	}
	if len(rows) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s.\n", kind)
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

// collect returns the table form and the structured form of one collection.
func collect(st *storage.Store, opts *ListOptions, kind string) (headers []string, rows [][]string, data any, err error) {
	switch kind {
	case "resources":
		list := st.Resources()
		if opts.Category != "" {
			list = st.ResourcesByCategory(opts.Category)
		}
		for _, r := range list {
			rows = append(rows, []string{r.ID, r.Title, r.Category, r.FileName, r.Path})
		}
		return []string{"ID", "TITLE", "CATEGORY", "FILE", "PATH"}, rows, nonNil(list), nil
	case "speeches":
		list := st.Speeches()
		if opts.Role != "" {
			list = st.SpeechesByRole(opts.Role)
		}
		for _, s := range list {
			rows = append(rows, []string{s.ID, s.Motion, s.Role, s.CreatedAt})
		}
		return []string{"ID", "MOTION", "ROLE", "CREATED"}, rows, nonNil(list), nil
	case "skills":
		list := st.Skills()
		for _, s := range list {
			rows = append(rows, []string{s.ID, s.Skill, strconv.FormatFloat(s.Score, 'f', -1, 64), s.Target})
		}
		return []string{"ID", "SKILL", "SCORE", "TARGET"}, rows, nonNil(list), nil
	case "evaluations":
		list := st.Evaluations()
		for _, ev := range list {
			rows = append(rows, []string{ev.ID, ev.Date, ev.Event, ev.Motion, strconv.Itoa(ev.Total)})
		}
		return []string{"ID", "DATE", "EVENT", "MOTION", "TOTAL"}, rows, nonNil(list), nil
	}
	return nil, nil, nil, NewExitError(ExitCommandError,
		fmt.Sprintf("unknown collection %q: must be one of %v", kind, ListKinds))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Transport string
	Port      string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Expose the vault as MCP tools over stdio or streamable HTTP.

In stdio mode stdout carries protocol frames only; logs go to stderr or
the configured log file.

Example:
  debate-vault serve
  debate-vault serve --transport http --port 8081`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", "stdio", "transport mode (stdio|http)")
	cmd.Flags().StringVar(&opts.Port, "port", "8081", "HTTP port (only used with --transport http)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	if opts.Transport != "stdio" && opts.Transport != "http" {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown transport %q (use stdio or http)", opts.Transport))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	e, err := openEnv(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close()

	srv := server.New(e.app)

	switch opts.Transport {
	case "stdio":
		e.logger.Info("debate vault MCP server starting", "transport", "stdio", "version", server.Version)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	default:
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		httpSrv := &http.Server{Addr: ":" + opts.Port, Handler: handler}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				e.logger.Error("http shutdown", "error", err)
			}
		}()

		e.logger.Info("debate vault MCP server listening", "addr", httpSrv.Addr, "version", server.Version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "HTTP server error", err)
		}
		return nil
	}
}

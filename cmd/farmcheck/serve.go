package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/HendryAvila/farmcheck/internal/connect"
	"github.com/HendryAvila/farmcheck/internal/httpapi"
	"github.com/HendryAvila/farmcheck/internal/server"
	"github.com/HendryAvila/farmcheck/internal/updater"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}

			// Graceful shutdown on interrupt.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, cleanup, err := server.New(ctx, cfg, a.logger)
			defer cleanup()
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			// Notices go to stderr so they don't interfere with the
			// stdio transport on stdout.
			go checkForUpdates(ctx, cmd.ErrOrStderr())

			return server.Serve(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		},
	}
}

func newHTTPCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the report over HTTP",
		Long: `Serves the diagnostic over HTTP until interrupted.

  GET /healthz   liveness
  GET /status    markdown report (?format=json for JSON); 503 when a check failed
  GET /tables    configured tables`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTP.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := connect.Open(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			router := httpapi.NewRouter(connect.NewReporter(cfg, b, a.logger), a.logger)
			fmt.Fprintf(cmd.ErrOrStderr(), "farmcheck listening on %s\n", addr)
			return httpapi.Serve(ctx, httpapi.NewServer(addr, router), a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update to the latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), cmd.ErrOrStderr())
		},
	}
}

// checkForUpdates prints a notice to w if a newer release exists.
// Network failures are ignored.
func checkForUpdates(ctx context.Context, w io.Writer) {
	result := newChecker().CheckVersion(ctx, server.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(w,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: farmcheck update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate(ctx context.Context, w io.Writer) error {
	fmt.Fprintf(w, "🔍 Checking for updates...\n")

	checker := newChecker()
	result := checker.CheckVersion(ctx, server.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(w, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return nil
	}

	fmt.Fprintf(w, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(w, "⬇️  Downloading...\n")

	installed, err := checker.SelfUpdate(ctx, server.Version)
	if errors.Is(err, updater.ErrUpToDate) {
		fmt.Fprintf(w, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return nil
	}
	if err != nil {
		fmt.Fprintf(w, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(w, "✅ Updated to v%s!\n", installed)
	fmt.Fprintf(w, "   Restart farmcheck to use the new version.\n")
	return nil
}

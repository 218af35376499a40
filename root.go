// Command sharepoint-mcp-go serves SharePoint list and item operations
// as MCP tools over stdio. Configuration is taken from KEY=VALUE
// arguments, environment variables, and an optional TOML file, in that
// precedence order.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/config"
	"github.com/Zerg00s/sharepoint-mcp-go/internal/seeding"
	"github.com/Zerg00s/sharepoint-mcp-go/internal/sharepoint"
	"github.com/Zerg00s/sharepoint-mcp-go/internal/tools"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagVerbose bool
	flagQuiet   bool
)

// httpClientTimeout bounds the whole HTTP exchange including the body.
// The per-call API timeout is enforced separately via context; this is
// the outer safety net against hung connections.
const httpClientTimeout = 5 * time.Minute

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sharepoint-mcp-go [KEY=VALUE ...]",
		Short:         "MCP server for SharePoint lists and items",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args)
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "errors only")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return root
}

// runServe wires the client stack and serves MCP over stdio. stdout is
// the MCP transport, so all logging goes to stderr.
func runServe(args []string) error {
	logger := buildLogger()

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	creds, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: httpClientTimeout}

	client := sharepoint.NewClient(httpClient, cfg.Timeout(), logger)
	sessions := sharepoint.NewSessionManager(creds, httpClient, logger)
	digests := sharepoint.NewDigestProvider(client, sessions, logger)
	service := sharepoint.NewService(client, sessions, digests, logger)
	seeder := seeding.NewSeeder(service, logger)

	s := tools.NewServer(service, seeder, cfg.SiteURL, version, logger)

	logger.Info("serving MCP over stdio",
		slog.String("version", version),
		slog.String("default_site", cfg.SiteURL),
	)

	return server.ServeStdio(s)
}

// buildLogger creates the process logger: text for terminals, JSON when
// stderr is piped to a collector.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

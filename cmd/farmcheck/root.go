package main

import (
	"fmt"

	"github.com/HendryAvila/farmcheck/internal/config"
	"github.com/HendryAvila/farmcheck/internal/connect"
	"github.com/HendryAvila/farmcheck/internal/logging"
	"github.com/HendryAvila/farmcheck/internal/server"
	"github.com/HendryAvila/farmcheck/internal/updater"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newChecker builds the release checker. Tests point it at httptest.
var newChecker = updater.New

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	verbose    bool

	logger *zap.Logger
}

// config loads the configuration named by --config, plus env overrides.
func (a *app) config() (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	a.logger.Debug("configuration loaded", zap.Any("config", cfg.Redacted()))
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "farmcheck",
		Short: "Farm database status reporter",
		Long: `farmcheck checks that the farm tables exist, counts their rows, and
lists the storage buckets.

Configuration comes from --config (YAML) and FARMCHECK_* environment
variables. Without either, a SQLite database at ~/.farmcheck/farm.db and
buckets under ~/.farmcheck/storage are used.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "farmcheck": {
        "command": "farmcheck",
        "args": ["serve"]
      }
    }
  }`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			connect.UserAgent = "farmcheck/" + server.Version
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetVersionTemplate("farmcheck v{{.Version}}\n")

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "debug logging on stderr")

	root.AddCommand(
		newReportCmd(a),
		newTablesCmd(a),
		newServeCmd(a),
		newHTTPCmd(a),
		newUpdateCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the farmcheck version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "farmcheck v%s\n", server.Version)
		},
	}
}

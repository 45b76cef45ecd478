package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/switchboard/internal/config"
)

// options are the command-line settings shared by subcommands.
type options struct {
	ConfigPath string
	ScriptDir  string
	LogLevel   string
	Introspect string // Address; enables the debug API when set
	Watch      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "switchboard",
		Short:         "Event, state and lifecycle orchestrator for scripted components",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (toml, yaml or json)")

	root.AddCommand(newRunCmd(opts), newCheckConfigCmd(opts), newVersionCmd())
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load component scripts and run until interrupted",
		Example: "  switchboard run --scripts ./components\n" +
			"  switchboard run -c switchboard.toml --introspect 127.0.0.1:7070",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHost(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ScriptDir, "scripts", "s", "", "Directory of component scripts (overrides components.script_dir)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off (overrides log.level)")
	cmd.Flags().StringVar(&opts.Introspect, "introspect", "", "Serve the debug API on this loopback address")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Reload security settings when the config file changes")
	return cmd
}

func newCheckConfigCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := encodeConfig(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "Output format: toml|yaml|json")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "switchboard %s\nCommit: %s\nBuilt: %s\n", version, commit, date)
		},
	}
}

// loadConfig loads the file named by opts, applies flag overrides and
// validates the result.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.ScriptDir != "" {
		cfg.Components.ScriptDir = opts.ScriptDir
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Introspect != "" {
		cfg.Introspect.Enabled = true
		cfg.Introspect.Addr = opts.Introspect
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func encodeConfig(cfg *config.Config, format string) ([]byte, error) {
	switch format {
	case "toml":
		return toml.Marshal(cfg)
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/deskkit/internal/app"
	"github.com/dshills/deskkit/internal/config"
)

// maxRestarts bounds consecutive restarts within one process.
const maxRestarts = 16

type rootFlags struct {
	configPath string
	logDir     string
	debug      bool
	console    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "deskkit",
		Short:         "deskkit desktop application shell",
		Long:          "deskkit runs the application shell: event store, logging, crash reporting and settings.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, flags, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Settings file (.toml, .yaml or .json)")
	pf.StringVar(&flags.logDir, "log-dir", "", "Log directory (overrides settings)")
	pf.BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	root.Flags().BoolVar(&flags.console, "console", false, "Mirror log output to stderr")

	root.AddCommand(newVersionCmd(), newConfigCmd(&flags))
	return root
}

// runApp runs the application, starting it again each time it asks for a
// restart.
func runApp(cmd *cobra.Command, flags rootFlags, stderr io.Writer) error {
	opts := app.Options{
		ConfigPath: flags.configPath,
		LogDir:     flags.logDir,
		Debug:      flags.debug,
		Version:    version,
	}
	if flags.console {
		opts.Console = stderr
	}

	for restarts := 0; ; restarts++ {
		application, err := app.New(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}

		err = application.Run(cmd.Context())
		if !errors.Is(err, app.ErrRestart) {
			return err
		}
		if restarts >= maxRestarts {
			return fmt.Errorf("restarted %d times, giving up", restarts)
		}
		if cmd.Context().Err() != nil {
			return nil
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deskkit %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.logDir != "" {
				s.Log.Dir = flags.logDir
			}
			b, err := encodeSettings(s, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "toml", "Output format: toml, yaml or json")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check that the settings load and validate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.Load(flags.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings ok")
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}

func encodeSettings(s config.Settings, format string) ([]byte, error) {
	switch format {
	case "toml":
		return toml.Marshal(s)
	case "yaml", "yml":
		return yaml.Marshal(s)
	case "json":
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedFormat, format)
	}
}

package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/goliatone/go-ambient/internal/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the state shared by subcommands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for ambientctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ambientctl",
		Short: "Inspect and watch ambient state",
		Long: "ambientctl reads and writes persisted ambient bindings and watches event sources.\n\n" +
			"The storage backend is selected with AMBIENT_STORAGE_DRIVER (memory|sqlite|file|nats).",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			msg := fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())
			if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
				msg += fmt.Sprintf(" (did you mean %q?)", suggestions[0])
			}
			return NewExitError(ExitCommandError, msg)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "load configuration", err)
			}
			if opts.Verbose {
				cfg.LogLevel = "debug"
			}
			opts.Config = cfg
			opts.Logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewListenCommand(opts))

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "usage: "+c.UseLine(), err)
	})
	for _, sub := range cmd.Commands() {
		sub.Args = usageArgs(sub.Args)
	}

	return cmd
}

// usageArgs reports argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	if validate == nil {
		return nil
	}
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "usage: "+cmd.UseLine(), err)
		}
		return nil
	}
}

// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command gallery runs the component preview pipeline against local files.
//
// # Commands
//
//   - parse: print the metadata extracted from a component and its demo.
//   - bundle: resolve, compile and assemble a sandbox bundle.
//   - watch: rebuild the bundle whenever a source file changes.
//   - install-command: print the shadcn command that installs a component.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehtisham-afzal/21st/internal/platform/config"
)

// app carries what every subcommand shares.
type app struct {
	cfg    *config.CLIConfig
	logger *slog.Logger
	out    io.Writer
	format string
	debug  bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// newRootCmd assembles the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	state := &app{out: out}

	root := &cobra.Command{
		Use:   "gallery",
		Short: "Preview and install gallery components from the command line",
		Long: `gallery runs the component preview pipeline on local files.

Registry dependencies are read from a directory laid out as
<root>/<username>/<registry>/<slug>.tsx, with an optional <slug>.demo.tsx.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadCLI()
			if err != nil {
				return err
			}
			state.cfg = cfg

			level := slog.LevelWarn
			if state.debug {
				level = slog.LevelDebug
			}
			state.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			return validateFormat(state.format)
		},
	}

	root.PersistentFlags().StringVarP(&state.format, "format", "f", formatJSON, "output format: json or yaml")
	root.PersistentFlags().BoolVar(&state.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		parseCmd(state),
		bundleCmd(state),
		watchCmd(state),
		installCmd(state),
	)
	return root
}

// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehtisham-afzal/21st/internal/core/install"
	"github.com/ehtisham-afzal/21st/internal/preview"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
)

// # parse

func parseCmd(state *app) *cobra.Command {
	flags := &sourceFlags{}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Print component names and dependencies found in the sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := flags.load()
			if err != nil {
				return err
			}

			result, err := preview.NewService(nil, nil, nil, nil, state.logger).Parse(inputs)
			if err != nil {
				return err
			}
			return write(state.out, state.format, result)
		},
	}

	flags.register(cmd)
	return cmd
}

// # bundle

func bundleCmd(state *app) *cobra.Command {
	flags := &sourceFlags{}
	pipeline := &pipelineFlags{}
	var outDir string

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Resolve, compile and assemble the sandbox bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := flags.load()
			if err != nil {
				return err
			}

			service := state.newService(pipeline.registryDir)

			var choose chooser
			if !pipeline.noInput {
				choose = surveyChooser
			}
			inputs, err = confirm(service, inputs, pipeline.registryDir, choose)
			if err != nil {
				return err
			}

			result, err := service.Bundle(cmd.Context(), inputs)
			if err != nil {
				return err
			}

			if outDir != "" {
				if err := writeFiles(outDir, result.Bundle.Files); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d files to %s\n", len(result.Bundle.Files), outDir)
			}
			return write(state.out, state.format, result.Bundle)
		},
	}

	flags.register(cmd)
	pipeline.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "also write the bundle files under this directory")
	return cmd
}

// # install-command

func installCmd(state *app) *cobra.Command {
	var runner string

	cmd := &cobra.Command{
		Use:   "install-command <username>/<slug>",
		Short: "Print the shadcn command that installs a published component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parser.ParseReference(args[0])
			if err != nil {
				return err
			}

			url := install.URL(state.cfg.AppURL, ref.Username, ref.Slug)
			parsed := install.ParseRunner(runner)
			if cmd.Flags().Changed("format") {
				return write(state.out, state.format, install.Instructions{URL: url, Runner: parsed, Command: install.Command(parsed, url)})
			}

			_, err = fmt.Fprintln(state.out, install.Command(parsed, url))
			return err
		},
	}

	cmd.Flags().StringVar(&runner, "runner", string(install.RunnerNPM), "package runner: "+strings.Join([]string{
		string(install.RunnerNPM), string(install.RunnerYarn), string(install.RunnerPNPM), string(install.RunnerBun),
	}, ", "))
	return cmd
}

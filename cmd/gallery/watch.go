// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/preview"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
)

func watchCmd(state *app) *cobra.Command {
	flags := &sourceFlags{}
	pipeline := &pipelineFlags{}
	var outDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the preview whenever a source file changes",
		Long: `watch keeps a preview session open and feeds it the sources on every change.

Ambiguous imports are never prompted for; pass --confirm or --demo-confirm.
Edits under --registry-dir resolve the dependency tree again.
Each ready bundle is written under --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create file watcher: %w", err)
			}
			defer watcher.Close()

			sources, err := watchSources(watcher, flags.paths(), pipeline.registryDir, outDir)
			if err != nil {
				return err
			}

			service := state.newService(pipeline.registryDir)
			session := service.NewSession(ctx)
			defer session.Close()

			states := make(chan host.State, 1)
			unsubscribe := session.Subscribe(func(latest host.State) {
				select {
				case <-states:
				default:
				}
				states <- latest
			})
			defer unsubscribe()

			reload := func(refresh bool) {
				inputs, err := flags.load()
				if err == nil {
					inputs, err = preview.Normalize(inputs)
				}
				if err == nil {
					inputs, err = confirm(service, inputs, pipeline.registryDir, nil)
				}
				if err != nil {
					state.logger.Warn("watch_reload_failed", slog.Any("error", err))
					return
				}
				if refresh {
					session.Refresh(inputs)
					return
				}
				session.Update(inputs)
			}

			debounce := time.NewTimer(constants.WatchDebounce)
			defer debounce.Stop()
			refresh := false

			for {
				select {
				case <-ctx.Done():
					return nil

				case <-debounce.C:
					reload(refresh)
					refresh = false

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Has(fsnotify.Create) {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !sources.ignoredPath(event.Name) {
							_ = watcher.Add(event.Name)
						}
					}
					if sources.relevant(event) {
						state.logger.Debug("source_changed", slog.String("file", event.Name))
						refresh = refresh || sources.registryEdit(event)
						debounce.Reset(constants.WatchDebounce)
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					state.logger.Warn("file_watcher_error", slog.Any("error", err))

				case latest := <-states:
					if err := report(cmd.ErrOrStderr(), outDir, latest); err != nil {
						return err
					}
				}
			}
		},
	}

	flags.register(cmd)
	pipeline.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", filepath.Join(".gallery", "preview"), "directory receiving ready bundles")
	return cmd
}

// sourceSet decides which filesystem events feed a rebuild.
type sourceSet struct {
	files    map[string]bool
	output   string
	registry string
}

/*
watchSources adds the input files' directories and every directory of the
local registry to watcher. Hidden directories and outDir are skipped so
written bundles never trigger a rebuild.
*/
func watchSources(watcher *fsnotify.Watcher, paths []string, registryDir, outDir string) (*sourceSet, error) {
	output, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}
	registry, err := filepath.Abs(registryDir)
	if err != nil {
		return nil, err
	}
	sources := &sourceSet{files: make(map[string]bool, len(paths)), output: output, registry: registry}

	for _, path := range paths {
		absolute, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		sources.files[absolute] = true
		if err := watcher.Add(filepath.Dir(absolute)); err != nil {
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}

	err = filepath.WalkDir(registryDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != registryDir && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		if absolute, err := filepath.Abs(path); err == nil && sources.ignored(absolute) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return nil, fmt.Errorf("watch registry %s: %w", registryDir, err)
	}
	return sources, nil
}

func (sources *sourceSet) ignoredPath(path string) bool {
	absolute, err := filepath.Abs(path)
	return err != nil || sources.ignored(absolute)
}

func (sources *sourceSet) ignored(absolute string) bool {
	return absolute == sources.output || strings.HasPrefix(absolute, sources.output+string(filepath.Separator))
}

// relevant reports whether event touches an input file or a registry source.
func (sources *sourceSet) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	absolute, err := filepath.Abs(event.Name)
	if err != nil || sources.ignored(absolute) {
		return false
	}
	return sources.files[absolute] || filepath.Ext(absolute) == ".tsx"
}

// registryEdit reports whether a relevant event changed a registry component
// rather than one of the inputs.
func (sources *sourceSet) registryEdit(event fsnotify.Event) bool {
	if !sources.relevant(event) {
		return false
	}
	absolute, err := filepath.Abs(event.Name)
	if err != nil || sources.files[absolute] {
		return false
	}
	return absolute == sources.registry || strings.HasPrefix(absolute, sources.registry+string(filepath.Separator))
}

// report prints one state transition and writes ready bundles to outDir.
func report(out io.Writer, outDir string, state host.State) error {
	switch state.Phase {
	case host.PhaseReady:
		if err := writeFiles(outDir, state.Bundle.Files); err != nil {
			return err
		}
		fmt.Fprintf(out, "[%d] ready: %d files written to %s\n", state.Generation, len(state.Bundle.Files), outDir)
	case host.PhaseLoading:
		fmt.Fprintf(out, "[%d] building...\n", state.Generation)
	default:
		fmt.Fprintf(out, "[%d] %s: %v\n", state.Generation, state.Phase, preview.StateError(state))
	}
	return nil
}

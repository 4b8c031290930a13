package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/assemble"
	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/scope"
)

func newWatchCommand() *cobra.Command {
	var (
		profileName string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reassemble the plan whenever settings or profiles change",
		Long: `Watch the settings files and profile directories and reassemble the mount
plan on every change, printing the updated summary. Useful while editing
profiles: the banner shows immediately whether the edit compiled or the plan
degraded.

Rapid bursts of file events (editors often write several) collapse into a
single reassembly after a short quiet period. Stop with Ctrl-C.`,
		Example: `  loadout watch

  # Watch while pinning a specific profile
  loadout watch --profile dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			for _, dir := range watchDirs(e) {
				if err := watcher.Add(dir); err != nil {
					log.Debug().Err(err).Str("dir", dir).Msg("Skipping unwatchable directory")
					continue
				}
				log.Info().Str("dir", dir).Msg("Watching")
			}

			reassemble := func(trigger string) {
				res := e.assembler.Assemble(profileName, assemble.Overrides{})
				summary := mountplan.Summarize(res.Plan, res.ProfileName)
				fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), summary.BannerLine())
				if res.Degraded {
					fmt.Println("  warning: profile failed to load, using skeleton plan")
				}
				log.Debug().Str("trigger", trigger).Bool("degraded", res.Degraded).Msg("Reassembled")
			}

			reassemble("startup")

			var (
				timer   *time.Timer
				pending string
			)
			ctx := cmd.Context()
			for {
				var fire <-chan time.Time
				if timer != nil {
					fire = timer.C
				}

				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !relevantEvent(event) {
						continue
					}
					pending = event.Name
					if timer == nil {
						timer = time.NewTimer(debounce)
					} else {
						timer.Reset(debounce)
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watch error")

				case <-fire:
					timer = nil
					reassemble(pending)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to assemble (defaults to the active profile)")
	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "quiet period before reassembling after a change")

	return cmd
}

// watchDirs lists the directories whose contents feed assembly: the two
// settings directories and every profile search directory that exists.
func watchDirs(e *cliEnv) []string {
	candidates := []string{
		scope.GlobalDir(e.homeDir),
		scope.ProjectDir(e.workDir),
		filepath.Join(scope.GlobalDir(e.homeDir), "profiles"),
		filepath.Join(scope.ProjectDir(e.workDir), "profiles"),
	}

	var dirs []string
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// relevantEvent filters out noise: only writes, creates, removes, and renames
// of YAML and markdown files trigger reassembly.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".yaml", ".yml", ".md":
		return true
	}
	return false
}

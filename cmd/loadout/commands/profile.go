package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/scope"
	"github.com/loadout-sh/loadout/pkg/stores"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile management",
		Long: `Manage profiles: markdown files with YAML front matter that declare the
session shape (orchestrator, context, providers, tools, hooks, agents).

Profiles live in ~/.loadout/profiles and ./.loadout/profiles, with the
project directory taking precedence for same-named profiles. Collections can
provide additional profiles addressed as 'collection:relative/path'.`,
	}

	cmd.AddCommand(newProfileListCommand())
	cmd.AddCommand(newProfileShowCommand())
	cmd.AddCommand(newProfileUseCommand())
	cmd.AddCommand(newProfileClearCommand())
	cmd.AddCommand(newProfileWhichCommand())

	return cmd
}

func newProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			names := e.loader.ListProfiles()
			active, _ := e.scopes.ActiveProfile()

			if jsonOutput {
				data, err := json.MarshalIndent(names, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, name := range names {
				marker := " "
				if name == active {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func newProfileShowCommand() *cobra.Command {
	var showChain bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a resolved profile",
		Long: `Load a profile, resolve its inheritance chain, and display the merged
result. The output reflects what the compiler would see, after extends
merging and mention expansion.`,
		Example: `  # Show the merged dev profile
  loadout profile show dev

  # Show a collection-provided profile
  loadout profile show mykit:profiles/base

  # Show the inheritance chain
  loadout profile show dev --chain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			p, err := e.loader.LoadProfile(args[0])
			if err != nil {
				return err
			}

			if showChain {
				chain, err := e.loader.ResolveInheritanceChain(p)
				if err != nil {
					return err
				}
				for i, link := range chain {
					fmt.Printf("%d. %s (%s)\n", i+1, link.Meta.Name, link.Path)
				}
				return nil
			}

			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showChain, "chain", false, "show the inheritance chain instead of the merged profile")

	return cmd
}

func newProfileUseCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Activate a profile",
		Long: `Set the active profile at a scope. The local scope (the default) keeps the
choice personal; the project scope shares it with the repository via
profile.default.`,
		Example: `  # Activate for this checkout only
  loadout profile use dev

  # Set the shared project default
  loadout profile use dev --scope project`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			name := args[0]
			target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
			if err != nil {
				return err
			}

			// Refuse names that don't resolve to a profile file.
			if _, _, ok := e.loader.FindProfileFile(name); !ok {
				return fmt.Errorf("profile not found: %s", name)
			}

			if err := e.scopes.SetActiveProfile(target, name); err != nil {
				return err
			}

			logActivation(cmd, e, "profile.set", target.String(), name)
			fmt.Printf("Activated profile %q at %s scope\n", name, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newProfileClearCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the active profile at a scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
			if err != nil {
				return err
			}

			if err := e.scopes.ClearActiveProfile(target); err != nil {
				return err
			}

			logActivation(cmd, e, "profile.clear", target.String(), "")
			fmt.Printf("Cleared active profile at %s scope\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newProfileWhichCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "which",
		Short: "Show the active profile and which setting selected it",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			name, origin := e.scopes.ActiveProfile()
			if name == "" {
				fmt.Println("No active profile (the system default applies)")
				return nil
			}

			if jsonOutput {
				data, _ := json.Marshal(map[string]string{"profile": name, "origin": origin})
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s (selected by %s)\n", name, origin)
			return nil
		},
	}
}

// logActivation appends a best-effort record to the history database.
// Failures are logged, never surfaced: history is advisory.
func logActivation(cmd *cobra.Command, e *cliEnv, action, scopeName, profileName string) {
	store, err := openHistory(cmd.Context(), e)
	if err != nil {
		log.Debug().Err(err).Msg("History database unavailable, skipping activation record")
		return
	}
	defer store.Close()

	entry := &stores.Activation{
		Action:    action,
		Scope:     scopeName,
		Profile:   profileName,
		Timestamp: time.Now(),
	}
	if err := store.AppendActivation(cmd.Context(), entry); err != nil {
		log.Debug().Err(err).Msg("Failed to record activation")
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/resolve"
	"github.com/loadout-sh/loadout/pkg/scope"
)

func newSourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Module source pins and resolution",
		Long: `Inspect and edit module source pins, and trace how a module id resolves
through the layered lookup: environment override, workspace materialization,
the three settings scopes, profile declarations, collections, and finally the
installed package fallback.`,
	}

	cmd.AddCommand(newSourceAddCommand())
	cmd.AddCommand(newSourceRemoveCommand())
	cmd.AddCommand(newSourceListCommand())
	cmd.AddCommand(newSourceResolveCommand())

	return cmd
}

func newSourceAddCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "add <module> <source>",
		Short: "Pin a module to a source",
		Example: `  # Pin a tool to a local checkout for this machine
  loadout source add tool-task file:./modules/task

  # Pin for the whole team
  loadout source add tool-task git+https://example.com/task.git --scope project`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
			if err != nil {
				return err
			}

			moduleID, src := args[0], args[1]
			if err := e.scopes.Set(target, "sources."+moduleID, src); err != nil {
				return err
			}

			log.Info().
				Str("module", moduleID).
				Str("source", src).
				Str("scope", target.String()).
				Msg("Source pin added")
			fmt.Printf("Pinned %s -> %s at %s scope\n", moduleID, src, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newSourceRemoveCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "remove <module>",
		Short: "Remove a module source pin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
			if err != nil {
				return err
			}

			if err := e.scopes.Unset(target, "sources."+args[0]); err != nil {
				return err
			}

			fmt.Printf("Removed pin for %s at %s scope\n", args[0], target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newSourceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every pinned module source",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			overrides := e.scopes.SourceOverrides()

			if jsonOutput {
				data, err := json.MarshalIndent(overrides, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			ids := make([]string, 0, len(overrides))
			for id := range overrides {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				o := overrides[id]
				origin := string(o.Scope)
				if o.Registered {
					origin += " (registration)"
				}
				fmt.Printf("%s\t%s\t%s\n", id, o.Source, origin)
			}
			return nil
		},
	}
}

func newSourceResolveCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "resolve <module>",
		Short: "Trace how a module id resolves to a source",
		Long: `Run a module id through the full resolution chain and report the winning
source and the layer that supplied it. With --profile, the named profile's
declared source pins participate in the lookup, as they would during
assembly.`,
		Example: `  loadout source resolve tool-task

  # Include a profile's declared sources
  loadout source resolve tool-task --profile dev`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			resolver := resolve.NewResolver(e.workDir, e.scopes, e.collections, nil, log.Logger)

			if profileName != "" {
				p, err := e.loader.LoadProfile(profileName)
				if err != nil {
					return err
				}
				plan, err := e.compiler.Compile(p)
				if err != nil {
					return err
				}

				pins := map[string]string{}
				for _, list := range plan.Lists() {
					for _, ref := range list {
						if ref.Source != "" {
							pins[ref.Module] = ref.Source
						}
					}
				}
				if plan.Session.OrchestratorSource != "" {
					pins[plan.Session.Orchestrator] = plan.Session.OrchestratorSource
				}
				if plan.Session.ContextSource != "" {
					pins[plan.Session.Context] = plan.Session.ContextSource
				}
				resolver.SetProfileSources(pins)
			}

			src, layer, err := resolver.ResolveWithLayer(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				data, _ := json.Marshal(map[string]string{
					"module": args[0],
					"source": src.String(),
					"layer":  string(layer),
				})
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s\n", src)
			fmt.Printf("Resolved via layer: %s\n", layer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile whose declared sources participate in the lookup")

	return cmd
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/scope"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write layered settings",
		Long: `Read and write the settings hierarchy. Values merge across three scopes in
increasing precedence:

  global   ~/.loadout/settings.yaml
  project  ./.loadout/settings.yaml
  local    ./.loadout/settings.local.yaml

Keys use dotted paths (for example provider.default). Reads consult the
merged view unless --scope selects a single layer; writes always target one
scope, defaulting to local.`,
	}

	cmd.AddCommand(newSettingsGetCommand())
	cmd.AddCommand(newSettingsSetCommand())
	cmd.AddCommand(newSettingsUnsetCommand())
	cmd.AddCommand(newSettingsShowCommand())

	return cmd
}

func newSettingsGetCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a setting",
		Example: `  # Read from the merged hierarchy
  loadout settings get provider.default

  # Read from one scope only
  loadout settings get provider.default --scope project`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			var (
				value any
				found bool
			)
			if scopeFlag == "" {
				value, found = e.scopes.Get(args[0])
			} else {
				target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
				if err != nil {
					return err
				}
				value, found = e.scopes.GetAt(target, args[0])
			}

			if !found {
				return fmt.Errorf("setting not found: %s", args[0])
			}

			return printValue(value)
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "read from one scope instead of the merged view")

	return cmd
}

func newSettingsSetCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting",
		Long: `Write a setting at one scope. The value is parsed as YAML, so numbers,
booleans, lists, and maps round-trip: quote the value to force a string.`,
		Example: `  loadout settings set provider.default provider-anthropic
  loadout settings set profile.default dev --scope project
  loadout settings set telemetry.enabled true
  loadout settings set modules.tools '[{module: tool-task}]' --scope project`,
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

			// Parse the value as YAML so scalars keep their natural types.
			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}

			if err := e.scopes.Set(target, args[0], value); err != nil {
				return err
			}

			fmt.Printf("Set %s at %s scope\n", args[0], target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newSettingsUnsetCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting from one scope",
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

			if err := e.scopes.Unset(target, args[0]); err != nil {
				return err
			}

			fmt.Printf("Unset %s at %s scope\n", args[0], target)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "scope to write (global, project, local)")

	return cmd
}

func newSettingsShowCommand() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the merged settings document",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			var doc map[string]any
			if scopeFlag == "" {
				doc = e.scopes.MergedSettings()
			} else {
				target, err := e.resolveScopeFlag(scopeFlag, scope.ScopeLocal)
				if err != nil {
					return err
				}
				doc = e.scopes.ReadScope(target)
			}

			return printValue(doc)
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "show one scope instead of the merged view")

	return cmd
}

// printValue renders a settings value as JSON or YAML depending on the
// --json flag. Scalars print bare in YAML mode.
func printValue(value any) error {
	if jsonOutput {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	switch v := value.(type) {
	case string:
		fmt.Println(v)
	case nil:
		fmt.Println("null")
	default:
		data, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	}
	return nil
}

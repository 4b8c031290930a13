package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Plan assembly history",
		Long: `Inspect assemblies recorded with 'loadout plan --record' and the profile
activation log. History lives in ~/.loadout/history.db.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryActivationsCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded assemblies, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			store, err := openHistory(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer store.Close()

			assemblies, err := store.ListAssemblies(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(assemblies, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(assemblies) == 0 {
				fmt.Println("No recorded assemblies")
				return nil
			}

			for _, a := range assemblies {
				fmt.Printf("%s  %s  %-8s  %s (%d modules)\n",
					a.CreatedAt.Format("2006-01-02 15:04:05"),
					a.ID[:8],
					a.Status,
					a.ProfileName,
					a.ModuleCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of assemblies to list")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded assembly, including its plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			store, err := openHistory(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer store.Close()

			a, err := store.GetAssembly(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(a, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("ID:       %s\n", a.ID)
			fmt.Printf("Profile:  %s", a.ProfileName)
			if a.ProfileOrigin != "" {
				fmt.Printf(" (selected by %s)", a.ProfileOrigin)
			}
			fmt.Println()
			fmt.Printf("Status:   %s\n", a.Status)
			fmt.Printf("Modules:  %d\n", a.ModuleCount)
			if a.Provider != "" {
				fmt.Printf("Provider: %s\n", a.Provider)
			}
			if a.Model != "" {
				fmt.Printf("Model:    %s\n", a.Model)
			}
			fmt.Printf("WorkDir:  %s\n", a.WorkDir)
			fmt.Printf("Created:  %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Println()
			fmt.Println(a.Plan)
			return nil
		},
	}
}

func newHistoryActivationsCommand() *cobra.Command {
	var (
		scopeFilter   string
		profileFilter string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "activations",
		Short: "Show the profile activation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			store, err := openHistory(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer store.Close()

			var scopePtr, profilePtr *string
			if scopeFilter != "" {
				scopePtr = &scopeFilter
			}
			if profileFilter != "" {
				profilePtr = &profileFilter
			}

			entries, err := store.ListActivations(cmd.Context(), scopePtr, profilePtr, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, entry := range entries {
				line := fmt.Sprintf("%s  %-13s  %s",
					entry.Timestamp.Format("2006-01-02 15:04:05"),
					entry.Action,
					entry.Scope)
				if entry.Profile != "" {
					line += "  " + entry.Profile
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFilter, "scope", "", "only show activations at this scope")
	cmd.Flags().StringVar(&profileFilter, "profile", "", "only show activations of this profile")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to list")

	return cmd
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old assemblies, keeping the most recent",
		Example: `  # Keep the 50 most recent assemblies
  loadout history prune --keep 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			store, err := openHistory(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PruneAssemblies(cmd.Context(), keep)
			if err != nil {
				return err
			}

			expired, err := store.DeleteExpiredResolutions(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d assemblies and %d expired resolution entries\n", removed, expired)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "number of most recent assemblies to keep")

	return cmd
}

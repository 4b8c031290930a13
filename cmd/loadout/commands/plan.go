package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/assemble"
	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/stores"
	"github.com/loadout-sh/loadout/pkg/telemetry"
)

func newPlanCommand() *cobra.Command {
	var (
		profileName string
		provider    string
		model       string
		outFile     string
		noValidate  bool
		record      bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Assemble the mount plan for the current directory",
		Long: `Assemble the final mount plan from the active profile, merged settings,
and CLI overrides.

The assembly:
  - Picks the profile (--profile flag, then settings, then system default)
  - Compiles the profile with its inheritance chain and overlays
  - Layers in settings-registered modules and provider overrides
  - Applies CLI overrides and expands environment placeholders

A broken profile degrades to a skeleton plan instead of failing, so the
command always produces a plan.`,
		Example: `  # Assemble using the active profile
  loadout plan

  # Assemble a specific profile
  loadout plan --profile dev

  # Override the provider and model for this invocation
  loadout plan --provider provider-openai --model gpt-5

  # Write the plan to a file and record it in history
  loadout plan --out plan.json --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if tel := maybeTelemetry(); tel != nil {
				defer tel.Shutdown(ctx)
				ctx = tel.WithContext(ctx)
			}
			ctx = telemetry.WithAssembleContext(ctx, profileName)

			start := time.Now()
			res := e.assembler.Assemble(profileName, assemble.Overrides{
				Provider: provider,
				Model:    model,
			})

			moduleCount := len(res.Plan.Providers) + len(res.Plan.Tools) + len(res.Plan.Hooks)
			telemetry.EndAssembleContext(ctx, res.ProfileName, moduleCount, res.Degraded, nil)

			if !noValidate {
				validator, err := mountplan.NewPlanValidator()
				if err != nil {
					return err
				}
				if err := validator.Validate(res.Plan); err != nil {
					return fmt.Errorf("assembled plan is invalid: %w", err)
				}
			}

			if record {
				if err := recordAssembly(ctx, e, res, time.Since(start)); err != nil {
					log.Warn().Err(err).Msg("Failed to record assembly in history")
				}
			}

			data, err := json.MarshalIndent(res.Plan, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode plan: %w", err)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write plan: %w", err)
				}
				log.Info().Str("out", outFile).Msg("Plan written")
			}

			if jsonOutput {
				fmt.Println(string(data))
				return nil
			}

			summary := mountplan.Summarize(res.Plan, res.ProfileName)
			fmt.Println(summary.BannerLine())
			if res.ProfileOrigin != "" {
				fmt.Printf("Selected by: %s\n", res.ProfileOrigin)
			}
			if res.Degraded {
				fmt.Println("Warning: profile failed to load, using skeleton plan")
			}
			fmt.Printf("Tools: %d | Hooks: %d | Agents: %d\n",
				summary.ToolCount, summary.HookCount, summary.AgentCount)

			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to assemble (defaults to the active profile)")
	cmd.Flags().StringVar(&provider, "provider", "", "override the session provider")
	cmd.Flags().StringVar(&model, "model", "", "override the session model")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the plan JSON to a file")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip schema validation of the assembled plan")
	cmd.Flags().BoolVar(&record, "record", false, "record the assembly in the plan history database")

	return cmd
}

// recordAssembly persists one assembly result to the history store.
func recordAssembly(ctx context.Context, e *cliEnv, res *assemble.Result, elapsed time.Duration) error {
	store, err := openHistory(ctx, e)
	if err != nil {
		return err
	}
	defer store.Close()

	planJSON, err := json.Marshal(res.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan for history: %w", err)
	}

	status := stores.AssemblyStatusOK
	if res.Degraded {
		status = stores.AssemblyStatusDegraded
	}

	a := &stores.Assembly{
		ID:            uuid.New().String(),
		ProfileName:   res.ProfileName,
		ProfileOrigin: res.ProfileOrigin,
		Status:        status,
		Plan:          string(planJSON),
		ModuleCount:   len(res.Plan.Providers) + len(res.Plan.Tools) + len(res.Plan.Hooks),
		Provider:      res.Plan.Provider,
		Model:         res.Plan.Model,
		WorkDir:       e.workDir,
		CreatedAt:     time.Now(),
	}

	log.Debug().
		Str("assembly", a.ID).
		Str("profile", a.ProfileName).
		Dur("elapsed", elapsed).
		Msg("Recording assembly")

	return store.CreateAssembly(ctx, a)
}

// openHistory opens and migrates the history database.
func openHistory(ctx context.Context, e *cliEnv) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: e.historyPath()})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

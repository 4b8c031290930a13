package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/assemble"
	"github.com/loadout-sh/loadout/pkg/mountplan"
)

func newValidateCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "validate [plan.json]",
		Short: "Validate a mount plan or a profile",
		Long: `Validate a plan against the schema and the structural invariants (required
session modules, per-list module id uniqueness).

With a file argument, the plan JSON is read from disk. With --profile, the
named profile is loaded and compiled and the resulting plan is checked,
surfacing front-matter, inheritance, and model-pairing errors. With neither,
the current assembly is validated end to end.`,
		Example: `  # Validate a previously written plan
  loadout validate plan.json

  # Check that a profile compiles cleanly
  loadout validate --profile dev

  # Validate whatever 'loadout plan' would produce right now
  loadout validate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, err := mountplan.NewPlanValidator()
			if err != nil {
				return err
			}

			plan, subject, err := validationTarget(args, profileName)
			if err != nil {
				return err
			}

			if err := validator.Validate(plan); err != nil {
				return fmt.Errorf("%s is invalid: %w", subject, err)
			}

			fmt.Printf("%s is valid\n", subject)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "validate the named profile's compiled plan")

	return cmd
}

// validationTarget produces the plan to check and a human label for it.
func validationTarget(args []string, profileName string) (*mountplan.Plan, string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("failed to read plan file: %w", err)
		}
		var plan mountplan.Plan
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, "", &mountplan.ValidationError{Path: args[0], Message: "malformed plan JSON", Err: err}
		}
		return &plan, args[0], nil
	}

	e, err := newEnv()
	if err != nil {
		return nil, "", err
	}

	if profileName != "" {
		p, err := e.loader.LoadProfile(profileName)
		if err != nil {
			return nil, "", err
		}
		plan, err := e.compiler.Compile(p)
		if err != nil {
			return nil, "", err
		}
		return plan, fmt.Sprintf("profile %q", profileName), nil
	}

	res := e.assembler.Assemble("", assemble.Overrides{})
	if res.Degraded {
		return res.Plan, "current assembly (degraded)", nil
	}
	return res.Plan, "current assembly", nil
}

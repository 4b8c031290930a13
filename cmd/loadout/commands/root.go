package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadout-sh/loadout/pkg/assemble"
	"github.com/loadout-sh/loadout/pkg/collections"
	"github.com/loadout-sh/loadout/pkg/profile"
	"github.com/loadout-sh/loadout/pkg/scope"
	"github.com/loadout-sh/loadout/pkg/telemetry"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loadout",
		Short: "Loadout - Session Configuration Assembler",
		Long: `Loadout resolves layered configuration into a single mount plan for an
agent session.

It merges settings from three scopes (global, project, local), compiles
profiles with front-matter inheritance, resolves module sources through an
eight-layer precedence chain, and produces a validated plan describing which
modules to mount and how to configure them.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newProfileCommand())
	rootCmd.AddCommand(newSourceCommand())
	rootCmd.AddCommand(newSettingsCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCollectionsCommand())

	return rootCmd
}

// cliEnv holds the per-invocation pipeline components, rooted at the current
// home and working directories.
type cliEnv struct {
	homeDir     string
	workDir     string
	scopes      *scope.Store
	collections *collections.Resolver
	loader      *profile.Loader
	compiler    *profile.Compiler
	assembler   *assemble.Assembler
}

// newEnv constructs the pipeline for one command invocation.
func newEnv() (*cliEnv, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	logger := log.Logger

	// Project-level directories shadow global ones for collections; for
	// profile search paths the later entry wins, so project comes last.
	cols := collections.NewResolver([]string{
		filepath.Join(scope.ProjectDir(workDir), "collections"),
		filepath.Join(scope.GlobalDir(homeDir), "collections"),
	}, logger)

	scopes := scope.NewStore(homeDir, workDir, logger)

	loader := profile.NewLoader([]profile.SearchPath{
		{Dir: filepath.Join(scope.GlobalDir(homeDir), "profiles"), Origin: "global"},
		{Dir: filepath.Join(scope.ProjectDir(workDir), "profiles"), Origin: "project"},
	}, cols, logger)

	agentDirs := []string{
		filepath.Join(scope.ProjectDir(workDir), "agents"),
		filepath.Join(scope.GlobalDir(homeDir), "agents"),
	}
	compiler := profile.NewCompiler(agentDirs, logger)

	return &cliEnv{
		homeDir:     homeDir,
		workDir:     workDir,
		scopes:      scopes,
		collections: cols,
		loader:      loader,
		compiler:    compiler,
		assembler:   assemble.NewAssembler(scopes, loader, compiler, logger),
	}, nil
}

// maybeTelemetry builds the full instrumentation stack when LOADOUT_DEBUG is
// set. Normal CLI runs carry only the global zerolog logger.
func maybeTelemetry() *telemetry.Telemetry {
	if os.Getenv("LOADOUT_DEBUG") == "" {
		return nil
	}
	tel, err := telemetry.NewTelemetry(telemetry.DebugConfig())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without")
		return nil
	}
	return tel
}

// historyPath is the location of the plan history database.
func (e *cliEnv) historyPath() string {
	return filepath.Join(scope.GlobalDir(e.homeDir), "history.db")
}

// resolveScopeFlag parses a --scope flag value and applies the fallback rules
// for running outside a project.
func (e *cliEnv) resolveScopeFlag(raw string, defaultScope scope.Scope) (scope.Scope, error) {
	requested := defaultScope
	explicit := raw != ""
	if explicit {
		parsed, err := scope.ParseScope(raw)
		if err != nil {
			return "", err
		}
		requested = parsed
	}

	resolved, fellBack, err := e.scopes.ResolveScope(requested, explicit)
	if err != nil {
		return "", err
	}
	if fellBack {
		log.Warn().
			Str("requested", requested.String()).
			Str("resolved", resolved.String()).
			Msg("Scope unavailable outside a project, falling back")
	}
	return resolved, nil
}

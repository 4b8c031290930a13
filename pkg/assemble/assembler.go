// Package assemble produces the final mount plan for a CLI invocation.
//
// The assembler is the single top-level orchestrator of the resolution
// pipeline: it picks the active profile, compiles it, layers in
// settings-originated module registrations and CLI overrides, and expands
// environment placeholders. It is also the only place where a profile
// failure downgrades to a warning: a broken profile yields a degraded
// skeleton plan instead of aborting, so the session can surface the error
// interactively.
package assemble

import (
	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/profile"
	"github.com/loadout-sh/loadout/pkg/scope"
)

// Skeleton defaults used when no profile contributes a session.
const (
	DefaultOrchestrator = "loop-basic"
	DefaultContext      = "context-simple"
	DefaultProfile      = "default"
)

// Overrides are the CLI-flag inputs, structurally limited to scalar fields.
// They apply last, with highest precedence, as a shallow top-level
// overwrite.
type Overrides struct {
	Provider string
	Model    string
}

// Result carries the assembled plan plus the provenance callers display.
type Result struct {
	Plan *mountplan.Plan

	// ProfileName is the profile that was (or would have been) applied.
	ProfileName string

	// ProfileOrigin says which setting selected the profile, empty when the
	// system default applied.
	ProfileOrigin string

	// Degraded is true when the profile failed to load or compile and the
	// plan fell back to the skeleton.
	Degraded bool
}

// Assembler wires the pipeline components together. Construct one per
// command invocation.
type Assembler struct {
	scopes   *scope.Store
	loader   *profile.Loader
	compiler *profile.Compiler
	logger   zerolog.Logger
}

// NewAssembler creates an assembler over the given components.
func NewAssembler(scopes *scope.Store, loader *profile.Loader, compiler *profile.Compiler, logger zerolog.Logger) *Assembler {
	return &Assembler{
		scopes:   scopes,
		loader:   loader,
		compiler: compiler,
		logger:   logger.With().Str("component", "assembler").Logger(),
	}
}

// Assemble produces the final mount plan. profileOverride, when non-empty,
// beats the settings-selected profile; the fixed system default applies when
// neither selects one.
func (a *Assembler) Assemble(profileOverride string, overrides Overrides) *Result {
	res := &Result{Plan: skeleton()}

	res.ProfileName = profileOverride
	if res.ProfileName == "" {
		res.ProfileName, res.ProfileOrigin = a.scopes.ActiveProfile()
	}
	if res.ProfileName == "" {
		res.ProfileName = DefaultProfile
	}

	// Settings-originated provider overrides can be applied either through
	// the compiler (as an overlay) or directly onto the plan. The flag, not
	// equality re-detection, decides which happened.
	settingsProviders := a.settingsProviderOverrides()
	providerAppliedViaProfile := false

	if plan, ok := a.compileProfile(res.ProfileName, settingsProviders); ok {
		res.Plan = plan
		providerAppliedViaProfile = len(settingsProviders) > 0
	} else {
		res.Degraded = true
	}

	if !providerAppliedViaProfile && len(settingsProviders) > 0 {
		res.Plan.Providers = patchModuleList(res.Plan.Providers, settingsProviders)
	}

	a.mergeSettingsModules(res.Plan)
	applyOverrides(res.Plan, overrides)
	ExpandPlan(res.Plan)

	return res
}

// compileProfile loads and compiles the named profile, passing
// settings-originated provider overrides through the compiler as an overlay.
// Any failure is logged and reported as not-ok; the caller continues with
// the skeleton.
func (a *Assembler) compileProfile(name string, settingsProviders []mountplan.ModuleRef) (*mountplan.Plan, bool) {
	p, err := a.loader.LoadProfile(name)
	if err != nil {
		a.logger.Warn().Err(err).Str("profile", name).Msg("Profile failed to load, continuing with skeleton plan")
		return nil, false
	}

	var overlays []*profile.Profile
	if len(settingsProviders) > 0 {
		overlays = append(overlays, &profile.Profile{
			Meta:      profile.Meta{Name: "settings-providers"},
			Providers: settingsProviders,
		})
	}

	plan, err := a.compiler.Compile(p, overlays...)
	if err != nil {
		a.logger.Warn().Err(err).Str("profile", name).Msg("Profile failed to compile, continuing with skeleton plan")
		return nil, false
	}
	return plan, true
}

// settingsProviderOverrides reads provider entries expressed purely as
// scope-store data, independent of any profile.
func (a *Assembler) settingsProviderOverrides() []mountplan.ModuleRef {
	merged := a.scopes.MergedSettings()
	cfg, ok := merged["config"].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := cfg["providers"].([]any)
	if !ok {
		return nil
	}
	return refsFromAny(list)
}

// mergeSettingsModules layers the merged settings' module-registration
// sections into the plan with the assembler's patch merge.
func (a *Assembler) mergeSettingsModules(plan *mountplan.Plan) {
	merged := a.scopes.MergedSettings()
	modules, ok := merged["modules"].(map[string]any)
	if !ok {
		return
	}

	if list, ok := modules["tools"].([]any); ok {
		plan.Tools = patchModuleList(plan.Tools, refsFromAny(list))
	}
	if list, ok := modules["hooks"].([]any); ok {
		plan.Hooks = patchModuleList(plan.Hooks, refsFromAny(list))
	}
	if list, ok := modules["agents"].([]any); ok {
		if plan.Agents == nil {
			plan.Agents = map[string]map[string]any{}
		}
		for _, ref := range refsFromAny(list) {
			plan.Agents[ref.Module] = deepMergeMaps(plan.Agents[ref.Module], ref.Config)
		}
	}
}

// applyOverrides writes the CLI scalar overrides onto the plan top level.
// No list merging happens here.
func applyOverrides(plan *mountplan.Plan, o Overrides) {
	if o.Provider != "" {
		plan.Provider = o.Provider
	}
	if o.Model != "" {
		plan.Model = o.Model
	}
}

// skeleton is the minimal plan used when no profile applies.
func skeleton() *mountplan.Plan {
	return &mountplan.Plan{
		Session: mountplan.Session{
			Orchestrator: DefaultOrchestrator,
			Context:      DefaultContext,
		},
		Providers: []mountplan.ModuleRef{},
		Tools:     []mountplan.ModuleRef{},
		Hooks:     []mountplan.ModuleRef{},
		Agents:    map[string]map[string]any{},
	}
}

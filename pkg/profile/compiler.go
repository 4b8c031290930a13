package profile

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// Module ids that receive profile-level auxiliary config blocks. Downstream
// modules only understand their own configuration shape, so the compiler
// pushes these blocks into the matching module's config instead of leaving
// them at the plan top level.
const (
	taskToolModule     = "tool-task"
	streamingUIModule  = "hooks-streaming-ui"
	defaultToolLines   = 5
	defaultShowStream  = true
)

// Compiler turns a resolved base profile plus ordered overlay profiles into
// a mount plan.
type Compiler struct {
	agentDirs []string
	logger    zerolog.Logger
}

// NewCompiler creates a compiler. agentDirs are the default agent search
// directories, consulted after any directories the profile itself declares.
func NewCompiler(agentDirs []string, logger zerolog.Logger) *Compiler {
	return &Compiler{
		agentDirs: agentDirs,
		logger:    logger.With().Str("component", "profile-compiler").Logger(),
	}
}

// Compile builds a mount plan from the base profile, then applies each
// overlay in increasing precedence order. Overlay session fields replace
// wholesale; overlay module lists merge by module id with matching entries
// replaced entirely.
func (c *Compiler) Compile(base *Profile, overlays ...*Profile) (*mountplan.Plan, error) {
	if base.Session == nil || base.Session.Orchestrator == nil || base.Session.Context == nil {
		return nil, &mountplan.ValidationError{
			Field:   "session",
			Message: "profile must declare session.orchestrator and session.context",
		}
	}

	plan := &mountplan.Plan{
		Session: mountplan.Session{
			Orchestrator:       base.Session.Orchestrator.Module,
			Context:            base.Session.Context.Module,
			OrchestratorSource: base.Session.Orchestrator.Source,
			ContextSource:      base.Session.Context.Source,
		},
		Providers: cloneRefs(base.Providers),
		Tools:     cloneRefs(base.Tools),
		Hooks:     cloneRefs(base.Hooks),
		Agents:    map[string]map[string]any{},
	}
	if base.Session.Orchestrator.Config != nil {
		plan.Orchestrator = &mountplan.ConfigBlock{Config: base.Session.Orchestrator.Clone().Config}
	}
	if base.Session.Context.Config != nil {
		plan.Context = &mountplan.ConfigBlock{Config: base.Session.Context.Clone().Config}
	}

	for _, overlay := range overlays {
		c.applyOverlay(plan, overlay)
	}

	c.resolveAgents(plan, base)
	c.injectAuxConfigs(plan, base)

	c.logger.Debug().
		Str("profile", base.Meta.Name).
		Int("overlays", len(overlays)).
		Int("providers", len(plan.Providers)).
		Int("tools", len(plan.Tools)).
		Int("hooks", len(plan.Hooks)).
		Msg("Compiled profile")

	return plan, nil
}

func (c *Compiler) applyOverlay(plan *mountplan.Plan, overlay *Profile) {
	if overlay.Session != nil {
		if ref := overlay.Session.Orchestrator; ref != nil {
			plan.Session.Orchestrator = ref.Module
			plan.Session.OrchestratorSource = ref.Source
			plan.Orchestrator = nil
			if ref.Config != nil {
				plan.Orchestrator = &mountplan.ConfigBlock{Config: ref.Clone().Config}
			}
		}
		if ref := overlay.Session.Context; ref != nil {
			plan.Session.Context = ref.Module
			plan.Session.ContextSource = ref.Source
			plan.Context = nil
			if ref.Config != nil {
				plan.Context = &mountplan.ConfigBlock{Config: ref.Clone().Config}
			}
		}
	}

	plan.Providers = mergeModuleList(plan.Providers, overlay.Providers)
	plan.Tools = mergeModuleList(plan.Tools, overlay.Tools)
	plan.Hooks = mergeModuleList(plan.Hooks, overlay.Hooks)

	if overlay.Agents != nil {
		for name, frag := range overlay.Agents.Inline {
			plan.Agents[name] = frag
		}
	}
}

// mergeModuleList merges an overlay module list into an accumulated list by
// module id. This is the second of the pipeline's three merge rules: a
// matching id replaces the entire existing entry, config included; new ids
// append after all pre-existing entries in the overlay's own order. Relative
// order of base entries is preserved.
func mergeModuleList(base, overlay []mountplan.ModuleRef) []mountplan.ModuleRef {
	if len(overlay) == 0 {
		return base
	}

	replacements := make(map[string]mountplan.ModuleRef, len(overlay))
	for _, ref := range overlay {
		replacements[ref.Module] = ref
	}

	result := make([]mountplan.ModuleRef, 0, len(base)+len(overlay))
	inBase := make(map[string]bool, len(base))
	for _, ref := range base {
		inBase[ref.Module] = true
		if replacement, ok := replacements[ref.Module]; ok {
			result = append(result, replacement.Clone())
		} else {
			result = append(result, ref)
		}
	}
	for _, ref := range overlay {
		if !inBase[ref.Module] {
			result = append(result, ref.Clone())
		}
	}
	return result
}

// resolveAgents populates the plan's agents section from the base profile's
// agents declaration. Inline definitions register first; an include list
// loads exactly those names from the search paths (inline wins on
// collision); dirs without include loads everything discoverable. Load
// failures are logged and skipped inside the agent loader.
func (c *Compiler) resolveAgents(plan *mountplan.Plan, base *Profile) {
	spec := base.Agents
	if spec == nil {
		return
	}

	for name, frag := range spec.Inline {
		plan.Agents[name] = frag
	}

	if len(spec.Include) == 0 && len(spec.Dirs) == 0 {
		return
	}

	loader := NewAgentLoader(c.agentSearchDirs(base), c.logger)
	var loaded map[string]map[string]any
	if len(spec.Include) > 0 {
		wanted := make([]string, 0, len(spec.Include))
		for _, name := range spec.Include {
			if _, inline := plan.Agents[name]; !inline {
				wanted = append(wanted, name)
			}
		}
		loaded = loader.LoadNamed(wanted)
	} else {
		loaded = loader.LoadAll()
	}

	for name, frag := range loaded {
		if _, inline := plan.Agents[name]; !inline {
			plan.Agents[name] = frag
		}
	}
}

// agentSearchDirs orders profile-declared directories ahead of the
// compiler's defaults. Relative profile dirs resolve against the profile
// file's own directory.
func (c *Compiler) agentSearchDirs(base *Profile) []string {
	var dirs []string
	if base.Agents != nil {
		for _, dir := range base.Agents.Dirs {
			if !filepath.IsAbs(dir) && base.Path != "" {
				dir = filepath.Join(filepath.Dir(base.Path), dir)
			}
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, c.agentDirs...)
}

// injectAuxConfigs moves profile-level auxiliary blocks into the config of
// the specific modules that consume them.
func (c *Compiler) injectAuxConfigs(plan *mountplan.Plan, base *Profile) {
	if base.Task != nil {
		for i := range plan.Tools {
			if plan.Tools[i].Module == taskToolModule {
				if plan.Tools[i].Config == nil {
					plan.Tools[i].Config = map[string]any{}
				}
				plan.Tools[i].Config["max_recursion_depth"] = base.Task.MaxRecursionDepth
			}
		}
	}

	if base.UI != nil {
		showStream := defaultShowStream
		if base.UI.ShowThinkingStream != nil {
			showStream = *base.UI.ShowThinkingStream
		}
		toolLines := defaultToolLines
		if base.UI.ShowToolLines != nil {
			toolLines = *base.UI.ShowToolLines
		}
		for i := range plan.Hooks {
			if plan.Hooks[i].Module == streamingUIModule {
				if plan.Hooks[i].Config == nil {
					plan.Hooks[i].Config = map[string]any{}
				}
				plan.Hooks[i].Config["ui"] = map[string]any{
					"show_thinking_stream": showStream,
					"show_tool_lines":      toolLines,
				}
			}
		}
	}
}

func cloneRefs(refs []mountplan.ModuleRef) []mountplan.ModuleRef {
	out := make([]mountplan.ModuleRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Clone())
	}
	return out
}

package assemble

import (
	"os"
	"regexp"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// envPattern matches ${VAR} and ${VAR:default} placeholders.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?}`)

// ExpandString substitutes environment placeholders in one string. An unset
// variable with no default expands to the empty string.
func ExpandString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		return groups[2]
	})
}

// expandValue walks an arbitrary structure and expands every string leaf,
// returning a new structure.
func expandValue(v any) any {
	switch vv := v.(type) {
	case string:
		return ExpandString(vv)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = expandValue(item)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

func expandMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return expandValue(m).(map[string]any)
}

// ExpandPlan expands environment placeholders in every string leaf of the
// plan: session fields, config blocks, module refs, agents, and the
// top-level scalar overrides. This is the final step of assembly.
func ExpandPlan(p *mountplan.Plan) {
	p.Session.Orchestrator = ExpandString(p.Session.Orchestrator)
	p.Session.Context = ExpandString(p.Session.Context)
	p.Session.OrchestratorSource = ExpandString(p.Session.OrchestratorSource)
	p.Session.ContextSource = ExpandString(p.Session.ContextSource)
	p.Provider = ExpandString(p.Provider)
	p.Model = ExpandString(p.Model)

	if p.Orchestrator != nil {
		p.Orchestrator.Config = expandMap(p.Orchestrator.Config)
	}
	if p.Context != nil {
		p.Context.Config = expandMap(p.Context.Config)
	}
	for _, list := range [][]mountplan.ModuleRef{p.Providers, p.Tools, p.Hooks} {
		for i := range list {
			list[i].Source = ExpandString(list[i].Source)
			list[i].Config = expandMap(list[i].Config)
		}
	}
	for name, frag := range p.Agents {
		p.Agents[name] = expandMap(frag)
	}
}

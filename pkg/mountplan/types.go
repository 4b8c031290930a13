package mountplan

import "fmt"

// ModuleKind classifies a pluggable module at the point where its identifier
// is first seen. It is carried as data from then on; code must never re-derive
// the kind from id prefixes.
type ModuleKind string

const (
	KindProvider     ModuleKind = "provider"
	KindTool         ModuleKind = "tool"
	KindHook         ModuleKind = "hook"
	KindAgent        ModuleKind = "agent"
	KindOrchestrator ModuleKind = "orchestrator"
	KindContext      ModuleKind = "context"
)

// IsValid reports whether the kind is one of the known variants.
func (k ModuleKind) IsValid() bool {
	switch k {
	case KindProvider, KindTool, KindHook, KindAgent, KindOrchestrator, KindContext:
		return true
	}
	return false
}

func (k ModuleKind) String() string {
	return string(k)
}

// ModuleRef identifies one pluggable unit together with its optional source
// locator and module-specific configuration. Identity for merge purposes is
// the Module field only; two refs with the same Module are the "same" entry
// regardless of source or config.
type ModuleRef struct {
	// Module is the module id (e.g., "provider-anthropic"). Required and
	// unique within any single mount plan list.
	Module string `json:"module" yaml:"module" validate:"required"`

	// Source optionally pins the module to a concrete locator (file path,
	// git URI, or package name). Empty means "resolve through the layers".
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Config is module-specific configuration, opaque to this package.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a deep copy of the ref. Config maps are copied recursively so
// merge stages never alias each other's state.
func (m ModuleRef) Clone() ModuleRef {
	out := ModuleRef{Module: m.Module, Source: m.Source}
	if m.Config != nil {
		out.Config = cloneMap(m.Config)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = cloneMap(vv)
		case []any:
			cp := make([]any, len(vv))
			for i, item := range vv {
				if m, ok := item.(map[string]any); ok {
					cp[i] = cloneMap(m)
				} else {
					cp[i] = item
				}
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// Session names the orchestrator and context modules for a session, plus
// their resolved source locators when pinned.
type Session struct {
	Orchestrator       string `json:"orchestrator" yaml:"orchestrator" validate:"required"`
	Context            string `json:"context" yaml:"context" validate:"required"`
	OrchestratorSource string `json:"orchestrator_source,omitempty" yaml:"orchestrator_source,omitempty"`
	ContextSource      string `json:"context_source,omitempty" yaml:"context_source,omitempty"`
}

// ConfigBlock carries the configuration for the orchestrator or context
// module, kept at the plan top level because the session runtime mounts
// those two modules before any list processing happens.
type ConfigBlock struct {
	Config map[string]any `json:"config" yaml:"config"`
}

// Plan is the compiled, immutable execution plan handed to the session
// runtime. Within each module list, Module values are unique.
type Plan struct {
	Session      Session                   `json:"session" yaml:"session"`
	Orchestrator *ConfigBlock              `json:"orchestrator,omitempty" yaml:"orchestrator,omitempty"`
	Context      *ConfigBlock              `json:"context,omitempty" yaml:"context,omitempty"`
	Providers    []ModuleRef               `json:"providers" yaml:"providers"`
	Tools        []ModuleRef               `json:"tools" yaml:"tools"`
	Hooks        []ModuleRef               `json:"hooks" yaml:"hooks"`
	Agents       map[string]map[string]any `json:"agents,omitempty" yaml:"agents,omitempty"`

	// Provider and Model are top-level scalar overrides applied by CLI
	// flags, highest precedence. They never participate in list merging.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Lists returns the three module lists keyed by kind, for callers that
// iterate uniformly (merging, display, validation).
func (p *Plan) Lists() map[ModuleKind][]ModuleRef {
	return map[ModuleKind][]ModuleRef{
		KindProvider: p.Providers,
		KindTool:     p.Tools,
		KindHook:     p.Hooks,
	}
}

// CheckInvariants verifies structural invariants that every compiled plan
// must satisfy: required session fields and per-list module id uniqueness.
func (p *Plan) CheckInvariants() error {
	if p.Session.Orchestrator == "" {
		return &ValidationError{Field: "session.orchestrator", Message: "orchestrator module is required"}
	}
	if p.Session.Context == "" {
		return &ValidationError{Field: "session.context", Message: "context module is required"}
	}
	for kind, list := range p.Lists() {
		seen := make(map[string]bool, len(list))
		for _, ref := range list {
			if ref.Module == "" {
				return &ValidationError{Field: string(kind), Message: "module id must not be empty"}
			}
			if seen[ref.Module] {
				return &ValidationError{
					Field:   string(kind),
					Message: fmt.Sprintf("duplicate module id %q", ref.Module),
				}
			}
			seen[ref.Module] = true
		}
	}
	return nil
}

package scope

// Source override lookup. Two settings shapes can pin a module to a source:
//
//   sources:
//     tool-task: file:./modules/task        # plain override
//
//   modules:
//     tools:
//       - module: tool-task
//         source: git+https://...           # registration-carried
//
// Within one scope a registration-carried source wins over a plain override,
// because the registration is the more specific statement. Across scopes,
// local beats project beats global as usual.

// SourceOverride is a resolved source pin with its provenance.
type SourceOverride struct {
	ModuleID string
	Source   string
	Scope    Scope
	// Registered is true when the source came from a module registration
	// rather than the plain sources map.
	Registered bool
}

// SourceFor returns the highest-precedence source override for a module id,
// or false if no scope pins it.
func (s *Store) SourceFor(moduleID string) (SourceOverride, bool) {
	for i := len(mergeOrder) - 1; i >= 0; i-- {
		scope := mergeOrder[i]
		doc := s.ReadScope(scope)

		if src := registeredSource(doc, moduleID); src != "" {
			return SourceOverride{ModuleID: moduleID, Source: src, Scope: scope, Registered: true}, true
		}
		if src := plainSource(doc, moduleID); src != "" {
			return SourceOverride{ModuleID: moduleID, Source: src, Scope: scope}, true
		}
	}
	return SourceOverride{}, false
}

// SourceOverrides returns every pinned module visible from the merged
// hierarchy, keyed by module id, with per-module precedence applied.
func (s *Store) SourceOverrides() map[string]SourceOverride {
	out := map[string]SourceOverride{}
	for _, scope := range mergeOrder {
		doc := s.ReadScope(scope)

		sources, _ := docLookup(doc, "sources")
		if m, ok := sources.(map[string]any); ok {
			for id, v := range m {
				if src, ok := v.(string); ok && src != "" {
					out[id] = SourceOverride{ModuleID: id, Source: src, Scope: scope}
				}
			}
		}
		for _, section := range []string{"tools", "hooks", "providers"} {
			for _, entry := range moduleEntries(doc, section) {
				id, _ := entry["module"].(string)
				src, _ := entry["source"].(string)
				if id != "" && src != "" {
					out[id] = SourceOverride{ModuleID: id, Source: src, Scope: scope, Registered: true}
				}
			}
		}
	}
	return out
}

// ScopeSourceFor returns the source pinned for a module in one scope only,
// applying the registration-over-plain rule within that scope.
func (s *Store) ScopeSourceFor(scope Scope, moduleID string) (string, bool) {
	doc := s.ReadScope(scope)
	if src := registeredSource(doc, moduleID); src != "" {
		return src, true
	}
	if src := plainSource(doc, moduleID); src != "" {
		return src, true
	}
	return "", false
}

func plainSource(doc map[string]any, moduleID string) string {
	v, ok := docLookup(doc, "sources", moduleID)
	if !ok {
		return ""
	}
	src, _ := v.(string)
	return src
}

func registeredSource(doc map[string]any, moduleID string) string {
	for _, section := range []string{"tools", "hooks", "providers"} {
		for _, entry := range moduleEntries(doc, section) {
			if id, _ := entry["module"].(string); id == moduleID {
				if src, _ := entry["source"].(string); src != "" {
					return src
				}
			}
		}
	}
	return ""
}

// moduleEntries returns the module entry maps under modules.<section>.
// Entries that are not maps are skipped.
func moduleEntries(doc map[string]any, section string) []map[string]any {
	v, ok := docLookup(doc, "modules", section)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

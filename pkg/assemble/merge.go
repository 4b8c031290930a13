package assemble

import (
	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// The assembler's merge rule is the third of the pipeline's three and
// deliberately differs from the compiler's overlay rule: module lists still
// merge by module id, but a matching entry's config is merged recursively
// (overlay keys win, untouched base keys survive) instead of being replaced
// wholesale. Profile overlays fully redefine a module; scope-level and
// CLI-level overrides patch specific keys without discarding profile
// defaults.

// patchModuleList merges overlay entries into base by module id. Matching
// entries keep their position and get a recursive config merge; new entries
// append in the overlay's own order.
func patchModuleList(base, overlay []mountplan.ModuleRef) []mountplan.ModuleRef {
	if len(overlay) == 0 {
		return base
	}

	patches := make(map[string]mountplan.ModuleRef, len(overlay))
	for _, ref := range overlay {
		patches[ref.Module] = ref
	}

	result := make([]mountplan.ModuleRef, 0, len(base)+len(overlay))
	inBase := make(map[string]bool, len(base))
	for _, ref := range base {
		inBase[ref.Module] = true
		patch, ok := patches[ref.Module]
		if !ok {
			result = append(result, ref)
			continue
		}
		merged := ref.Clone()
		if patch.Source != "" {
			merged.Source = patch.Source
		}
		merged.Config = deepMergeMaps(merged.Config, patch.Config)
		result = append(result, merged)
	}
	for _, ref := range overlay {
		if !inBase[ref.Module] {
			result = append(result, ref.Clone())
		}
	}
	return result
}

// deepMergeMaps merges overlay onto base: nested mappings recurse, all other
// values are replaced outright. Neither input is mutated; the result is a
// fresh map.
func deepMergeMaps(base, overlay map[string]any) map[string]any {
	if base == nil && overlay == nil {
		return nil
	}
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		if overlayMap, ok := v.(map[string]any); ok {
			if baseMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overlayMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// refsFromAny decodes settings-originated module entries (raw YAML shapes)
// into ModuleRefs. Entries without a module id are dropped.
func refsFromAny(list []any) []mountplan.ModuleRef {
	var out []mountplan.ModuleRef
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["module"].(string)
		if id == "" {
			continue
		}
		ref := mountplan.ModuleRef{Module: id}
		if src, ok := m["source"].(string); ok {
			ref.Source = src
		}
		if cfg, ok := m["config"].(map[string]any); ok {
			ref.Config = cfg
		}
		out = append(out, ref)
	}
	return out
}

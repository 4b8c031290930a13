package profile

// mergeRaw flattens a child document over its parent during inheritance
// resolution. This is one of three distinct merge rules in the pipeline and
// must not be conflated with the compiler's list merge or the assembler's
// config merge:
//
//   - an explicit null in the child removes the inherited key entirely
//   - nested mappings merge recursively
//   - every other value type, lists included, is replaced wholesale
//
// Neither input is mutated.
func mergeRaw(parent, child map[string]any) map[string]any {
	result := make(map[string]any, len(parent)+len(child))
	for k, v := range parent {
		result[k] = v
	}

	for k, v := range child {
		if v == nil {
			delete(result, k)
			continue
		}
		if childMap, ok := v.(map[string]any); ok {
			if parentMap, ok := result[k].(map[string]any); ok {
				result[k] = mergeRaw(parentMap, childMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

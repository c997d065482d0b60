package delta

import "reflect"

// #region diff

// Diff computes the structural difference between old and next data,
// returning only keys that changed or were added in next. When both sides
// hold a nested mapping, it recurses exactly one level and reports only the
// changed or added sub-keys; every other value kind (scalar, sequence) is
// compared by deep equality and reported wholesale. Keys present in old but
// absent from next are not reported.
func Diff(old, next map[string]any) map[string]any {
	out := map[string]any{}

	for key, newVal := range next {
		oldVal, ok := old[key]
		if !ok {
			out[key] = newVal
			continue
		}

		newMap, newIsMap := newVal.(map[string]any)
		oldMap, oldIsMap := oldVal.(map[string]any)
		if newIsMap && oldIsMap {
			nested := map[string]any{}
			for k, v := range newMap {
				ov, present := oldMap[k]
				if !present || !reflect.DeepEqual(ov, v) {
					nested[k] = v
				}
			}
			if len(nested) > 0 {
				out[key] = nested
			}
			continue
		}

		if !reflect.DeepEqual(oldVal, newVal) {
			out[key] = newVal
		}
	}

	return out
}

// #endregion diff

// #region merge

// Merge applies patch over base with patch taking precedence key-by-key.
// When both sides hold a nested mapping the sub-keys are merged one level
// deep; otherwise the patch value replaces the base value wholesale. The
// result is a fresh top-level map; neither input is mutated. Maps nested
// below the merge depth are shared with the inputs, so callers must treat
// node data as read-only.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}

	for key, patchVal := range patch {
		patchMap, patchIsMap := patchVal.(map[string]any)
		baseMap, baseIsMap := out[key].(map[string]any)
		if patchIsMap && baseIsMap {
			merged := make(map[string]any, len(baseMap)+len(patchMap))
			for k, v := range baseMap {
				merged[k] = v
			}
			for k, v := range patchMap {
				merged[k] = v
			}
			out[key] = merged
			continue
		}
		out[key] = patchVal
	}

	return out
}

// #endregion merge

// Package objutil has small helpers for shaping map-based objects,
// used where handlers accept partial JSON documents.
package objutil

// Pick returns a new map holding only the listed keys that exist in m.
func Pick(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Omit returns a new map holding everything in m except the listed
// keys.
func Omit(m map[string]any, keys ...string) map[string]any {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, skip := drop[k]; !skip {
			out[k] = v
		}
	}
	return out
}

// Merge returns a new map with src applied over dst. Nested maps merge
// recursively; any other value in src replaces the one in dst. Neither
// input is modified.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcOK := v.(map[string]any)
		dstMap, dstOK := out[k].(map[string]any)
		if srcOK && dstOK {
			out[k] = Merge(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

// String reads a string value from m, falling back when the key is
// missing or holds a different type.
func String(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

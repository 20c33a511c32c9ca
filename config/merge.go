package config

import "strings"

// mergeMaps merges src into dst, recursing into nested maps. Keys match
// case-insensitively, as they do when binding, and keep dst's spelling.
// Nested maps taken from src are copied so later merges never write into a
// source's data.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		k = existingKey(dst, k)
		mv, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(mv))
			dst[k] = existing
		}
		mergeMaps(existing, mv)
	}
}

func existingKey(m map[string]any, k string) string {
	if _, ok := m[k]; ok {
		return k
	}
	for ek := range m {
		if strings.EqualFold(ek, k) {
			return ek
		}
	}
	return k
}

// Merge deep-merges src into dst for sources that layer several documents.
func Merge(dst, src map[string]any) { mergeMaps(dst, src) }

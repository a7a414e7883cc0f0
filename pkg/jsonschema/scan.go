package jsonschema

import (
	"sort"
	"strings"
)

// FindReferences walks a decoded JSON value and returns every schema-file
// reference named by a "$ref" key, in first-seen order. The part after '#'
// is dropped, same-document references ("#/definitions/x") are skipped and
// duplicates are collapsed. Object keys are visited in sorted order so the
// result is deterministic.
func FindReferences(node any) []string {
	seen := make(map[string]struct{})
	var refs []string
	walkRefs(node, func(ref string) {
		target, _ := splitRef(strings.TrimSpace(ref))
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		refs = append(refs, target)
	})
	return refs
}

func walkRefs(node any, visit func(string)) {
	switch typed := node.(type) {
	case map[string]any:
		if ref, ok := typed["$ref"].(string); ok {
			visit(ref)
		}
		for _, key := range sortedKeys(typed) {
			if key == "$ref" {
				continue
			}
			walkRefs(typed[key], visit)
		}
	case []any:
		for _, item := range typed {
			walkRefs(item, visit)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

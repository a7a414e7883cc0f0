package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ExtractList returns the raw list stored at document[container][list], the
// shape published vocabularies use ({"AnatomicCodes": {"AnatomicRegion":
// [...]}}). An empty container or list name matches the only key present
// at that level.
func ExtractList(document []byte, container, list string) (json.RawMessage, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(document, &outer); err != nil {
		return nil, fmt.Errorf("catalog: decode vocabulary document: %w", err)
	}
	inner, err := pick(outer, container, "container")
	if err != nil {
		return nil, err
	}

	var lists map[string]json.RawMessage
	if err := json.Unmarshal(inner, &lists); err != nil {
		return nil, fmt.Errorf("catalog: decode vocabulary container %q: %w", container, err)
	}
	return pick(lists, list, "list")
}

// LoadList extracts document[container][list] and builds a catalog from it.
func LoadList(document []byte, container, list string, options ...Option) (*Catalog, error) {
	raw, err := ExtractList(document, container, list)
	if err != nil {
		return nil, err
	}
	return Build(raw, options...)
}

func pick(values map[string]json.RawMessage, name, level string) (json.RawMessage, error) {
	if name != "" {
		raw, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("catalog: vocabulary %s %q not found (have %v)", level, name, keys(values))
		}
		return raw, nil
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("catalog: vocabulary %s name is required (have %v)", level, keys(values))
	}
	for _, raw := range values {
		return raw, nil
	}
	return nil, nil
}

func keys(values map[string]json.RawMessage) []string {
	out := make([]string, 0, len(values))
	for key := range values {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

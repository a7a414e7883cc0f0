package schema

import "strings"

// Descriptor names a published schema. URL is where the body is fetched from;
// ID is the canonical identifier used inside $ref resolution. The two differ
// when a schema is served from a mirror (for example raw GitHub content)
// but declares its published id.
type Descriptor struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	URL   string `json:"url" yaml:"url"`
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	// Keys names the document key revision the schema expects
	// ("current" or "legacy"); empty means current.
	Keys string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// CanonicalID returns ID when present, falling back to URL.
func (d Descriptor) CanonicalID() string {
	if id := NormalizeID(d.ID); id != "" {
		return id
	}
	return NormalizeID(d.URL)
}

// NormalizeID strips whitespace and an empty trailing fragment so "x.json#"
// and "x.json" compare equal.
func NormalizeID(id string) string {
	trimmed := strings.TrimSpace(id)
	return strings.TrimSuffix(trimmed, "#")
}

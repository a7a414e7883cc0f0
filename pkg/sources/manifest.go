package sources

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

//go:embed manifest/default.yaml
var embedded embed.FS

// Vocabulary describes a vocabulary document and the list inside it that
// feeds a root selector.
type Vocabulary struct {
	Name      string `json:"name" yaml:"name"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	URL       string `json:"url" yaml:"url"`
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
	List      string `json:"list,omitempty" yaml:"list,omitempty"`
	Selector  string `json:"selector" yaml:"selector"`
}

// Manifest lists the schemas and vocabularies offered to the user.
// Alternative vocabularies for the same selector are offered side by side.
type Manifest struct {
	Schemas      []schema.Descriptor       `json:"schemas" yaml:"schemas"`
	Vocabularies []Vocabulary              `json:"vocabularies" yaml:"vocabularies"`
	IDMappings   []pkgjsonschema.IDMapping `json:"idMappings,omitempty" yaml:"idMappings,omitempty"`
}

// Default returns the embedded manifest.
func Default() Manifest {
	data, err := embedded.ReadFile("manifest/default.yaml")
	if err != nil {
		panic(err)
	}
	manifest, err := Parse(data, "default.yaml")
	if err != nil {
		panic(err)
	}
	return manifest
}

// Load reads a JSON or YAML manifest from path. An empty path yields the
// embedded default.
func Load(path string) (Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("sources: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a manifest, trying JSON first and YAML second.
func Parse(data []byte, source string) (Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Manifest{}, fmt.Errorf("sources: manifest %s is empty", source)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		manifest = Manifest{}
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return Manifest{}, fmt.Errorf("sources: parse %s: invalid JSON or YAML", source)
		}
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("sources: %s: %w", source, err)
	}
	return manifest, nil
}

// Validate checks names are present and unique and key revisions are known.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{})
	for idx, desc := range m.Schemas {
		name := strings.TrimSpace(desc.Name)
		if name == "" || strings.TrimSpace(desc.URL) == "" {
			return fmt.Errorf("schema %d needs a name and a url", idx)
		}
		if _, err := assemble.KeySetFor(desc.Keys); err != nil {
			return fmt.Errorf("schema %q: %w", name, err)
		}
		if _, dup := seen["schema:"+name]; dup {
			return fmt.Errorf("duplicate schema %q", name)
		}
		seen["schema:"+name] = struct{}{}
	}
	for idx, vocab := range m.Vocabularies {
		name := strings.TrimSpace(vocab.Name)
		if name == "" || strings.TrimSpace(vocab.URL) == "" || strings.TrimSpace(vocab.Selector) == "" {
			return fmt.Errorf("vocabulary %d needs a name, a url and a selector", idx)
		}
		if _, dup := seen["vocab:"+name]; dup {
			return fmt.Errorf("duplicate vocabulary %q", name)
		}
		seen["vocab:"+name] = struct{}{}
	}
	return nil
}

// Schema returns the schema named name.
func (m Manifest) Schema(name string) (schema.Descriptor, bool) {
	for _, desc := range m.Schemas {
		if desc.Name == name {
			return desc, true
		}
	}
	return schema.Descriptor{}, false
}

// Vocabulary returns the vocabulary named name.
func (m Manifest) Vocabulary(name string) (Vocabulary, bool) {
	for _, vocab := range m.Vocabularies {
		if vocab.Name == name {
			return vocab, true
		}
	}
	return Vocabulary{}, false
}

// VocabulariesFor lists the alternatives that feed selector, in manifest
// order.
func (m Manifest) VocabulariesFor(selector string) []Vocabulary {
	var out []Vocabulary
	for _, vocab := range m.Vocabularies {
		if vocab.Selector == selector {
			out = append(out, vocab)
		}
	}
	return out
}

package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

func TestDefault(t *testing.T) {
	m := Default()

	seg, ok := m.Schema("seg")
	if !ok {
		t.Fatalf("expected seg schema in default manifest")
	}
	if seg.CanonicalID() != "https://raw.githubusercontent.com/qiicr/dcmqi/master/doc/schemas/seg-schema.json" {
		t.Fatalf("unexpected canonical id %q", seg.CanonicalID())
	}
	if seg.Keys != "current" {
		t.Fatalf("expected current key revision for seg, got %q", seg.Keys)
	}
	categories := m.VocabulariesFor("SegmentedPropertyCategory")
	if len(categories) != 2 {
		t.Fatalf("expected two category vocabularies, got %d", len(categories))
	}
	if len(m.IDMappings) != 1 {
		t.Fatalf("expected one id mapping, got %d", len(m.IDMappings))
	}
}

func TestParse_JSONAndYAML(t *testing.T) {
	jsonManifest := []byte(`{
  "schemas": [{"name": "seg", "url": "https://example.org/seg.json", "id": "urn:seg"}],
  "vocabularies": [{"name": "regions", "url": "https://example.org/r.json", "selector": "AnatomicRegion"}]
}`)
	yamlManifest := []byte(`
schemas:
  - name: seg
    url: https://example.org/seg.json
    id: "urn:seg"
vocabularies:
  - name: regions
    url: https://example.org/r.json
    selector: AnatomicRegion
`)
	fromJSON, err := Parse(jsonManifest, "m.json")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromYAML, err := Parse(yamlManifest, "m.yaml")
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("manifests differ (-json +yaml):\n%s", diff)
	}
	want := schema.Descriptor{Name: "seg", URL: "https://example.org/seg.json", ID: "urn:seg"}
	if diff := cmp.Diff(want, fromJSON.Schemas[0]); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "  ",
		"garbage":   "{not: [valid",
		"no url":    `{"schemas": [{"name": "seg"}]}`,
		"duplicate": `{"schemas": [{"name": "a", "url": "x"}, {"name": "a", "url": "y"}]}`,
		"selector":  `{"vocabularies": [{"name": "v", "url": "x"}]}`,
		"keys":      `{"schemas": [{"name": "a", "url": "x", "keys": "v3"}]}`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw), name); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	m, err := Load("")
	if err != nil || len(m.Schemas) == 0 {
		t.Fatalf("expected default manifest, got %v %v", m, err)
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("schemas:\n  - name: local\n    url: ./seg.json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := m.Schema("local"); !ok {
		t.Fatalf("expected local schema")
	}
}

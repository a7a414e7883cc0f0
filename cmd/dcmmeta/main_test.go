package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-dcmmeta/pkg/prompt"
	"github.com/goliatone/go-dcmmeta/pkg/testsupport"
)

// workspace copies the fixtures into a temp dir and writes a manifest
// pointing at them.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := fs.WalkDir(testsupport.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(testsupport.FS(), path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("copy fixtures: %v", err)
	}

	manifest := `schemas:
  - name: seg
    url: ` + filepath.Join(dir, "schemas", "seg-schema.json") + `
    id: ` + testsupport.SegmentationSchemaID + `
  - name: seg-legacy
    url: ` + filepath.Join(dir, "schemas", "seg-legacy-schema.json") + `
    keys: legacy
vocabularies:
  - name: regions
    url: ` + filepath.Join(dir, "vocab", "anatomic-regions.json") + `
    container: AnatomicCodes
    list: AnatomicRegion
    selector: AnatomicRegion
  - name: categories
    url: ` + filepath.Join(dir, "vocab", "segmentation-categories.json") + `
    container: SegmentationCodes
    list: Category
    selector: SegmentedPropertyCategory
`
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	t.Setenv("DCMMETA_MANIFEST", path)
	t.Setenv("DCMMETA_ALLOW_HTTP", "false")
	t.Setenv("DCMMETA_LOG_FORMAT", "json")
	t.Setenv("DCMMETA_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a.in = strings.NewReader(stdin)
	a.out = &out
	a.errOut = &errOut
	cmd := a.command()
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolve(t *testing.T) {
	dir := workspace(t)
	out, err := run(t, newApp(nil, nil, nil), "", "resolve", "seg")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected root and common schema, got %q", out)
	}
	if lines[0] != filepath.Join(dir, "schemas", "seg-schema.json") {
		t.Fatalf("expected root first, got %q", lines[0])
	}
}

func TestValidate(t *testing.T) {
	workspace(t)

	out, err := run(t, newApp(nil, nil, nil), `{"SeriesNumber": "x"}`, "validate", "seg", "-")
	if err == nil {
		t.Fatalf("expected invalid document error")
	}
	if !strings.Contains(out, "required") {
		t.Fatalf("expected required-property messages, got %q", out)
	}

	out, err = run(t, newApp(nil, nil, nil), `{"SeriesNumber": `, "validate", "seg", "-")
	if err == nil || strings.TrimSpace(out) == "" {
		t.Fatalf("expected parse failure message, got %q %v", out, err)
	}
}

func TestCodes(t *testing.T) {
	workspace(t)
	out, err := run(t, newApp(nil, nil, nil), "", "codes", "regions", "LI")
	if err != nil {
		t.Fatalf("codes: %v", err)
	}
	if !strings.Contains(out, "Liver") || strings.Contains(out, "Kidney") {
		t.Fatalf("unexpected search output %q", out)
	}
}

func TestSources(t *testing.T) {
	workspace(t)
	out, err := run(t, newApp(nil, nil, nil), "", "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	for _, want := range []string{"seg", testsupport.SegmentationSchemaID, "regions", "SegmentedPropertyCategory"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestCreateSegmentation(t *testing.T) {
	workspace(t)
	script := &prompt.Script{
		Inputs:   []string{"", "", "", "", "", "", "", "", "", "", "", "tissue", "", ""},
		Selects:  []int{0, 0, 1, 1, 0},
		Confirms: []bool{false, false},
	}
	a := newApp(nil, nil, nil)
	a.driver = script

	out, err := run(t, a, "", "create", "seg", "--print", "--id", "liver")
	if err != nil {
		t.Fatalf("create: %v (messages %v)", err, script.Messages)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if doc["ContentCreatorName"] != "Reader1" {
		t.Fatalf("expected default reader, got %v", doc["ContentCreatorName"])
	}
	groups, ok := doc["segmentAttributes"].([]any)
	if !ok || len(groups) != 1 {
		t.Fatalf("unexpected segmentAttributes %v", doc["segmentAttributes"])
	}
}

func TestCreateSegmentation_WritesFile(t *testing.T) {
	workspace(t)
	outDir := filepath.Join(t.TempDir(), "out")
	t.Setenv("DCMMETA_OUTPUT_DIR", outDir)
	a := newApp(nil, nil, nil)
	a.driver = &prompt.Script{
		Inputs:   []string{"", "", "", "", "", "", "", "", "", "", "", "tissue", "", ""},
		Selects:  []int{0, 0, 1, 1, 0},
		Confirms: []bool{false, false},
	}

	out, err := run(t, a, "", "create", "seg", "--id", "case/01")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path := filepath.Join(outDir, "case_01.json")
	if !strings.Contains(out, path) {
		t.Fatalf("expected path in output, got %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected artifact: %v", err)
	}
}

func TestCreateSegmentation_LegacyKeys(t *testing.T) {
	workspace(t)
	script := &prompt.Script{
		Inputs:   []string{"", "", "", "", "", "", "", "", "", "", "", "tissue", "", ""},
		Selects:  []int{0, 0, 1, 1, 0},
		Confirms: []bool{false, false},
	}
	a := newApp(nil, nil, nil)
	a.driver = script

	out, err := run(t, a, "", "create", "seg", "--schema", "seg-legacy", "--print")
	if err != nil {
		t.Fatalf("create: %v (messages %v)", err, script.Messages)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	series, ok := doc["seriesAttributes"].(map[string]any)
	if !ok || series["ReaderID"] != "Reader1" {
		t.Fatalf("expected legacy series attributes, got %v", doc)
	}
	segments, ok := doc["segmentAttributes"].([]any)
	if !ok || len(segments) != 1 {
		t.Fatalf("unexpected segmentAttributes %v", doc["segmentAttributes"])
	}
	if _, flat := segments[0].(map[string]any); !flat {
		t.Fatalf("expected a flat segment list, got %v", segments[0])
	}
}

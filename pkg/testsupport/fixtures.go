package testsupport

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcmmeta/internal/jsonschema/loader"
	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

//go:embed fixtures
var fixtures embed.FS

const (
	// SegmentationSchemaPath is the fixture path of the segmentation schema.
	SegmentationSchemaPath = "schemas/seg-schema.json"
	// SegmentationSchemaID is the id the segmentation fixture declares.
	SegmentationSchemaID = "https://raw.githubusercontent.com/qiicr/dcmqi/master/doc/schemas/seg-schema.json"
	// ParametricMapSchemaPath is the fixture path of the parametric map schema.
	ParametricMapSchemaPath = "schemas/pm-schema.json"
	// ParametricMapSchemaID is the id the parametric map fixture declares.
	ParametricMapSchemaID = "https://raw.githubusercontent.com/qiicr/dcmqi/master/doc/schemas/pm-schema.json"
	// CategoriesPath holds a SegmentationCodes/Category vocabulary.
	CategoriesPath = "vocab/segmentation-categories.json"
	// RegionsPath holds an AnatomicCodes/AnatomicRegion vocabulary.
	RegionsPath = "vocab/anatomic-regions.json"
	// QuantitiesPath holds a QuantityCodes/Quantity vocabulary.
	QuantitiesPath = "vocab/quantities.json"
)

// FS exposes the schema and vocabulary fixtures.
func FS() fs.FS {
	sub, err := fs.Sub(fixtures, "fixtures")
	if err != nil {
		panic(err)
	}
	return sub
}

// Loader returns a loader reading from FS.
func Loader() pkgjsonschema.Loader {
	return loader.New(pkgjsonschema.NewLoaderOptions(pkgjsonschema.WithFileSystem(FS())))
}

// MustReadFixture returns the raw bytes of a fixture.
func MustReadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := fs.ReadFile(FS(), name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// MustResolveClosure resolves the $ref closure of a fixture schema.
func MustResolveClosure(t *testing.T, path string) []pkgjsonschema.Loaded {
	t.Helper()
	resolver := pkgjsonschema.NewClosureResolver(Loader())
	closure, err := resolver.ResolveClosure(context.Background(), schema.SourceFromFS(path))
	if err != nil {
		t.Fatalf("resolve %s: %v", path, err)
	}
	return closure
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGoldenJSON reads a golden file and decodes it into the generic
// JSON value model.
func MustReadGoldenJSON(t *testing.T, path string) any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	return out
}

// CompareJSON diffs two values after mapping both onto the generic JSON
// value model, so typed documents compare equal to decoded goldens.
func CompareJSON(t *testing.T, want, got any) string {
	t.Helper()
	return cmp.Diff(normalize(t, want), normalize(t, got))
}

func normalize(t *testing.T, value any) any {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

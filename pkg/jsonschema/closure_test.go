package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

type memoryLoader struct {
	mu    sync.Mutex
	docs  map[string]string
	calls map[string]int
}

func newMemoryLoader(docs map[string]string) *memoryLoader {
	return &memoryLoader{docs: docs, calls: make(map[string]int)}
}

func (m *memoryLoader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	m.mu.Lock()
	m.calls[src.Location()]++
	raw, ok := m.docs[src.Location()]
	m.mu.Unlock()
	if !ok {
		return schema.Document{}, fmt.Errorf("missing document %q", src.Location())
	}
	return schema.NewDocument(src, []byte(raw))
}

func (m *memoryLoader) count(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[location]
}

type httpLoader struct {
	client *http.Client
}

func (h *httpLoader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src.Kind() != schema.SourceKindURL {
		return schema.Document{}, errors.New("http loader: unsupported source kind")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location(), nil)
	if err != nil {
		return schema.Document{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return schema.Document{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return schema.Document{}, fmt.Errorf("http loader: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.NewDocument(src, body)
}

func locations(closure []Loaded) []string {
	out := make([]string, 0, len(closure))
	for _, doc := range closure {
		out = append(out, doc.Location())
	}
	return out
}

func TestClosureResolver_SharedReferenceFetchedOnce(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"seg.json": `{
  "type": "object",
  "properties": {
    "a": {"$ref": "attrs.json"},
    "b": {"$ref": "common.json#/definitions/code"}
  }
}`,
		"attrs.json":  `{"properties": {"code": {"$ref": "common.json#/definitions/code"}}}`,
		"common.json": `{"definitions": {"code": {"type": "string"}}}`,
	})

	resolver := NewClosureResolver(loader)
	closure, err := resolver.ResolveClosure(context.Background(), schema.SourceFromFS("seg.json"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []string{"seg.json", "attrs.json", "common.json"}
	if diff := cmp.Diff(want, locations(closure)); diff != "" {
		t.Fatalf("closure mismatch (-want +got):\n%s", diff)
	}
	for _, location := range want {
		if got := loader.count(location); got != 1 {
			t.Fatalf("expected %s fetched once, got %d", location, got)
		}
	}
}

func TestClosureResolver_Cycle(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"a.json": `{"properties": {"b": {"$ref": "b.json"}}}`,
		"b.json": `{"properties": {"a": {"$ref": "a.json#"}}}`,
	})

	closure, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("a.json"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"a.json", "b.json"}, locations(closure)); diff != "" {
		t.Fatalf("closure mismatch (-want +got):\n%s", diff)
	}
	if loader.count("a.json") != 1 || loader.count("b.json") != 1 {
		t.Fatalf("expected each document fetched once, got a=%d b=%d", loader.count("a.json"), loader.count("b.json"))
	}
}

func TestClosureResolver_NoRefs(t *testing.T) {
	loader := newMemoryLoader(map[string]string{"solo.json": `{"type": "object"}`})

	closure, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("solo.json"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(closure) != 1 {
		t.Fatalf("expected root only, got %d documents", len(closure))
	}
}

func TestClosureResolver_MissingReferenceIsFetchError(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"seg.json": `{"properties": {"x": {"$ref": "missing.json"}}}`,
	})

	_, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("seg.json"))
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Location != "missing.json" {
		t.Fatalf("unexpected location %q", fetchErr.Location)
	}
}

func TestClosureResolver_MalformedJSON(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"seg.json":    `{"properties": {"x": {"$ref": "broken.json"}}}`,
		"broken.json": `{"type": `,
	})

	_, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("seg.json"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		t.Fatalf("parse failure should not be reported as a fetch error: %v", err)
	}
}

func TestClosureResolver_SharedRegistryServesCache(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"seg.json":    `{"properties": {"x": {"$ref": "common.json"}}}`,
		"common.json": `{"type": "string"}`,
	})
	registry := NewRegistry()

	for i := 0; i < 2; i++ {
		resolver := NewClosureResolver(loader, WithRegistry(registry))
		if _, err := resolver.ResolveClosure(context.Background(), schema.SourceFromFS("seg.json")); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	if loader.count("common.json") != 1 {
		t.Fatalf("expected cached fetch, got %d calls", loader.count("common.json"))
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 cached documents, got %d", registry.Len())
	}
	if registry.Fetches("fs:common.json") != 1 {
		t.Fatalf("expected one recorded fetch, got %d", registry.Fetches("fs:common.json"))
	}
}

func TestClosureResolver_RejectsPathTraversal(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"schemas/seg.json": `{"properties": {"x": {"$ref": "../secret.json"}}}`,
		"secret.json":      `{}`,
	})

	_, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("schemas/seg.json"))
	if err == nil || !strings.Contains(err.Error(), "escapes root") {
		t.Fatalf("expected traversal error, got %v", err)
	}

	opts := ResolveOptions{AllowPathTraversal: true}
	closure, err := NewClosureResolver(loader, WithResolveOptions(opts)).ResolveClosure(context.Background(), schema.SourceFromFS("schemas/seg.json"))
	if err != nil {
		t.Fatalf("resolve with traversal: %v", err)
	}
	if len(closure) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(closure))
	}
}

func TestClosureResolver_MaxDocuments(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"seg.json": `{"properties": {"a": {"$ref": "a.json"}, "b": {"$ref": "b.json"}}}`,
		"a.json":   `{}`,
		"b.json":   `{}`,
	})

	opts := ResolveOptions{MaxDocuments: 2}
	_, err := NewClosureResolver(loader, WithResolveOptions(opts)).ResolveClosure(context.Background(), schema.SourceFromFS("seg.json"))
	if err == nil || !strings.Contains(err.Error(), "max documents") {
		t.Fatalf("expected max documents error, got %v", err)
	}
}

func TestClosureResolver_HTTPRelativeAndMappedRefs(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schemas/seg.json":
			_, _ = w.Write([]byte(`{
  "id": "https://schemas.example.org/seg.json",
  "properties": {
    "series": {"$ref": "series.json"},
    "code": {"$ref": "https://schemas.example.org/common.json#/definitions/code"}
  }
}`))
		case "/schemas/series.json":
			_, _ = w.Write([]byte(`{"type": "object"}`))
		case "/schemas/common.json":
			_, _ = w.Write([]byte(`{"definitions": {"code": {"type": "string"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	opts := ResolveOptions{IDMappings: []IDMapping{{
		IDPrefix:  "https://schemas.example.org/",
		URLPrefix: server.URL + "/schemas/",
	}}}
	resolver := NewClosureResolver(&httpLoader{client: server.Client()}, WithResolveOptions(opts))

	closure, err := resolver.ResolveClosure(context.Background(), schema.SourceFromURL(server.URL+"/schemas/seg.json"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{
		server.URL + "/schemas/seg.json",
		server.URL + "/schemas/common.json",
		server.URL + "/schemas/series.json",
	}
	if diff := cmp.Diff(want, locations(closure)); diff != "" {
		t.Fatalf("closure mismatch (-want +got):\n%s", diff)
	}
	if got := closure[0].DeclaredID(); got != "https://schemas.example.org/seg.json" {
		t.Fatalf("unexpected declared id %q", got)
	}
}

func TestFindReferences(t *testing.T) {
	var node any = map[string]any{
		"properties": map[string]any{
			"b": map[string]any{"$ref": "common.json#/definitions/code"},
			"a": map[string]any{"$ref": "attrs.json"},
			"c": map[string]any{"$ref": "#/definitions/local"},
		},
		"allOf": []any{
			map[string]any{"$ref": "common.json#/definitions/other"},
			map[string]any{"$ref": "base.json#"},
		},
	}

	got := FindReferences(node)
	want := []string{"common.json", "base.json", "attrs.json"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("refs mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureResolver_GenerationBarrier(t *testing.T) {
	docs := newMemoryLoader(map[string]string{
		"root.json": `{"properties": {"a": {"$ref": "fast.json"}, "b": {"$ref": "slow.json"}}}`,
		"fast.json": `{"properties": {"c": {"$ref": "next.json"}}}`,
		"slow.json": `{"type": "string"}`,
		"next.json": `{"type": "integer"}`,
	})

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}
	release := make(chan struct{})
	fastDone := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, src schema.Source) (schema.Document, error) {
		location := src.Location()
		record("start:" + location)
		defer record("end:" + location)
		switch location {
		case "slow.json":
			select {
			case <-release:
			case <-ctx.Done():
				return schema.Document{}, ctx.Err()
			}
		case "fast.json":
			defer close(fastDone)
		}
		return docs.Load(ctx, src)
	})

	type result struct {
		closure []Loaded
		err     error
	}
	done := make(chan result, 1)
	go func() {
		closure, err := NewClosureResolver(loader).ResolveClosure(context.Background(), schema.SourceFromFS("root.json"))
		done <- result{closure, err}
	}()

	<-fastDone
	// give a resolver without a barrier time to start the next generation
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	for _, event := range events {
		if event == "start:next.json" {
			mu.Unlock()
			t.Fatalf("next.json requested while slow.json was still loading: %v", events)
		}
	}
	mu.Unlock()
	close(release)

	res := <-done
	if res.err != nil {
		t.Fatalf("resolve: %v", res.err)
	}
	if diff := cmp.Diff([]string{"root.json", "fast.json", "slow.json", "next.json"}, locations(res.closure)); diff != "" {
		t.Fatalf("closure mismatch (-want +got):\n%s", diff)
	}

	index := func(event string) int {
		for idx, got := range events {
			if got == event {
				return idx
			}
		}
		t.Fatalf("missing event %s in %v", event, events)
		return -1
	}
	if index("start:next.json") < index("end:slow.json") {
		t.Fatalf("second generation started before the first finished: %v", events)
	}
}

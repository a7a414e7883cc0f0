package jsonschema

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

// Loaded is one fetched and decoded document held by the Registry.
type Loaded struct {
	// Key is the canonical location key ("url:...", "fs:...", "file:...").
	Key    string
	Source schema.Source
	Raw    []byte
	Body   any
}

// Location returns the fetch location of the document.
func (l Loaded) Location() string {
	if l.Source == nil {
		return ""
	}
	return l.Source.Location()
}

// DeclaredID returns the "$id" (or draft-04 "id") the document declares for
// itself, normalized, or "" when absent.
func (l Loaded) DeclaredID() string {
	obj, ok := l.Body.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"$id", "id"} {
		if raw, ok := obj[key].(string); ok {
			if id := schema.NormalizeID(raw); id != "" {
				return id
			}
		}
	}
	return ""
}

// Registry caches fetched documents by canonical location for the lifetime
// of a session. A location is fetched at most once: later requests are
// served from the cache and concurrent requests for a location still in
// flight share the same fetch.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Loaded
	fetches map[string]int
	group   singleflight.Group
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Loaded),
		fetches: make(map[string]int),
	}
}

// Lookup returns the cached document for key.
func (r *Registry) Lookup(key string) (Loaded, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	return entry, ok
}

// Len reports the number of cached documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Fetches reports how many loader round trips were made for key.
func (r *Registry) Fetches(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetches[key]
}

// Clear drops every cached document. Only a full reload should call it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Loaded)
	r.fetches = make(map[string]int)
}

// Fetch returns the cached document for src or loads it through loader.
// Loader failures are wrapped in *FetchError; malformed JSON is returned as
// a parse error.
func (r *Registry) Fetch(ctx context.Context, loader Loader, src schema.Source, maxBytes int64) (Loaded, error) {
	key, err := LocationKey(src)
	if err != nil {
		return Loaded{}, err
	}
	if entry, ok := r.Lookup(key); ok {
		return entry, nil
	}

	value, err, _ := r.group.Do(key, func() (any, error) {
		if entry, ok := r.Lookup(key); ok {
			return entry, nil
		}
		r.mu.Lock()
		r.fetches[key]++
		r.mu.Unlock()

		doc, err := loader.Load(ctx, src)
		if err != nil {
			return Loaded{}, &FetchError{Location: src.Location(), Err: err}
		}
		raw := doc.Raw()
		if maxBytes > 0 && int64(len(raw)) > maxBytes {
			return Loaded{}, fmt.Errorf("jsonschema registry: document too large (%d bytes) at %s", len(raw), src.Location())
		}
		body, err := doc.Decode()
		if err != nil {
			return Loaded{}, err
		}
		entry := Loaded{Key: key, Source: src, Raw: raw, Body: body}

		r.mu.Lock()
		r.entries[key] = entry
		r.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return Loaded{}, err
	}
	return value.(Loaded), nil
}

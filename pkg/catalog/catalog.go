package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

// Entry is the searchable projection of a CodedEntry.
type Entry struct {
	SearchKey        string     `json:"searchKey"`
	DisplayLabel     string     `json:"displayLabel"`
	ContextGroupName string     `json:"contextGroupName,omitempty"`
	Payload          CodedEntry `json:"payload"`
}

// Catalog is an immutable, sorted snapshot of one vocabulary list. A
// catalog is rebuilt whenever its governing parent selection changes.
type Catalog struct {
	entries []Entry
	latency time.Duration
	jitter  func(time.Duration) time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSimulatedLatency delays every Search by a random duration up to max.
// It exists for demos and tests that need the asynchronous path.
func WithSimulatedLatency(max time.Duration) Option {
	return func(c *Catalog) {
		c.latency = max
	}
}

func withJitter(fn func(time.Duration) time.Duration) Option {
	return func(c *Catalog) {
		c.jitter = fn
	}
}

// Build normalizes a raw vocabulary payload, either one object or a list of
// objects, into a catalog.
func Build(raw []byte, options ...Option) (*Catalog, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("catalog: vocabulary payload is empty")
	}

	var entries []CodedEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("catalog: decode vocabulary list: %w", err)
		}
	} else {
		var single CodedEntry
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("catalog: decode vocabulary entry: %w", err)
		}
		entries = []CodedEntry{single}
	}
	return BuildEntries(entries, options...)
}

// BuildEntries sorts entries by CodeMeaning (stable, case-sensitive) and
// projects them into a catalog. Every entry must carry a CodeMeaning.
func BuildEntries(entries []CodedEntry, options ...Option) (*Catalog, error) {
	sorted := make([]CodedEntry, len(entries))
	copy(sorted, entries)
	for idx, entry := range sorted {
		if entry.CodeMeaning == "" {
			return nil, fmt.Errorf("catalog: entry %d (%s) has no CodeMeaning", idx, entry.CodeValue)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CodeMeaning < sorted[j].CodeMeaning
	})

	c := &Catalog{
		entries: make([]Entry, 0, len(sorted)),
		jitter: func(max time.Duration) time.Duration {
			return rand.N(max)
		},
	}
	for _, entry := range sorted {
		c.entries = append(c.entries, Entry{
			SearchKey:        strings.ToLower(entry.CodeMeaning),
			DisplayLabel:     entry.CodeMeaning,
			ContextGroupName: entry.ContextGroupName,
			Payload:          entry,
		})
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns the full sorted list.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Search returns the entries whose lowercase CodeMeaning contains the
// lowercase query. An empty query returns the full catalog.
func (c *Catalog) Search(ctx context.Context, query string) ([]Entry, error) {
	if c == nil {
		return nil, nil
	}
	if c.latency > 0 {
		timer := time.NewTimer(c.jitter(c.latency))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	needle := strings.ToLower(query)
	if needle == "" {
		return c.Entries(), nil
	}
	out := make([]Entry, 0)
	for _, entry := range c.entries {
		if strings.Contains(entry.SearchKey, needle) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Find locates the entry for a code value and designator. An empty
// designator matches any scheme.
func (c *Catalog) Find(codeValue, designator string) (CodedEntry, bool) {
	if c == nil {
		return CodedEntry{}, false
	}
	for _, entry := range c.entries {
		if entry.Payload.CodeValue != codeValue {
			continue
		}
		if designator == "" || entry.Payload.CodingSchemeDesignator == designator {
			return entry.Payload, true
		}
	}
	return CodedEntry{}, false
}

// FindMeaning locates the first entry whose CodeMeaning equals meaning,
// ignoring case.
func (c *Catalog) FindMeaning(meaning string) (CodedEntry, bool) {
	if c == nil {
		return CodedEntry{}, false
	}
	key := strings.ToLower(strings.TrimSpace(meaning))
	for _, entry := range c.entries {
		if entry.SearchKey == key {
			return entry.Payload, true
		}
	}
	return CodedEntry{}, false
}

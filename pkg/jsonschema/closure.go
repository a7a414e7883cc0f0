package jsonschema

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

// Guardrail defaults applied when ResolveOptions leaves them unset.
const (
	DefaultMaxDocumentBytes = int64(5 << 20)
	DefaultMaxDocuments     = 128
)

// ResolveOptions configures closure resolution.
type ResolveOptions struct {
	// AllowPathTraversal permits file/fs refs to escape the root directory.
	AllowPathTraversal bool
	// MaxDocumentBytes caps the size of any single referenced document.
	MaxDocumentBytes int64
	// MaxDocuments caps the number of documents in one closure.
	MaxDocuments int
	// IDMappings rewrite canonical-id references into fetch locations.
	IDMappings []IDMapping
}

// ClosureResolver fetches a root schema and every schema reachable from it
// through "$ref", one discovery generation at a time.
type ClosureResolver struct {
	loader   Loader
	registry *Registry
	opts     ResolveOptions
	logger   zerolog.Logger
}

// ResolverOption configures a ClosureResolver.
type ResolverOption func(*ClosureResolver)

// WithRegistry shares a session registry with the resolver.
func WithRegistry(registry *Registry) ResolverOption {
	return func(r *ClosureResolver) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithResolveOptions overrides the resolution guardrails.
func WithResolveOptions(opts ResolveOptions) ResolverOption {
	return func(r *ClosureResolver) {
		r.opts = opts
	}
}

// WithLogger attaches a logger used for generation-level debug output.
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *ClosureResolver) {
		r.logger = logger
	}
}

// NewClosureResolver constructs a resolver. Without WithRegistry the resolver
// owns a private registry.
func NewClosureResolver(loader Loader, options ...ResolverOption) *ClosureResolver {
	r := &ClosureResolver{
		loader: loader,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if r.opts.MaxDocumentBytes <= 0 {
		r.opts.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if r.opts.MaxDocuments <= 0 {
		r.opts.MaxDocuments = DefaultMaxDocuments
	}
	return r
}

// Registry exposes the cache backing the resolver.
func (r *ClosureResolver) Registry() *Registry {
	return r.registry
}

type pendingRef struct {
	key string
	src schema.Source
}

// ResolveClosure returns the root document followed by every document
// reachable from it, each exactly once, in the order first discovered.
// All fetches of one generation run concurrently and the next generation
// starts only after every fetch of the current one has completed.
func (r *ClosureResolver) ResolveClosure(ctx context.Context, root schema.Source) ([]Loaded, error) {
	if r == nil {
		return nil, errors.New("jsonschema resolver: resolver is nil")
	}
	if r.loader == nil {
		return nil, errors.New("jsonschema resolver: loader is nil")
	}
	if root == nil {
		return nil, errors.New("jsonschema resolver: root source is nil")
	}
	loc, err := newLocator(root, r.opts)
	if err != nil {
		return nil, err
	}

	rootDoc, err := r.registry.Fetch(ctx, r.loader, root, r.opts.MaxDocumentBytes)
	if err != nil {
		return nil, err
	}

	loaded := map[string]struct{}{rootDoc.Key: {}}
	closure := []Loaded{rootDoc}
	frontier := []Loaded{rootDoc}

	for generation := 1; len(frontier) > 0; generation++ {
		next, err := r.discover(loc, frontier, loaded)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		if len(closure)+len(next) > r.opts.MaxDocuments {
			return nil, fmt.Errorf("jsonschema resolver: exceeded max documents (%d)", r.opts.MaxDocuments)
		}
		r.logger.Debug().Int("generation", generation).Int("documents", len(next)).Msg("fetching schema references")

		results := make([]Loaded, len(next))
		group, groupCtx := errgroup.WithContext(ctx)
		for idx, pending := range next {
			group.Go(func() error {
				doc, err := r.registry.Fetch(groupCtx, r.loader, pending.src, r.opts.MaxDocumentBytes)
				if err != nil {
					return err
				}
				results[idx] = doc
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}

		for _, doc := range results {
			loaded[doc.Key] = struct{}{}
		}
		closure = append(closure, results...)
		frontier = results
	}

	return closure, nil
}

func (r *ClosureResolver) discover(loc *locator, frontier []Loaded, loaded map[string]struct{}) ([]pendingRef, error) {
	seen := make(map[string]struct{})
	var next []pendingRef
	for _, doc := range frontier {
		for _, ref := range FindReferences(doc.Body) {
			src, err := loc.target(doc.Source, ref)
			if err != nil {
				return nil, err
			}
			key, err := LocationKey(src)
			if err != nil {
				return nil, err
			}
			if _, ok := loaded[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			next = append(next, pendingRef{key: key, src: src})
		}
	}
	return next, nil
}

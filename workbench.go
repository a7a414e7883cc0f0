package dcmmeta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcmmeta/internal/jsonschema/loader"
	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/form"
	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/schema"
	"github.com/goliatone/go-dcmmeta/pkg/session"
	"github.com/goliatone/go-dcmmeta/pkg/sources"
	"github.com/goliatone/go-dcmmeta/pkg/validation"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrUnknownVocabulary is returned for vocabulary names missing from the
// manifest.
var ErrUnknownVocabulary = errors.New("dcmmeta: unknown vocabulary")

// Option customises the Workbench.
type Option func(*Workbench)

// WithLoader injects the loader used for schemas and vocabularies.
func WithLoader(l pkgjsonschema.Loader) Option {
	return func(w *Workbench) {
		w.loader = l
	}
}

// WithManifest replaces the embedded source manifest.
func WithManifest(manifest sources.Manifest) Option {
	return func(w *Workbench) {
		w.manifest = manifest
	}
}

// WithSession shares an existing session context.
func WithSession(s *session.Session) Option {
	return func(w *Workbench) {
		if s != nil {
			w.session = s
		}
	}
}

// WithLogger attaches a logger that is passed down to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logger
	}
}

// WithSimulatedLatency makes every vocabulary catalog delay its searches.
func WithSimulatedLatency(max time.Duration) Option {
	return func(w *Workbench) {
		w.latency = max
	}
}

// WithResolveOptions overrides the closure resolution guardrails. Manifest
// id mappings are appended to opts.IDMappings.
func WithResolveOptions(opts pkgjsonschema.ResolveOptions) Option {
	return func(w *Workbench) {
		w.resolveOpts = opts
	}
}

// Workbench wires the resolver, validator, catalogs and form around one
// session. It is the entry point used by the CLI.
type Workbench struct {
	session     *session.Session
	loader      pkgjsonschema.Loader
	manifest    sources.Manifest
	logger      zerolog.Logger
	latency     time.Duration
	resolveOpts pkgjsonschema.ResolveOptions

	validation *validation.Session

	mu      sync.Mutex
	closure []pkgjsonschema.Loaded
}

// New constructs a Workbench. Without options it reads the embedded manifest
// and fetches over HTTP with a 30s timeout.
func New(options ...Option) *Workbench {
	w := &Workbench{
		logger:     zerolog.Nop(),
		validation: validation.NewSession(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if w.session == nil {
		w.session = session.New()
	}
	if w.loader == nil {
		w.loader = loader.New(pkgjsonschema.NewLoaderOptions(pkgjsonschema.WithHTTPFallback(defaultHTTPTimeout)))
	}
	if len(w.manifest.Schemas) == 0 && len(w.manifest.Vocabularies) == 0 {
		w.manifest = sources.Default()
	}
	w.resolveOpts.IDMappings = append(w.resolveOpts.IDMappings, w.manifest.IDMappings...)
	if w.resolveOpts.MaxDocumentBytes <= 0 {
		w.resolveOpts.MaxDocumentBytes = pkgjsonschema.DefaultMaxDocumentBytes
	}
	return w
}

// Session returns the session context.
func (w *Workbench) Session() *session.Session {
	return w.session
}

// Manifest returns the schema and vocabulary sources on offer.
func (w *Workbench) Manifest() sources.Manifest {
	return w.manifest
}

// Validation returns the validation session bound by LoadSchema.
func (w *Workbench) Validation() *validation.Session {
	return w.validation
}

// Closure returns the documents resolved by the last LoadSchema.
func (w *Workbench) Closure() []pkgjsonschema.Loaded {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]pkgjsonschema.Loaded, len(w.closure))
	copy(out, w.closure)
	return out
}

// Describe maps a manifest schema name, or a raw location, to a
// descriptor.
func (w *Workbench) Describe(nameOrLocation string) schema.Descriptor {
	if desc, ok := w.manifest.Schema(nameOrLocation); ok {
		return desc
	}
	return schema.Descriptor{Name: nameOrLocation, URL: nameOrLocation}
}

// Resolve fetches the schema closure for a manifest name or location.
func (w *Workbench) Resolve(ctx context.Context, nameOrLocation string) ([]pkgjsonschema.Loaded, error) {
	desc := w.Describe(nameOrLocation)
	src, err := schema.ParseSource(desc.URL)
	if err != nil {
		return nil, err
	}
	resolver := pkgjsonschema.NewClosureResolver(w.loader,
		pkgjsonschema.WithRegistry(w.session.Registry()),
		pkgjsonschema.WithResolveOptions(w.resolveOpts),
		pkgjsonschema.WithLogger(w.logger),
	)
	return resolver.ResolveClosure(ctx, src)
}

// KeySet returns the document keys the named schema expects.
func (w *Workbench) KeySet(nameOrLocation string) (assemble.KeySet, error) {
	return assemble.KeySetFor(w.Describe(nameOrLocation).Keys)
}

// LoadSchema resolves, compiles and binds the named schema. The validator is
// bound under the descriptor's canonical id; when the manifest gives none,
// the id the root document declares is used. Any previous validator is
// unbound first, so a failed load leaves the session not loaded. A result
// that arrives after Reset is dropped with session.ErrStale.
func (w *Workbench) LoadSchema(ctx context.Context, nameOrLocation string) error {
	ticket := w.session.Ticket()
	desc := w.Describe(nameOrLocation)
	w.unbind()

	closure, err := w.Resolve(ctx, nameOrLocation)
	if err != nil {
		w.logger.Error().Err(err).Str("schema", desc.Name).Msg("schema load failed")
		return err
	}

	schemaID := schema.NormalizeID(desc.ID)
	if schemaID == "" {
		schemaID = closure[0].DeclaredID()
	}
	if schemaID == "" {
		schemaID = closure[0].Key
	}
	validator, err := validation.Compile(schemaID, closure, w.resolveOpts.IDMappings...)
	if err != nil {
		w.logger.Error().Err(err).Str("schema", desc.Name).Msg("schema compile failed")
		return err
	}

	if err := ticket.Check(); err != nil {
		w.logger.Warn().Str("schema", desc.Name).Uint64("epoch", ticket.Epoch()).Msg("dropping schema for superseded session")
		return err
	}
	w.mu.Lock()
	w.closure = closure
	w.mu.Unlock()
	w.validation.Bind(validator)
	w.logger.Info().Str("schema", desc.Name).Str("id", schemaID).Int("documents", len(closure)).Msg("schema loaded")
	return nil
}

// Validate checks raw JSON against the bound schema.
func (w *Workbench) Validate(raw []byte) validation.Outcome {
	return w.validation.Validate(raw)
}

// ValidateValue checks an assembled document against the bound schema.
func (w *Workbench) ValidateValue(document any) validation.Outcome {
	return w.validation.ValidateValue(document)
}

// LoadVocabulary fetches a manifest vocabulary and builds its catalog.
func (w *Workbench) LoadVocabulary(ctx context.Context, name string) (*catalog.Catalog, sources.Vocabulary, error) {
	vocab, ok := w.manifest.Vocabulary(name)
	if !ok {
		return nil, sources.Vocabulary{}, fmt.Errorf("%w: %s", ErrUnknownVocabulary, name)
	}
	ticket := w.session.Ticket()

	src, err := schema.ParseSource(vocab.URL)
	if err != nil {
		return nil, vocab, err
	}
	doc, err := w.session.Registry().Fetch(ctx, w.loader, src, w.resolveOpts.MaxDocumentBytes)
	if err != nil {
		w.logger.Error().Err(err).Str("vocabulary", name).Msg("vocabulary load failed")
		return nil, vocab, err
	}

	var opts []catalog.Option
	if w.latency > 0 {
		opts = append(opts, catalog.WithSimulatedLatency(w.latency))
	}
	c, err := catalog.LoadList(doc.Raw, vocab.Container, vocab.List, opts...)
	if err != nil {
		return nil, vocab, err
	}
	if err := ticket.Check(); err != nil {
		w.logger.Warn().Str("vocabulary", name).Msg("dropping vocabulary for superseded session")
		return nil, vocab, err
	}
	w.logger.Info().Str("vocabulary", name).Int("codes", c.Len()).Msg("vocabulary loaded")
	return c, vocab, nil
}

// InstallVocabulary loads a vocabulary and makes it the candidate list of
// the root selector named by its manifest entry, on every segment of f.
func (w *Workbench) InstallVocabulary(ctx context.Context, f *form.Form, name string) error {
	c, vocab, err := w.LoadVocabulary(ctx, name)
	if err != nil {
		return err
	}
	slot := cascade.Slot(vocab.Selector)
	if cfg, ok := f.Cascade().Config(slot); !ok || !cfg.Root() {
		return fmt.Errorf("dcmmeta: vocabulary %s targets %q, which is not a root selector", name, vocab.Selector)
	}
	changes, err := f.Cascade().SetRootCatalog(slot, c)
	if err != nil {
		return err
	}
	f.SyncCascade(changes)
	return nil
}

// NewForm returns a form whose label ids come from the session counter.
func (w *Workbench) NewForm() *form.Form {
	controller := cascade.NewController(cascade.WithLogger(w.logger))
	return form.New(w.session.Labels(), controller, form.WithLogger(w.logger))
}

// Reset starts a new session generation and unbinds the validator. Loads
// still in flight are dropped when they complete; the schema cache and label
// counter are kept.
func (w *Workbench) Reset() {
	epoch := w.session.Reset()
	w.unbind()
	w.logger.Debug().Uint64("epoch", epoch).Msg("session reset")
}

func (w *Workbench) unbind() {
	w.mu.Lock()
	w.closure = nil
	w.mu.Unlock()
	w.validation.Bind(nil)
}

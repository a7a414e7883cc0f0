package cascade

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcmmeta/pkg/catalog"
)

var (
	// ErrSelectorDisabled is returned when selecting on a disabled selector.
	ErrSelectorDisabled = errors.New("cascade: selector is disabled")
	// ErrNotCandidate is returned when the chosen code is not offered by the
	// selector's current candidate catalog.
	ErrNotCandidate = errors.New("cascade: code is not a candidate")
)

// Controller keeps the dependent selectors of every attached segment
// consistent. Segments are isolated: a selection on one segment never
// touches the selectors of another.
type Controller struct {
	mu          sync.Mutex
	order       []Slot
	configs     map[Slot]SelectorConfig
	dependents  map[Slot][]Slot
	roots       map[Slot]*catalog.Catalog
	segments    map[uuid.UUID]map[Slot]*selectorState
	subscribers map[uuid.UUID]map[int]func(Change)
	nextSub     int
	logger      zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig replaces the default selector chains.
func WithConfig(configs []SelectorConfig) Option {
	return func(c *Controller) {
		c.setConfig(configs)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController constructs a controller. It panics when the configuration
// references an unknown parent.
func NewController(options ...Option) *Controller {
	c := &Controller{
		roots:       make(map[Slot]*catalog.Catalog),
		segments:    make(map[uuid.UUID]map[Slot]*selectorState),
		subscribers: make(map[uuid.UUID]map[int]func(Change)),
		logger:      zerolog.Nop(),
	}
	c.setConfig(DefaultConfig())
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Controller) setConfig(configs []SelectorConfig) {
	c.order = c.order[:0]
	c.configs = make(map[Slot]SelectorConfig, len(configs))
	c.dependents = make(map[Slot][]Slot)
	for _, cfg := range configs {
		c.order = append(c.order, cfg.Slot)
		c.configs[cfg.Slot] = cfg
	}
	for _, cfg := range configs {
		if cfg.Root() {
			continue
		}
		if _, ok := c.configs[cfg.Parent]; !ok {
			panic(fmt.Sprintf("cascade: selector %s has unknown parent %s", cfg.Slot, cfg.Parent))
		}
		c.dependents[cfg.Parent] = append(c.dependents[cfg.Parent], cfg.Slot)
	}
}

// Slots lists the configured selectors in configuration order.
func (c *Controller) Slots() []Slot {
	return append([]Slot(nil), c.order...)
}

// Config returns the configuration of slot.
func (c *Controller) Config(slot Slot) (SelectorConfig, bool) {
	cfg, ok := c.configs[slot]
	return cfg, ok
}

// Attach registers a segment. Root selectors start enabled when their
// vocabulary is loaded, every other selector starts disabled.
func (c *Controller) Attach(id uuid.UUID) []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.segments[id]; exists {
		panic(fmt.Sprintf("cascade: segment %s already attached", id))
	}
	selectors := make(map[Slot]*selectorState, len(c.order))
	var changes []Change
	for _, slot := range c.order {
		state := &selectorState{}
		if c.configs[slot].Root() {
			if root := c.roots[slot]; root != nil {
				state.enable(root)
			}
		}
		selectors[slot] = state
		changes = append(changes, Change{Segment: id, Selector: state.snapshot(slot)})
	}
	c.segments[id] = selectors
	return changes
}

// Detach forgets a segment and its subscribers.
func (c *Controller) Detach(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.segments, id)
	delete(c.subscribers, id)
}

// Attached reports whether id is a live segment.
func (c *Controller) Attached(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.segments[id]
	return ok
}

// Selector returns the current snapshot of slot on segment id.
func (c *Controller) Selector(id uuid.UUID, slot Slot) Selector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector(id, slot).snapshot(slot)
}

// SetRootCatalog installs the vocabulary feeding a root selector and resets
// that selector (and its dependents) on every attached segment. A nil
// catalog disables the selector.
func (c *Controller) SetRootCatalog(slot Slot, candidates *catalog.Catalog) ([]Change, error) {
	cfg, ok := c.configs[slot]
	if !ok {
		panic(fmt.Sprintf("cascade: unknown selector %s", slot))
	}
	if !cfg.Root() {
		return nil, fmt.Errorf("cascade: selector %s is not a root selector", slot)
	}

	c.mu.Lock()
	if candidates == nil {
		delete(c.roots, slot)
	} else {
		c.roots[slot] = candidates
	}
	var changes []Change
	for id, selectors := range c.segments {
		state := selectors[slot]
		if candidates == nil {
			state.disable()
		} else {
			state.enable(candidates)
		}
		changes = append(changes, Change{Segment: id, Selector: state.snapshot(slot)})
		changes = append(changes, c.recompute(id, slot)...)
	}
	subscribers := c.subscribersFor(changes)
	c.mu.Unlock()

	c.logger.Debug().Str("selector", string(slot)).Int("candidates", candidates.Len()).Msg("root vocabulary installed")
	notify(subscribers, changes)
	return changes, nil
}

// Select chooses entry on slot for segment id, or clears the selection when
// entry is nil, and recomputes every dependent selector of that segment.
// Selecting on an unknown segment panics.
func (c *Controller) Select(id uuid.UUID, slot Slot, entry *catalog.CodedEntry) ([]Change, error) {
	changes, subscribers, err := c.apply(id, slot, entry)
	if err != nil {
		return nil, err
	}
	notify(subscribers, changes)
	return changes, nil
}

func (c *Controller) apply(id uuid.UUID, slot Slot, entry *catalog.CodedEntry) ([]Change, map[uuid.UUID][]func(Change), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.selector(id, slot)
	if entry != nil {
		if state.state == Disabled {
			return nil, nil, fmt.Errorf("%w: %s", ErrSelectorDisabled, slot)
		}
		chosen, ok := state.candidates.Find(entry.CodeValue, entry.CodingSchemeDesignator)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s on %s", ErrNotCandidate, entry, slot)
		}
		state.state = EnabledSelected
		state.selected = &chosen
	} else if state.state != Disabled {
		state.state = EnabledEmpty
		state.selected = nil
	}

	changes := []Change{{Segment: id, Selector: state.snapshot(slot)}}
	changes = append(changes, c.recompute(id, slot)...)
	return changes, c.subscribersFor(changes), nil
}

// Subscribe registers fn for changes on segment id. The returned function
// removes the subscription.
func (c *Controller) Subscribe(id uuid.UUID, fn func(Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.segments[id]; !ok {
		panic(fmt.Sprintf("cascade: unknown segment %s", id))
	}
	subs := c.subscribers[id]
	if subs == nil {
		subs = make(map[int]func(Change))
		c.subscribers[id] = subs
	}
	key := c.nextSub
	c.nextSub++
	subs[key] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers[id], key)
	}
}

// recompute rebuilds the dependents of parent on segment id, depth first.
func (c *Controller) recompute(id uuid.UUID, parent Slot) []Change {
	selectors := c.segments[id]
	parentState := selectors[parent]

	var changes []Change
	for _, slot := range c.dependents[parent] {
		cfg := c.configs[slot]
		state := selectors[slot]

		raw, ok := []byte(nil), false
		if parentState.selected != nil {
			raw, ok = parentState.selected.Child(cfg.ChildKey)
		}
		if !ok {
			state.disable()
		} else {
			candidates, err := catalog.Build(raw)
			switch {
			case err != nil:
				c.logger.Warn().Err(err).Str("selector", string(slot)).Msg("child vocabulary rejected")
				state.disable()
			case candidates.Len() == 0:
				// an empty child list offers nothing to pick
				state.disable()
			default:
				state.enable(candidates)
			}
		}
		changes = append(changes, Change{Segment: id, Selector: state.snapshot(slot)})
		changes = append(changes, c.recompute(id, slot)...)
	}
	return changes
}

func (c *Controller) selector(id uuid.UUID, slot Slot) *selectorState {
	selectors, ok := c.segments[id]
	if !ok {
		panic(fmt.Sprintf("cascade: unknown segment %s", id))
	}
	state, ok := selectors[slot]
	if !ok {
		panic(fmt.Sprintf("cascade: unknown selector %s", slot))
	}
	return state
}

func (c *Controller) subscribersFor(changes []Change) map[uuid.UUID][]func(Change) {
	out := make(map[uuid.UUID][]func(Change))
	for _, change := range changes {
		if _, done := out[change.Segment]; done {
			continue
		}
		subs := c.subscribers[change.Segment]
		fns := make([]func(Change), 0, len(subs))
		for _, fn := range subs {
			fns = append(fns, fn)
		}
		out[change.Segment] = fns
	}
	return out
}

func notify(subscribers map[uuid.UUID][]func(Change), changes []Change) {
	for _, change := range changes {
		for _, fn := range subscribers[change.Segment] {
			fn(change)
		}
	}
}

package cascade

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-dcmmeta/pkg/catalog"
)

// State is the lifecycle of one selector on one segment.
type State int

const (
	// Disabled means there is nothing to choose from: no parent selection,
	// no child vocabulary at this level, or no root vocabulary loaded.
	Disabled State = iota
	// EnabledEmpty means candidates are available and none is chosen.
	EnabledEmpty
	// EnabledSelected means a candidate is chosen.
	EnabledSelected
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case EnabledEmpty:
		return "enabled-empty"
	case EnabledSelected:
		return "enabled-selected"
	default:
		return "unknown"
	}
}

// Selector is a snapshot of one selector.
type Selector struct {
	Slot       Slot
	State      State
	Candidates *catalog.Catalog
	Selected   *catalog.CodedEntry
}

// Change reports the new snapshot of a selector touched by an operation.
type Change struct {
	Segment uuid.UUID
	Selector
}

type selectorState struct {
	state      State
	candidates *catalog.Catalog
	selected   *catalog.CodedEntry
}

func (s *selectorState) snapshot(slot Slot) Selector {
	out := Selector{Slot: slot, State: s.state, Candidates: s.candidates}
	if s.selected != nil {
		selected := *s.selected
		out.Selected = &selected
	}
	return out
}

func (s *selectorState) disable() {
	s.state = Disabled
	s.candidates = nil
	s.selected = nil
}

func (s *selectorState) enable(candidates *catalog.Catalog) {
	s.state = EnabledEmpty
	s.candidates = candidates
	s.selected = nil
}

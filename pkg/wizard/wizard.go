package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/form"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
)

// ErrIncomplete is returned when the user stops editing while the form
// still fails its checks. It wraps the individual check errors.
var ErrIncomplete = errors.New("wizard: form incomplete")

const noneOption = "(none)"

// Wizard walks a user through a form with a prompt driver.
type Wizard struct {
	driver   prompt.Driver
	logger   zerolog.Logger
	pageSize int
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithPageSize sets how many code candidates a select prompt shows at once.
func WithPageSize(size int) Option {
	return func(w *Wizard) {
		if size > 0 {
			w.pageSize = size
		}
	}
}

// New returns a Wizard over driver.
func New(driver prompt.Driver, options ...Option) *Wizard {
	w := &Wizard{
		driver:   driver,
		logger:   zerolog.Nop(),
		pageSize: 15,
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Segmentation edits f until it passes Check or the user gives up. Root
// vocabularies must already be installed on the form's cascade.
func (w *Wizard) Segmentation(ctx context.Context, f *form.Form) error {
	series, err := w.series(ctx, f.Series())
	if err != nil {
		return err
	}
	f.SetSeries(series)

	for {
		if err := w.segments(ctx, f); err != nil {
			return err
		}
		problems := f.Check()
		if len(problems) == 0 {
			return nil
		}
		for _, problem := range problems {
			if err := w.driver.Info(ctx, problem.Error()); err != nil {
				return err
			}
		}
		again, err := w.driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Edit the segments again?", Default: true})
		if err != nil {
			return err
		}
		if !again {
			return fmt.Errorf("%w: %w", ErrIncomplete, errors.Join(problems...))
		}
	}
}

func (w *Wizard) segments(ctx context.Context, f *form.Form) error {
	for idx := 0; idx < f.Len(); idx++ {
		seg := f.Segments()[idx]
		if err := w.segment(ctx, f, seg.ID); err != nil {
			return err
		}
		if idx < f.Len()-1 {
			continue
		}
		more, err := w.driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Add another segment?"})
		if err != nil {
			return err
		}
		if more {
			added := f.Add()
			w.logger.Debug().Int("label_id", added.LabelID).Msg("segment added from wizard")
		}
	}
	return nil
}

func (w *Wizard) segment(ctx context.Context, f *form.Form, id uuid.UUID) error {
	seg, _ := f.Segment(id)
	if err := w.driver.Info(ctx, fmt.Sprintf("Segment with label id %d", seg.LabelID)); err != nil {
		return err
	}

	rawLabel, err := w.driver.Input(ctx, prompt.InputConfig{
		Message: "Label ID",
		Default: strconv.Itoa(seg.LabelID),
		Validator: func(value string) error {
			labelID, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || labelID <= 0 {
				return errors.New("label id must be a positive integer")
			}
			if f.SegmentAlreadyExists(id, labelID) {
				return fmt.Errorf("label id %d is already used", labelID)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	labelID, _ := strconv.Atoi(strings.TrimSpace(rawLabel))
	if err := f.SetLabelID(id, labelID); err != nil {
		return err
	}

	description, err := w.driver.Input(ctx, prompt.InputConfig{Message: "Segment description", Default: seg.Description})
	if err != nil {
		return err
	}
	if err := f.SetDescription(id, description); err != nil {
		return err
	}

	if err := w.algorithm(ctx, f, seg); err != nil {
		return err
	}

	for _, slot := range f.Cascade().Slots() {
		if err := w.code(ctx, f, id, slot); err != nil {
			return err
		}
	}
	return w.color(ctx, f, id)
}

func (w *Wizard) algorithm(ctx context.Context, f *form.Form, seg form.Segment) error {
	types := form.AlgorithmTypes()
	options := make([]string, len(types))
	current := 0
	for i, typ := range types {
		options[i] = string(typ)
		if typ == seg.AlgorithmType {
			current = i
		}
	}
	idx, err := w.driver.Select(ctx, prompt.SelectConfig{
		Message:      "Segment algorithm type",
		Options:      options,
		DefaultIndex: current,
	})
	if err != nil {
		return err
	}
	typ := types[idx]

	var name string
	if typ != form.Manual {
		name, err = w.driver.Input(ctx, prompt.InputConfig{
			Message: "Segment algorithm name",
			Default: seg.AlgorithmName,
			Validator: func(value string) error {
				if strings.TrimSpace(value) == "" {
					return errors.New("an algorithm name is required unless the type is MANUAL")
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
	}
	return f.SetAlgorithm(seg.ID, typ, name)
}

// code asks for one slot. Disabled selectors are skipped, which is how the
// cascade hides modifiers the chosen parent does not offer.
func (w *Wizard) code(ctx context.Context, f *form.Form, id uuid.UUID, slot cascade.Slot) error {
	selector := f.Cascade().Selector(id, slot)
	if selector.State == cascade.Disabled {
		return nil
	}
	label := string(slot)
	if cfg, ok := f.Cascade().Config(slot); ok && cfg.Label != "" {
		label = cfg.Label
	}

	entry, err := w.pick(ctx, label, selector.Candidates, selector.Selected)
	if err != nil {
		return err
	}
	if sameSelection(entry, selector.Selected) {
		return nil
	}
	changes, err := f.Select(id, slot, entry)
	if err != nil {
		return err
	}
	w.logger.Debug().Str("slot", string(slot)).Int("changes", len(changes)).Msg("code selected")
	return nil
}

// pick searches candidates and returns the chosen entry, or nil for none.
func (w *Wizard) pick(ctx context.Context, label string, candidates *catalog.Catalog, selected *catalog.CodedEntry) (*catalog.CodedEntry, error) {
	if candidates.Len() == 0 {
		if err := w.driver.Info(ctx, fmt.Sprintf("No %s codes to choose from", label)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	for {
		query, err := w.driver.Input(ctx, prompt.InputConfig{
			Message: label + " search",
			Help:    "Part of the code meaning; leave empty to list every code.",
		})
		if err != nil {
			return nil, err
		}
		results, err := candidates.Search(ctx, strings.TrimSpace(query))
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			if err := w.driver.Info(ctx, fmt.Sprintf("No %s matches %q", label, query)); err != nil {
				return nil, err
			}
			continue
		}

		options := make([]string, 0, len(results)+1)
		options = append(options, noneOption)
		for _, entry := range results {
			options = append(options, entry.DisplayLabel)
		}
		idx, err := w.driver.Select(ctx, prompt.SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: indexOfEntry(results, selected) + 1,
			PageSize:     w.pageSize,
		})
		if err != nil {
			return nil, err
		}
		if idx <= 0 {
			return nil, nil
		}
		chosen := results[idx-1].Payload
		return &chosen, nil
	}
}

func (w *Wizard) color(ctx context.Context, f *form.Form, id uuid.UUID) error {
	seg, _ := f.Segment(id)
	current := "none"
	if seg.Color != nil {
		current = assemble.FormatRGB(*seg.Color)
	}
	override, err := w.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: fmt.Sprintf("Display color is %s (%s). Override it?", current, seg.ColorSource),
	})
	if err != nil {
		return err
	}
	if !override {
		return nil
	}
	raw, err := w.driver.Input(ctx, prompt.InputConfig{
		Message: "Display color",
		Default: current,
		Help:    "rgb(r, g, b) with components from 0 to 255",
		Validator: func(value string) error {
			_, err := assemble.ParseRGB(value)
			return err
		},
	})
	if err != nil {
		return err
	}
	rgb, err := assemble.ParseRGB(raw)
	if err != nil {
		return err
	}
	return f.SetColor(id, rgb)
}

func sameSelection(a, b *catalog.CodedEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Same(*b)
}

func indexOfEntry(results []catalog.Entry, selected *catalog.CodedEntry) int {
	if selected == nil {
		return -1
	}
	for i, entry := range results {
		if entry.Payload.Same(*selected) {
			return i
		}
	}
	return -1
}

package form

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
)

// ErrUnknownSegment is returned for operations on a segment id that is not
// part of the form.
var ErrUnknownSegment = errors.New("form: unknown segment")

// Form is the in-memory state of one document being edited: series
// attributes plus an ordered list of segments. Code selections go through
// the cascade controller so dependent selectors stay consistent. A Form is
// not safe for concurrent use.
type Form struct {
	series   SeriesAttributes
	segments []*Segment
	labels   LabelAllocator
	cascade  *cascade.Controller
	logger   zerolog.Logger
}

// Option configures a Form.
type Option func(*Form)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// New returns a form with default series attributes and one segment. A nil
// allocator gets a private Counter and a nil controller a default one.
func New(labels LabelAllocator, controller *cascade.Controller, options ...Option) *Form {
	if labels == nil {
		labels = NewCounter()
	}
	if controller == nil {
		controller = cascade.NewController()
	}
	f := &Form{
		labels:  labels,
		cascade: controller,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	f.Reset()
	return f
}

// Cascade exposes the controller driving the code selectors.
func (f *Form) Cascade() *cascade.Controller {
	return f.cascade
}

// Reset restores the default series attributes and a single fresh segment.
// The label allocator keeps counting.
func (f *Form) Reset() {
	for _, seg := range f.segments {
		f.cascade.Detach(seg.ID)
	}
	f.series = DefaultSeriesAttributes()
	f.segments = nil
	f.Add()
}

// Series returns the series attributes.
func (f *Form) Series() SeriesAttributes {
	return f.series
}

// SetSeries replaces the series attributes after stripping markup.
func (f *Form) SetSeries(attrs SeriesAttributes) {
	f.series = attrs.sanitized()
}

// Add appends a segment with the next label id.
func (f *Form) Add() Segment {
	color := DefaultColor
	seg := &Segment{
		ID:            uuid.New(),
		LabelID:       f.labels.Next(),
		AlgorithmType: Manual,
		Color:         &color,
		ColorSource:   ColorDefault,
	}
	f.cascade.Attach(seg.ID)
	f.segments = append(f.segments, seg)
	f.logger.Debug().Str("segment", seg.ID.String()).Int("label_id", seg.LabelID).Msg("segment added")
	return seg.clone()
}

// Remove deletes a segment. Its label id is not reissued.
func (f *Form) Remove(id uuid.UUID) error {
	for idx, seg := range f.segments {
		if seg.ID == id {
			f.cascade.Detach(id)
			f.segments = append(f.segments[:idx], f.segments[idx+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSegment, id)
}

// Segment returns a copy of the segment with id.
func (f *Form) Segment(id uuid.UUID) (Segment, bool) {
	seg, err := f.find(id)
	if err != nil {
		return Segment{}, false
	}
	return seg.clone(), true
}

// Segments returns copies of every segment in form order.
func (f *Form) Segments() []Segment {
	out := make([]Segment, 0, len(f.segments))
	for _, seg := range f.segments {
		out = append(out, seg.clone())
	}
	return out
}

// Len reports the number of segments.
func (f *Form) Len() int {
	return len(f.segments)
}

// SetLabelID changes a segment's label id. Collisions are allowed while
// editing and reported by SegmentAlreadyExists and Check.
func (f *Form) SetLabelID(id uuid.UUID, labelID int) error {
	if labelID <= 0 {
		return fmt.Errorf("form: label id must be positive, got %d", labelID)
	}
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.LabelID = labelID
	return nil
}

// SetDescription sets SegmentDescription.
func (f *Form) SetDescription(id uuid.UUID, description string) error {
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.Description = sanitizeText(description)
	return nil
}

// SetLabel sets SegmentLabel.
func (f *Form) SetLabel(id uuid.UUID, label string) error {
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.Label = sanitizeText(label)
	return nil
}

// SetTracking sets the tracking identifier and its UID.
func (f *Form) SetTracking(id uuid.UUID, identifier, uid string) error {
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.TrackingIdentifier = sanitizeText(identifier)
	seg.TrackingUniqueIdentifier = sanitizeText(uid)
	return nil
}

// SetAlgorithm sets the algorithm type and name. The name is dropped for
// MANUAL segments.
func (f *Form) SetAlgorithm(id uuid.UUID, typ AlgorithmType, name string) error {
	if _, err := ParseAlgorithmType(string(typ)); err != nil {
		return err
	}
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.AlgorithmType = typ
	if typ == Manual {
		seg.AlgorithmName = ""
	} else {
		seg.AlgorithmName = sanitizeText(name)
	}
	return nil
}

// Select chooses (or with a nil entry clears) the code in slot and applies
// the resulting cascade to the segment. A property type change updates the
// display color unless the user set it manually.
func (f *Form) Select(id uuid.UUID, slot cascade.Slot, entry *catalog.CodedEntry) ([]cascade.Change, error) {
	seg, err := f.find(id)
	if err != nil {
		return nil, err
	}
	changes, err := f.cascade.Select(id, slot, entry)
	if err != nil {
		return nil, err
	}
	f.applyChanges(seg, changes)
	return changes, nil
}

// SyncCascade copies the controller's selections into every segment. Call
// it after a root vocabulary is replaced.
func (f *Form) SyncCascade(changes []cascade.Change) {
	for _, seg := range f.segments {
		f.applyChanges(seg, changes)
	}
}

func (f *Form) applyChanges(seg *Segment, changes []cascade.Change) {
	for _, change := range changes {
		if change.Segment != seg.ID {
			continue
		}
		ref := seg.codeRef(change.Slot)
		if ref == nil {
			continue
		}
		previous := *ref
		*ref = change.Selected
		if change.Slot == cascade.SegmentedPropertyType && !sameCode(previous, change.Selected) {
			seg.applyRecommendedColor()
		}
	}
}

func sameCode(a, b *catalog.CodedEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Same(*b)
}

// applyRecommendedColor takes the selected property type's recommendation,
// or clears the color when there is none, unless the color is manual.
func (s *Segment) applyRecommendedColor() {
	if s.ColorSource == ColorManual {
		return
	}
	if s.SegmentedPropertyType != nil && s.SegmentedPropertyType.RecommendedDisplayRGBValue != nil {
		color := *s.SegmentedPropertyType.RecommendedDisplayRGBValue
		s.Color = &color
		s.ColorSource = ColorRecommended
		return
	}
	s.Color = nil
	s.ColorSource = ColorDefault
}

// SetColor records a manual color override.
func (f *Form) SetColor(id uuid.UUID, color catalog.RGB) error {
	for _, component := range color {
		if component < 0 || component > 255 {
			return fmt.Errorf("form: color component %d out of range", component)
		}
	}
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.Color = &color
	seg.ColorSource = ColorManual
	return nil
}

// ResetColor drops a manual override and returns to the selected property
// type's recommendation, or to DefaultColor when there is none.
func (f *Form) ResetColor(id uuid.UUID) error {
	seg, err := f.find(id)
	if err != nil {
		return err
	}
	seg.ColorSource = ColorDefault
	seg.applyRecommendedColor()
	if seg.Color == nil {
		color := DefaultColor
		seg.Color = &color
	}
	return nil
}

// SegmentAlreadyExists reports whether a segment other than id uses
// labelID.
func (f *Form) SegmentAlreadyExists(id uuid.UUID, labelID int) bool {
	for _, seg := range f.segments {
		if seg.ID != id && seg.LabelID == labelID {
			return true
		}
	}
	return false
}

// Check returns one DuplicateLabelError per offending segment followed by
// the first missing required field, if any. An empty result means the form
// may be assembled.
func (f *Form) Check() []error {
	var errs []error
	for _, seg := range f.segments {
		if f.SegmentAlreadyExists(seg.ID, seg.LabelID) {
			errs = append(errs, &DuplicateLabelError{LabelID: seg.LabelID, SegmentID: seg.ID})
		}
	}
	if name := f.firstMissingField(); name != "" {
		errs = append(errs, ParseMissingField(name))
	}
	return errs
}

func (f *Form) firstMissingField() string {
	series := []struct {
		field string
		value string
	}{
		{"ContentCreatorName", f.series.ContentCreatorName},
		{"ClinicalTrialSeriesID", f.series.ClinicalTrialSeriesID},
		{"ClinicalTrialTimePointID", f.series.ClinicalTrialTimePointID},
		{"SeriesDescription", f.series.SeriesDescription},
		{"SeriesNumber", f.series.SeriesNumber},
		{"InstanceNumber", f.series.InstanceNumber},
	}
	for _, field := range series {
		if field.value == "" {
			return field.field
		}
	}
	if len(f.segments) == 0 {
		return "segmentAttributes"
	}

	for _, seg := range f.segments {
		switch {
		case seg.AlgorithmType == "":
			return MissingFieldName("SegmentAlgorithmType", seg.LabelID)
		case seg.AlgorithmType != Manual && seg.AlgorithmName == "":
			return MissingFieldName("SegmentAlgorithmName", seg.LabelID)
		case seg.SegmentedPropertyCategory == nil:
			return MissingFieldName("SegmentedPropertyCategory", seg.LabelID)
		case seg.SegmentedPropertyType == nil:
			return MissingFieldName("SegmentedPropertyType", seg.LabelID)
		}
	}
	return ""
}

func (f *Form) find(id uuid.UUID) (*Segment, error) {
	for _, seg := range f.segments {
		if seg.ID == id {
			return seg, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSegment, id)
}

package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DuplicateLabelError reports a segment whose label id is also used by
// another segment.
type DuplicateLabelError struct {
	LabelID   int
	SegmentID uuid.UUID
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("[DUPLICATE]: label id %d is used by more than one segment", e.LabelID)
}

// MissingRequiredFieldError reports the first required field left empty.
// LabelID is 0 for series level fields.
type MissingRequiredFieldError struct {
	Field   string
	LabelID int
}

func (e *MissingRequiredFieldError) Error() string {
	if e.LabelID > 0 {
		return fmt.Sprintf("[MISSING]: %s for segment with label id %d", e.Field, e.LabelID)
	}
	return "[MISSING]: " + e.Field
}

// MissingFieldName encodes a field and the owning segment's label id the
// way form controls are named ("SegmentAlgorithmName_3").
func MissingFieldName(field string, labelID int) string {
	if labelID <= 0 {
		return field
	}
	return field + "_" + strconv.Itoa(labelID)
}

// ParseMissingField decodes a "<Field>_<labelID>" control name.
func ParseMissingField(name string) *MissingRequiredFieldError {
	field, suffix, found := strings.Cut(name, "_")
	out := &MissingRequiredFieldError{Field: field}
	if !found {
		return out
	}
	if labelID, err := strconv.Atoi(suffix); err == nil {
		out.LabelID = labelID
	}
	return out
}

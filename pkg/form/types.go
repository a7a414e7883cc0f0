package form

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
)

// AlgorithmType is the segmentation algorithm family.
type AlgorithmType string

const (
	Manual        AlgorithmType = "MANUAL"
	SemiAutomatic AlgorithmType = "SEMIAUTOMATIC"
	Automatic     AlgorithmType = "AUTOMATIC"
)

// AlgorithmTypes lists the accepted values.
func AlgorithmTypes() []AlgorithmType {
	return []AlgorithmType{Manual, SemiAutomatic, Automatic}
}

// ParseAlgorithmType accepts any casing of the enum values.
func ParseAlgorithmType(raw string) (AlgorithmType, error) {
	candidate := AlgorithmType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AlgorithmTypes() {
		if candidate == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("form: unknown algorithm type %q", raw)
}

// DefaultColor is the display color a new segment starts with.
var DefaultColor = catalog.RGB{128, 174, 128}

// ColorSource records where a segment's display color came from.
type ColorSource int

const (
	// ColorDefault is the initial color, or no color after a property type
	// without a recommendation was chosen.
	ColorDefault ColorSource = iota
	// ColorRecommended is the recommendation of the selected property type.
	ColorRecommended
	// ColorManual is a user override. Property type changes leave it alone
	// until ResetColor is called.
	ColorManual
)

func (s ColorSource) String() string {
	switch s {
	case ColorRecommended:
		return "recommended"
	case ColorManual:
		return "manual"
	default:
		return "default"
	}
}

// SeriesAttributes are the series level fields of the document.
type SeriesAttributes struct {
	ContentCreatorName                  string `json:"ContentCreatorName" yaml:"ContentCreatorName"`
	ClinicalTrialSeriesID               string `json:"ClinicalTrialSeriesID" yaml:"ClinicalTrialSeriesID"`
	ClinicalTrialTimePointID            string `json:"ClinicalTrialTimePointID" yaml:"ClinicalTrialTimePointID"`
	ClinicalTrialCoordinatingCenterName string `json:"ClinicalTrialCoordinatingCenterName,omitempty" yaml:"ClinicalTrialCoordinatingCenterName,omitempty"`
	SeriesDescription                   string `json:"SeriesDescription" yaml:"SeriesDescription"`
	SeriesNumber                        string `json:"SeriesNumber" yaml:"SeriesNumber"`
	InstanceNumber                      string `json:"InstanceNumber" yaml:"InstanceNumber"`
	BodyPartExamined                    string `json:"BodyPartExamined,omitempty" yaml:"BodyPartExamined,omitempty"`
}

// DefaultSeriesAttributes returns the values a fresh form starts with.
func DefaultSeriesAttributes() SeriesAttributes {
	return SeriesAttributes{
		ContentCreatorName:       "Reader1",
		ClinicalTrialSeriesID:    "Session1",
		ClinicalTrialTimePointID: "1",
		SeriesDescription:        "Segmentation",
		SeriesNumber:             "300",
		InstanceNumber:           "1",
	}
}

func (a SeriesAttributes) sanitized() SeriesAttributes {
	return SeriesAttributes{
		ContentCreatorName:                  sanitizeText(a.ContentCreatorName),
		ClinicalTrialSeriesID:               sanitizeText(a.ClinicalTrialSeriesID),
		ClinicalTrialTimePointID:            sanitizeText(a.ClinicalTrialTimePointID),
		ClinicalTrialCoordinatingCenterName: sanitizeText(a.ClinicalTrialCoordinatingCenterName),
		SeriesDescription:                   sanitizeText(a.SeriesDescription),
		SeriesNumber:                        sanitizeText(a.SeriesNumber),
		InstanceNumber:                      sanitizeText(a.InstanceNumber),
		BodyPartExamined:                    sanitizeText(a.BodyPartExamined),
	}
}

// Segment is one labeled region of the document.
type Segment struct {
	ID                       uuid.UUID
	LabelID                  int
	Label                    string
	Description              string
	AlgorithmType            AlgorithmType
	AlgorithmName            string
	TrackingIdentifier       string
	TrackingUniqueIdentifier string

	AnatomicRegion                *catalog.CodedEntry
	AnatomicRegionModifier        *catalog.CodedEntry
	SegmentedPropertyCategory     *catalog.CodedEntry
	SegmentedPropertyType         *catalog.CodedEntry
	SegmentedPropertyTypeModifier *catalog.CodedEntry

	Color       *catalog.RGB
	ColorSource ColorSource
}

// Code returns the selection held in slot.
func (s Segment) Code(slot cascade.Slot) *catalog.CodedEntry {
	if ref := s.codeRef(slot); ref != nil {
		return *ref
	}
	return nil
}

func (s *Segment) codeRef(slot cascade.Slot) **catalog.CodedEntry {
	switch slot {
	case cascade.AnatomicRegion:
		return &s.AnatomicRegion
	case cascade.AnatomicRegionModifier:
		return &s.AnatomicRegionModifier
	case cascade.SegmentedPropertyCategory:
		return &s.SegmentedPropertyCategory
	case cascade.SegmentedPropertyType:
		return &s.SegmentedPropertyType
	case cascade.SegmentedPropertyTypeModifier:
		return &s.SegmentedPropertyTypeModifier
	default:
		return nil
	}
}

// clone returns a copy that shares no pointers with s.
func (s *Segment) clone() Segment {
	out := *s
	for _, slot := range []cascade.Slot{
		cascade.AnatomicRegion,
		cascade.AnatomicRegionModifier,
		cascade.SegmentedPropertyCategory,
		cascade.SegmentedPropertyType,
		cascade.SegmentedPropertyTypeModifier,
	} {
		if code := s.Code(slot); code != nil {
			copied := *code
			*out.codeRef(slot) = &copied
		}
	}
	if s.Color != nil {
		color := *s.Color
		out.Color = &color
	}
	return out
}

package assemble

import "fmt"

// Key set revisions accepted by KeySetFor.
const (
	KeysCurrent = "current"
	KeysLegacy  = "legacy"
)

// KeySetFor returns the key set for a revision name. An empty name is the
// current revision.
func KeySetFor(revision string) (KeySet, error) {
	switch revision {
	case "", KeysCurrent:
		return CurrentKeys(), nil
	case KeysLegacy:
		return LegacyKeys(), nil
	default:
		return KeySet{}, fmt.Errorf("assemble: unknown key set %q", revision)
	}
}

// KeySet names the document keys. Key names differ between schema
// revisions, so the assembler takes them as data.
type KeySet struct {
	// SeriesContainer nests the series attributes under one key when set;
	// otherwise they are written at the top level.
	SeriesContainer string
	SegmentList     string
	// NestSegments wraps every segment object in its own list.
	NestSegments bool

	ContentCreatorName                  string
	ClinicalTrialSeriesID               string
	ClinicalTrialTimePointID            string
	ClinicalTrialCoordinatingCenterName string
	SeriesDescription                   string
	SeriesNumber                        string
	InstanceNumber                      string
	BodyPartExamined                    string

	LabelID                       string
	SegmentDescription            string
	SegmentLabel                  string
	SegmentAlgorithmType          string
	SegmentAlgorithmName          string
	AnatomicRegion                string
	AnatomicRegionModifier        string
	SegmentedPropertyCategory     string
	SegmentedPropertyType         string
	SegmentedPropertyTypeModifier string
	RecommendedDisplayRGBValue    string
	TrackingIdentifier            string
	TrackingUniqueIdentifier      string

	CodeValue              string
	CodingSchemeDesignator string
	CodeMeaning            string
}

// CurrentKeys matches the published segmentation schema.
func CurrentKeys() KeySet {
	return KeySet{
		SegmentList:  "segmentAttributes",
		NestSegments: true,

		ContentCreatorName:                  "ContentCreatorName",
		ClinicalTrialSeriesID:               "ClinicalTrialSeriesID",
		ClinicalTrialTimePointID:            "ClinicalTrialTimePointID",
		ClinicalTrialCoordinatingCenterName: "ClinicalTrialCoordinatingCenterName",
		SeriesDescription:                   "SeriesDescription",
		SeriesNumber:                        "SeriesNumber",
		InstanceNumber:                      "InstanceNumber",
		BodyPartExamined:                    "BodyPartExamined",

		LabelID:                       "labelID",
		SegmentDescription:            "SegmentDescription",
		SegmentLabel:                  "SegmentLabel",
		SegmentAlgorithmType:          "SegmentAlgorithmType",
		SegmentAlgorithmName:          "SegmentAlgorithmName",
		AnatomicRegion:                "AnatomicRegionSequence",
		AnatomicRegionModifier:        "AnatomicRegionModifierSequence",
		SegmentedPropertyCategory:     "SegmentedPropertyCategoryCodeSequence",
		SegmentedPropertyType:         "SegmentedPropertyTypeCodeSequence",
		SegmentedPropertyTypeModifier: "SegmentedPropertyTypeModifierCodeSequence",
		RecommendedDisplayRGBValue:    "recommendedDisplayRGBValue",
		TrackingIdentifier:            "TrackingIdentifier",
		TrackingUniqueIdentifier:      "TrackingUniqueIdentifier",

		CodeValue:              "CodeValue",
		CodingSchemeDesignator: "CodingSchemeDesignator",
		CodeMeaning:            "CodeMeaning",
	}
}

// LegacyKeys matches the first revision of the meta information format,
// where series attributes were nested and segments were a flat list.
func LegacyKeys() KeySet {
	keys := CurrentKeys()
	keys.SeriesContainer = "seriesAttributes"
	keys.NestSegments = false
	keys.ContentCreatorName = "ReaderID"
	keys.ClinicalTrialSeriesID = "SessionID"
	keys.ClinicalTrialTimePointID = "TimePointID"
	keys.LabelID = "LabelID"
	keys.AnatomicRegion = "AnatomicRegionCodeSequence"
	keys.AnatomicRegionModifier = "AnatomicRegionModifierCodeSequence"
	keys.RecommendedDisplayRGBValue = "RecommendedDisplayRGBValue"
	return keys
}

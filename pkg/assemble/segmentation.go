package assemble

import (
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/form"
)

// Option configures assembly.
type Option func(*KeySet)

// WithKeys replaces the key names.
func WithKeys(keys KeySet) Option {
	return func(k *KeySet) {
		*k = keys
	}
}

// Segmentation builds the segmentation meta information document. It does
// not validate; empty optional values are omitted.
func Segmentation(series form.SeriesAttributes, segments []form.Segment, options ...Option) map[string]any {
	keys := CurrentKeys()
	for _, opt := range options {
		if opt != nil {
			opt(&keys)
		}
	}

	doc := make(map[string]any)
	seriesTarget := doc
	if keys.SeriesContainer != "" {
		seriesTarget = make(map[string]any)
		doc[keys.SeriesContainer] = seriesTarget
	}
	seriesTarget[keys.ContentCreatorName] = series.ContentCreatorName
	seriesTarget[keys.ClinicalTrialSeriesID] = series.ClinicalTrialSeriesID
	seriesTarget[keys.ClinicalTrialTimePointID] = series.ClinicalTrialTimePointID
	putString(seriesTarget, keys.ClinicalTrialCoordinatingCenterName, series.ClinicalTrialCoordinatingCenterName)
	seriesTarget[keys.SeriesDescription] = series.SeriesDescription
	seriesTarget[keys.SeriesNumber] = series.SeriesNumber
	seriesTarget[keys.InstanceNumber] = series.InstanceNumber
	putString(seriesTarget, keys.BodyPartExamined, series.BodyPartExamined)

	list := make([]any, 0, len(segments))
	for _, seg := range segments {
		attrs := segmentAttributes(keys, seg)
		if keys.NestSegments {
			list = append(list, []any{attrs})
		} else {
			list = append(list, attrs)
		}
	}
	doc[keys.SegmentList] = list
	return doc
}

func segmentAttributes(keys KeySet, seg form.Segment) map[string]any {
	attrs := map[string]any{
		keys.LabelID:              seg.LabelID,
		keys.SegmentAlgorithmType: string(seg.AlgorithmType),
	}
	putString(attrs, keys.SegmentDescription, seg.Description)
	putString(attrs, keys.SegmentLabel, seg.Label)
	putString(attrs, keys.SegmentAlgorithmName, seg.AlgorithmName)
	putCode(attrs, keys, keys.AnatomicRegion, seg.AnatomicRegion)
	putCode(attrs, keys, keys.AnatomicRegionModifier, seg.AnatomicRegionModifier)
	putCode(attrs, keys, keys.SegmentedPropertyCategory, seg.SegmentedPropertyCategory)
	putCode(attrs, keys, keys.SegmentedPropertyType, seg.SegmentedPropertyType)
	putCode(attrs, keys, keys.SegmentedPropertyTypeModifier, seg.SegmentedPropertyTypeModifier)
	if seg.Color != nil {
		attrs[keys.RecommendedDisplayRGBValue] = []any{seg.Color[0], seg.Color[1], seg.Color[2]}
	}
	putString(attrs, keys.TrackingIdentifier, seg.TrackingIdentifier)
	putString(attrs, keys.TrackingUniqueIdentifier, seg.TrackingUniqueIdentifier)
	return attrs
}

// CodeTriple renders entry as a {CodeValue, CodingSchemeDesignator,
// CodeMeaning} object.
func CodeTriple(keys KeySet, entry catalog.CodedEntry) map[string]any {
	return map[string]any{
		keys.CodeValue:              entry.CodeValue,
		keys.CodingSchemeDesignator: entry.CodingSchemeDesignator,
		keys.CodeMeaning:            entry.CodeMeaning,
	}
}

func putCode(target map[string]any, keys KeySet, key string, entry *catalog.CodedEntry) {
	if key == "" || entry == nil {
		return
	}
	target[key] = CodeTriple(keys, *entry)
}

func putString(target map[string]any, key, value string) {
	if key == "" || value == "" {
		return
	}
	target[key] = value
}

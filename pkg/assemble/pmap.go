package assemble

import "github.com/goliatone/go-dcmmeta/pkg/catalog"

// ParametricMapAttributes are the fields of a parametric map meta
// information document.
type ParametricMapAttributes struct {
	SeriesDescription           string
	SeriesNumber                string
	InstanceNumber              string
	BodyPartExamined            string
	QuantityValueCode           *catalog.CodedEntry
	MeasurementUnitsCode        *catalog.CodedEntry
	MeasurementMethodCode       *catalog.CodedEntry
	AnatomicRegion              *catalog.CodedEntry
	DerivationCode              *catalog.CodedEntry
	RealWorldValueSlope         float64
	DerivedPixelContrast        string
	FrameLaterality             string
	DerivationDescription       string
	SourceImageDiffusionBValues []string
}

// DefaultParametricMapAttributes returns the values a fresh parametric map
// form starts with.
func DefaultParametricMapAttributes() ParametricMapAttributes {
	return ParametricMapAttributes{
		SeriesDescription:   "Parametric map",
		SeriesNumber:        "300",
		InstanceNumber:      "1",
		RealWorldValueSlope: 1,
		FrameLaterality:     "U",
	}
}

// ParametricMap builds the parametric map meta information document.
func ParametricMap(attrs ParametricMapAttributes) map[string]any {
	keys := CurrentKeys()
	doc := map[string]any{
		"SeriesDescription":   attrs.SeriesDescription,
		"SeriesNumber":        attrs.SeriesNumber,
		"InstanceNumber":      attrs.InstanceNumber,
		"RealWorldValueSlope": attrs.RealWorldValueSlope,
	}
	putString(doc, "BodyPartExamined", attrs.BodyPartExamined)
	putCode(doc, keys, "QuantityValueCode", attrs.QuantityValueCode)
	putCode(doc, keys, "MeasurementUnitsCode", attrs.MeasurementUnitsCode)
	putCode(doc, keys, "MeasurementMethodCode", attrs.MeasurementMethodCode)
	putCode(doc, keys, "AnatomicRegionSequence", attrs.AnatomicRegion)
	putCode(doc, keys, "DerivationCode", attrs.DerivationCode)
	putString(doc, "DerivedPixelContrast", attrs.DerivedPixelContrast)
	putString(doc, "FrameLaterality", attrs.FrameLaterality)
	putString(doc, "DerivationDescription", attrs.DerivationDescription)
	if len(attrs.SourceImageDiffusionBValues) > 0 {
		values := make([]any, 0, len(attrs.SourceImageDiffusionBValues))
		for _, value := range attrs.SourceImageDiffusionBValues {
			values = append(values, value)
		}
		doc["SourceImageDiffusionBValues"] = values
	}
	return doc
}

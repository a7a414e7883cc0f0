// Package dicomseed pre-populates series attributes from a DICOM file.
package dicomseed

import (
	"fmt"
	"os"
	"strings"

	"github.com/gradienthealth/dicom"
	"github.com/gradienthealth/dicom/dicomtag"

	"github.com/goliatone/go-dcmmeta/pkg/form"
)

// Field pairs a series attribute with the DICOM tag it is read from.
type Field struct {
	Name string
	Tag  dicomtag.Tag
}

// Fields lists the tags read from a source image.
var Fields = []Field{
	{Name: "ContentCreatorName", Tag: dicomtag.Tag{Group: 0x0070, Element: 0x0084}},
	{Name: "ClinicalTrialSeriesID", Tag: dicomtag.Tag{Group: 0x0012, Element: 0x0071}},
	{Name: "ClinicalTrialTimePointID", Tag: dicomtag.Tag{Group: 0x0012, Element: 0x0050}},
	{Name: "ClinicalTrialCoordinatingCenterName", Tag: dicomtag.Tag{Group: 0x0012, Element: 0x0060}},
	{Name: "SeriesDescription", Tag: dicomtag.Tag{Group: 0x0008, Element: 0x103E}},
	{Name: "SeriesNumber", Tag: dicomtag.Tag{Group: 0x0020, Element: 0x0011}},
	{Name: "BodyPartExamined", Tag: dicomtag.Tag{Group: 0x0018, Element: 0x0015}},
}

// Seed holds the attribute values found in a file, keyed by attribute name.
type Seed map[string]string

// ReadFile parses the DICOM file at path and extracts the seed values.
func ReadFile(path string) (Seed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("dicomseed: %w", err)
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dicomseed: %w", err)
	}
	defer in.Close()

	p, err := dicom.NewParser(in, info.Size(), nil)
	if err != nil {
		return nil, fmt.Errorf("dicomseed: open %s: %w", path, err)
	}
	ds, err := p.Parse(dicom.ParseOptions{DropPixelData: true})
	if err != nil {
		return nil, fmt.Errorf("dicomseed: parse %s: %w", path, err)
	}
	return Extract(ds), nil
}

// Extract collects the first non-empty value of every known tag.
func Extract(ds *dicom.DataSet) Seed {
	seed := Seed{}
	if ds == nil {
		return seed
	}
	for _, field := range Fields {
		elem, err := ds.FindElementByTag(field.Tag)
		if err != nil || elem == nil || len(elem.Value) == 0 {
			continue
		}
		value := strings.TrimSpace(fmt.Sprint(elem.Value[0]))
		if value != "" {
			seed[field.Name] = value
		}
	}
	return seed
}

// Apply overlays the seed on attrs. Attributes absent from the file keep
// their current value.
func (s Seed) Apply(attrs form.SeriesAttributes) form.SeriesAttributes {
	targets := map[string]*string{
		"ContentCreatorName":                  &attrs.ContentCreatorName,
		"ClinicalTrialSeriesID":               &attrs.ClinicalTrialSeriesID,
		"ClinicalTrialTimePointID":            &attrs.ClinicalTrialTimePointID,
		"ClinicalTrialCoordinatingCenterName": &attrs.ClinicalTrialCoordinatingCenterName,
		"SeriesDescription":                   &attrs.SeriesDescription,
		"SeriesNumber":                        &attrs.SeriesNumber,
		"BodyPartExamined":                    &attrs.BodyPartExamined,
	}
	for name, value := range s {
		if target, ok := targets[name]; ok {
			*target = value
		}
	}
	return attrs
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
)

// UnitsLevel is the child vocabulary of a quantity that lists its units.
const UnitsLevel = "Units"

// ParametricMapCatalogs are the vocabularies offered by the parametric map
// flow. Nil catalogs skip their prompt.
type ParametricMapCatalogs struct {
	Quantities *catalog.Catalog
	Methods    *catalog.Catalog
	Regions    *catalog.Catalog
	Derivation *catalog.Catalog
}

// ParametricMap asks for every parametric map attribute, starting from
// attrs.
func (w *Wizard) ParametricMap(ctx context.Context, attrs assemble.ParametricMapAttributes, catalogs ParametricMapCatalogs) (assemble.ParametricMapAttributes, error) {
	out := attrs
	fields := []textField{
		{message: "Series description", target: &out.SeriesDescription, required: true},
		{message: "Series number", target: &out.SeriesNumber, required: true, integer: true},
		{message: "Instance number", target: &out.InstanceNumber, required: true, integer: true},
		{message: "Body part examined", target: &out.BodyPartExamined},
	}
	if err := w.fill(ctx, fields); err != nil {
		return attrs, err
	}

	var err error
	if out.QuantityValueCode, err = w.optional(ctx, "Quantity", catalogs.Quantities, out.QuantityValueCode); err != nil {
		return attrs, err
	}
	units, err := unitsFor(out.QuantityValueCode)
	if err != nil {
		return attrs, err
	}
	if units == nil {
		out.MeasurementUnitsCode = nil
	}
	if out.MeasurementUnitsCode, err = w.optional(ctx, "Measurement units", units, out.MeasurementUnitsCode); err != nil {
		return attrs, err
	}
	if out.MeasurementMethodCode, err = w.optional(ctx, "Measurement method", catalogs.Methods, out.MeasurementMethodCode); err != nil {
		return attrs, err
	}
	if out.AnatomicRegion, err = w.optional(ctx, "Anatomic region", catalogs.Regions, out.AnatomicRegion); err != nil {
		return attrs, err
	}
	if out.DerivationCode, err = w.optional(ctx, "Derivation", catalogs.Derivation, out.DerivationCode); err != nil {
		return attrs, err
	}

	slope, err := w.driver.Input(ctx, prompt.InputConfig{
		Message: "Real world value slope",
		Default: strconv.FormatFloat(out.RealWorldValueSlope, 'g', -1, 64),
		Validator: func(value string) error {
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				return errors.New("must be a number")
			}
			return nil
		},
	})
	if err != nil {
		return attrs, err
	}
	if out.RealWorldValueSlope, err = strconv.ParseFloat(strings.TrimSpace(slope), 64); err != nil {
		return attrs, fmt.Errorf("wizard: slope: %w", err)
	}

	bValues := strings.Join(out.SourceImageDiffusionBValues, ",")
	fields = []textField{
		{message: "Derived pixel contrast", target: &out.DerivedPixelContrast},
		{message: "Frame laterality", target: &out.FrameLaterality},
		{message: "Derivation description", target: &out.DerivationDescription},
		{message: "Source image diffusion b-values (comma separated)", target: &bValues},
	}
	if err := w.fill(ctx, fields); err != nil {
		return attrs, err
	}
	out.SourceImageDiffusionBValues = splitList(bValues)
	return out, nil
}

func (w *Wizard) optional(ctx context.Context, label string, candidates *catalog.Catalog, current *catalog.CodedEntry) (*catalog.CodedEntry, error) {
	if candidates == nil || candidates.Len() == 0 {
		return current, nil
	}
	return w.pick(ctx, label, candidates, current)
}

func unitsFor(quantity *catalog.CodedEntry) (*catalog.Catalog, error) {
	if quantity == nil {
		return nil, nil
	}
	raw, ok := quantity.Child(UnitsLevel)
	if !ok {
		return nil, nil
	}
	units, err := catalog.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("wizard: units of %s: %w", quantity.CodeMeaning, err)
	}
	return units, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

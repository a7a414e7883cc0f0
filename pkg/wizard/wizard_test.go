package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/form"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
	"github.com/goliatone/go-dcmmeta/pkg/testsupport"
)

func load(t *testing.T, path, container, list string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadList(testsupport.MustReadFixture(t, path), container, list)
	require.NoError(t, err)
	return c
}

func newForm(t *testing.T) *form.Form {
	t.Helper()
	controller := cascade.NewController()
	_, err := controller.SetRootCatalog(cascade.AnatomicRegion, load(t, testsupport.RegionsPath, "AnatomicCodes", "AnatomicRegion"))
	require.NoError(t, err)
	_, err = controller.SetRootCatalog(cascade.SegmentedPropertyCategory, load(t, testsupport.CategoriesPath, "SegmentationCodes", "Category"))
	require.NoError(t, err)
	return form.New(form.NewCounter(), controller)
}

func defaults(n int) []string {
	return make([]string, n)
}

func TestSegmentation_TwoSegments(t *testing.T) {
	f := newForm(t)
	inputs := defaults(8)
	inputs = append(inputs,
		// first segment
		"", "Liver lesion", "GrowCut", "kid", "", "tissue", "", "",
		// second segment
		"", "", "", "zzz", "morph", "", "rgb(1, 2, 3)",
	)
	script := &prompt.Script{
		Inputs:   inputs,
		Selects:  []int{1, 1, 2, 1, 1, 1, 0, 0, 1, 1},
		Confirms: []bool{false, true, true, false},
	}

	err := New(script).Segmentation(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, script.Inputs)
	assert.Empty(t, script.Selects)
	assert.Empty(t, script.Confirms)
	assert.Contains(t, script.Messages, `No Segmented Property Category matches "zzz"`)

	segs := f.Segments()
	require.Len(t, segs, 2)

	first := segs[0]
	assert.Equal(t, 1, first.LabelID)
	assert.Equal(t, "Liver lesion", first.Description)
	assert.Equal(t, form.SemiAutomatic, first.AlgorithmType)
	assert.Equal(t, "GrowCut", first.AlgorithmName)
	require.NotNil(t, first.AnatomicRegion)
	assert.Equal(t, "Kidney", first.AnatomicRegion.CodeMeaning)
	require.NotNil(t, first.AnatomicRegionModifier)
	assert.Equal(t, "Right", first.AnatomicRegionModifier.CodeMeaning)
	require.NotNil(t, first.SegmentedPropertyType)
	assert.Equal(t, "Lymph node", first.SegmentedPropertyType.CodeMeaning)
	require.NotNil(t, first.SegmentedPropertyTypeModifier)
	assert.Equal(t, "Left", first.SegmentedPropertyTypeModifier.CodeMeaning)
	require.NotNil(t, first.Color)
	assert.Equal(t, catalog.RGB{192, 104, 88}, *first.Color)
	assert.Equal(t, form.ColorRecommended, first.ColorSource)

	second := segs[1]
	assert.Equal(t, 2, second.LabelID)
	assert.Equal(t, form.Manual, second.AlgorithmType)
	assert.Nil(t, second.AnatomicRegion)
	require.NotNil(t, second.SegmentedPropertyType)
	assert.Equal(t, "Mass", second.SegmentedPropertyType.CodeMeaning)
	assert.Nil(t, second.SegmentedPropertyTypeModifier)
	require.NotNil(t, second.Color)
	assert.Equal(t, catalog.RGB{1, 2, 3}, *second.Color)
	assert.Equal(t, form.ColorManual, second.ColorSource)
}

func TestSegmentation_Incomplete(t *testing.T) {
	f := newForm(t)
	script := &prompt.Script{
		Inputs:   append(defaults(8), "", "", "", ""),
		Selects:  []int{0, 0, 0},
		Confirms: []bool{false, false, false},
	}

	err := New(script).Segmentation(context.Background(), f)
	require.ErrorIs(t, err, ErrIncomplete)

	var missing *form.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "SegmentedPropertyCategory", missing.Field)
	assert.Equal(t, 1, missing.LabelID)
	assert.Contains(t, script.Messages, missing.Error())
}

func TestSegmentation_RejectsDuplicateLabel(t *testing.T) {
	f := newForm(t)
	f.Add()
	script := &prompt.Script{Inputs: append(defaults(8), "2")}

	err := New(script).Segmentation(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestSegmentation_Aborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&prompt.Script{}).Segmentation(ctx, newForm(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParametricMap(t *testing.T) {
	catalogs := ParametricMapCatalogs{
		Quantities: load(t, testsupport.QuantitiesPath, "QuantityCodes", "Quantity"),
		Regions:    load(t, testsupport.RegionsPath, "AnatomicCodes", "AnatomicRegion"),
	}
	script := &prompt.Script{
		Inputs:  []string{"", "", "", "", "diff", "", "", "2.5", "", "", "ADC map", "0, 500,1000"},
		Selects: []int{1, 1, 2},
	}

	attrs, err := New(script).ParametricMap(context.Background(), assemble.DefaultParametricMapAttributes(), catalogs)
	require.NoError(t, err)
	assert.Empty(t, script.Inputs)
	assert.Empty(t, script.Selects)

	require.NotNil(t, attrs.QuantityValueCode)
	assert.Equal(t, "Apparent Diffusion Coefficient", attrs.QuantityValueCode.CodeMeaning)
	require.NotNil(t, attrs.MeasurementUnitsCode)
	assert.Equal(t, "mm2/s", attrs.MeasurementUnitsCode.CodeValue)
	require.NotNil(t, attrs.AnatomicRegion)
	assert.Equal(t, "Liver", attrs.AnatomicRegion.CodeMeaning)
	assert.Nil(t, attrs.MeasurementMethodCode)
	assert.Equal(t, 2.5, attrs.RealWorldValueSlope)
	assert.Equal(t, "U", attrs.FrameLaterality)
	assert.Equal(t, "ADC map", attrs.DerivationDescription)
	assert.Equal(t, []string{"0", "500", "1000"}, attrs.SourceImageDiffusionBValues)

	doc := assemble.ParametricMap(attrs)
	assert.Contains(t, doc, "QuantityValueCode")
	assert.NotContains(t, doc, "BodyPartExamined")
}

func TestPick_EmptyCatalogReturnsNone(t *testing.T) {
	empty, err := catalog.BuildEntries(nil)
	require.NoError(t, err)
	script := &prompt.Script{}

	entry, err := New(script).pick(context.Background(), "Type", empty, nil)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, []string{"No Type codes to choose from"}, script.Messages)
}

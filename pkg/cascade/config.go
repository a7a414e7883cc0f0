package cascade

// Slot names one code selector of a segment.
type Slot string

const (
	AnatomicRegion                Slot = "AnatomicRegion"
	AnatomicRegionModifier        Slot = "AnatomicRegionModifier"
	SegmentedPropertyCategory     Slot = "SegmentedPropertyCategory"
	SegmentedPropertyType         Slot = "SegmentedPropertyType"
	SegmentedPropertyTypeModifier Slot = "SegmentedPropertyTypeModifier"
)

// SelectorConfig describes one selector. Root selectors have no Parent and
// take their candidates from a loaded vocabulary; dependent selectors take
// them from the ChildKey vocabulary embedded in the parent's selection.
type SelectorConfig struct {
	Slot     Slot
	Label    string
	Parent   Slot
	ChildKey string
}

// Root reports whether the selector is fed by a vocabulary document.
func (c SelectorConfig) Root() bool {
	return c.Parent == ""
}

// DefaultConfig returns the region and segmented property chains.
func DefaultConfig() []SelectorConfig {
	return []SelectorConfig{
		{Slot: AnatomicRegion, Label: "Anatomic Region"},
		{Slot: AnatomicRegionModifier, Label: "Anatomic Region Modifier", Parent: AnatomicRegion, ChildKey: "Modifier"},
		{Slot: SegmentedPropertyCategory, Label: "Segmented Property Category"},
		{Slot: SegmentedPropertyType, Label: "Segmented Property Type", Parent: SegmentedPropertyCategory, ChildKey: "Type"},
		{Slot: SegmentedPropertyTypeModifier, Label: "Segmented Property Type Modifier", Parent: SegmentedPropertyType, ChildKey: "Modifier"},
	}
}

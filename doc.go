// Package dcmmeta assembles and validates DICOM meta information documents
// (segmentations and parametric maps). The Workbench resolves a schema and
// everything it references, loads code vocabularies into cascading
// selectors, and validates assembled documents against the bound schema.
package dcmmeta
